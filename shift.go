package fileregion

import (
	"context"
	"fmt"
	"io"

	"github.com/anacrolix/log"
	"github.com/dustin/go-humanize"

	"github.com/anacrolix/fileregion/segments"
)

// Deletes n bytes at start. The bytes after the range move back by n and the file shrinks by n.
// The range must lie within the file. If this fails after the shift, the file keeps its old length
// and ends with a stale copy of its last n bytes.
func (e *Editor) Remove(start, n int64) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	removed := segments.Extent{Start: start, Length: n}
	if !removed.Valid() {
		return rangeError("remove", start, n)
	}
	size, err := e.size()
	if err != nil {
		return err
	}
	if !removed.Within(size) {
		return &RangeError{Op: "remove", Off: start, Len: n, Size: size}
	}
	if n == 0 {
		return nil
	}
	tail := segments.Extent{Start: removed.End(), Length: size - removed.End()}
	if tail.Length != 0 {
		err = e.shift(tail, -n)
		if err != nil {
			return fmt.Errorf("shifting tail: %w", err)
		}
	}
	err = e.f.Truncate(size - n)
	if err != nil {
		return fmt.Errorf("truncating to %v: %w", size-n, err)
	}
	e.logger.WithDefaultLevel(log.Debug).Printf(
		"removed %v at %v, moved %v",
		humanize.IBytes(uint64(n)), start, humanize.IBytes(uint64(tail.Length)))
	return nil
}

// Inserts data at off, which may be anywhere from the start to the end of the file. The bytes from
// off onward move forward by len(data). If this fails partway, the file may be left grown with
// some of those bytes duplicated.
func (e *Editor) Insert(off int64, data []byte) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	n := int64(len(data))
	if !(segments.Extent{Start: off, Length: n}).Valid() {
		return rangeError("insert", off, n)
	}
	size, err := e.size()
	if err != nil {
		return err
	}
	if off > size {
		return &RangeError{Op: "insert", Off: off, Len: n, Size: size}
	}
	if n == 0 {
		return nil
	}
	tail := segments.Extent{Start: off, Length: size - off}
	if tail.Length != 0 {
		err = e.f.Truncate(size + n)
		if err != nil {
			return fmt.Errorf("growing to %v: %w", size+n, err)
		}
		err = e.shift(tail, n)
		if err != nil {
			return fmt.Errorf("shifting tail: %w", err)
		}
	}
	err = e.writeAt(data, off)
	if err != nil {
		return err
	}
	e.logger.WithDefaultLevel(log.Debug).Printf(
		"inserted %v at %v, moved %v",
		humanize.IBytes(uint64(n)), off, humanize.IBytes(uint64(tail.Length)))
	return nil
}

// Moves the bytes in src by delta through a buffer no larger than the shift buffer size. Chunks go
// in the order that never overwrites bytes that haven't been read yet.
func (e *Editor) shift(src segments.Extent, delta int64) error {
	bufSize := min(src.Length, e.opts.shiftBufferSize())
	chunks := src.Chunks(bufSize)
	if delta > 0 {
		chunks = src.ChunksReverse(bufSize)
	}
	return e.withShiftBuffer(int(bufSize), func(buf []byte) error {
		for c := range chunks {
			b := buf[:c.Length]
			n, err := e.f.ReadAt(b, c.Start)
			if n != len(b) {
				if err == nil || err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return fmt.Errorf("reading %v bytes at %v: %w", c.Length, c.Start, err)
			}
			err = e.writeAt(b, c.Offset(delta).Start)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Editor) withShiftBuffer(size int, f func([]byte) error) error {
	if e.opts.Buffers == nil {
		return f(make([]byte, size))
	}
	pb, err := e.opts.Buffers.Get(context.Background(), size)
	if err != nil {
		return fmt.Errorf("getting shift buffer: %w", err)
	}
	defer pb.Close()
	return f(pb.Bytes())
}
