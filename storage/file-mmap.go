package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/anacrolix/missinggo/v2/panicif"
	"github.com/edsrzf/mmap-go"
)

// A File backed by a shared read-write memory mapping. Writes past the end and truncations remap
// the file, so it suits workloads that mostly edit in place.
type Mmap struct {
	f *os.File
	// Nil when the file is empty, as zero-length mappings aren't allowed.
	m mmap.MMap
	// Set when the mapping may not match the file, after a failed resize or remap.
	stale bool
	// Replaced in tests to fail resizes.
	truncate func(f *os.File, size int64) error
}

var _ File = (*Mmap)(nil)

// Opens and maps the named file for reading and writing, creating it if create is set.
func OpenMmap(name string, create bool) (_ *Mmap, err error) {
	f, err := openFile(name, create)
	if err != nil {
		return
	}
	ret := &Mmap{
		f:        f,
		truncate: (*os.File).Truncate,
	}
	err = ret.mapFile()
	if err != nil {
		f.Close()
		return
	}
	return ret, nil
}

// Replaces the mapping with one covering the file's current length.
func (me *Mmap) mapFile() error {
	me.stale = true
	if me.m != nil {
		err := me.m.Unmap()
		if err != nil {
			return fmt.Errorf("unmapping: %w", err)
		}
		me.m = nil
	}
	fi, err := me.f.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size != 0 {
		mm, err := mmap.Map(me.f, mmap.RDWR, 0)
		if err != nil {
			return fmt.Errorf("mapping file: %w", err)
		}
		// This can happen due to filesystem changes outside our control. Don't be naive.
		if int64(len(mm)) != size {
			mm.Unmap()
			return fmt.Errorf("new mmap has wrong size %v, expected %v", len(mm), size)
		}
		me.m = mm
	}
	me.stale = false
	return nil
}

// Resizes the file, then maps whatever length it ended up with, so a failed resize leaves the
// mapping matching the untouched file.
func (me *Mmap) resize(size int64) error {
	err := me.truncate(me.f, size)
	if err != nil && me.m != nil && size < int64(len(me.m)) {
		// Some platforms refuse to shrink a file that's mapped.
		if unmapErr := me.m.Unmap(); unmapErr == nil {
			me.m = nil
			err = me.truncate(me.f, size)
		}
	}
	if err != nil {
		err = fmt.Errorf("error truncating file: %w", err)
	}
	return errors.Join(err, me.mapFile())
}

func (me *Mmap) checkOpen() error {
	if me.f == nil {
		return fs.ErrClosed
	}
	if me.stale {
		return me.mapFile()
	}
	return nil
}

func (me *Mmap) ReadAt(p []byte, off int64) (n int, err error) {
	if err = me.checkOpen(); err != nil {
		return
	}
	if off < 0 {
		err = fs.ErrInvalid
		return
	}
	if off >= int64(len(me.m)) {
		if len(p) != 0 {
			err = io.EOF
		}
		return
	}
	n = copy(p, me.m[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

func (me *Mmap) WriteAt(p []byte, off int64) (n int, err error) {
	if err = me.checkOpen(); err != nil {
		return
	}
	if off < 0 {
		err = fs.ErrInvalid
		return
	}
	if len(p) == 0 {
		return
	}
	if end := off + int64(len(p)); end > int64(len(me.m)) {
		err = me.resize(end)
		if err != nil {
			return
		}
	}
	n = copy(me.m[off:], p)
	panicif.NotEq(n, len(p))
	return
}

func (me *Mmap) Truncate(size int64) error {
	if err := me.checkOpen(); err != nil {
		return err
	}
	if size < 0 {
		return fs.ErrInvalid
	}
	if size == int64(len(me.m)) {
		return nil
	}
	return me.resize(size)
}

// The file length from the file itself. If something else changed the length, the mapping is
// brought back in line.
func (me *Mmap) Size() (int64, error) {
	if err := me.checkOpen(); err != nil {
		return 0, err
	}
	fi, err := me.f.Stat()
	if err != nil {
		return 0, err
	}
	if fi.Size() != int64(len(me.m)) {
		if err := me.mapFile(); err != nil {
			return 0, err
		}
	}
	return fi.Size(), nil
}

func (me *Mmap) Sync() error {
	if err := me.checkOpen(); err != nil {
		return err
	}
	if len(me.m) == 0 {
		return me.f.Sync()
	}
	return msync(me.m, 0, len(me.m))
}

func (me *Mmap) Close() error {
	if me.f == nil {
		return fs.ErrClosed
	}
	var err error
	if me.m != nil {
		err = me.m.Unmap()
		me.m = nil
	}
	closeErr := me.f.Close()
	me.f = nil
	if err != nil {
		return fmt.Errorf("unmapping: %w", err)
	}
	return closeErr
}
