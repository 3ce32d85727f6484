package fileregion

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/anacrolix/log"
	"github.com/anacrolix/missinggo/v2/panicif"

	"github.com/anacrolix/fileregion/segments"
	"github.com/anacrolix/fileregion/storage"
)

// Editor reads and modifies a backing file at absolute byte offsets. It owns the file and must be
// closed. It isn't safe for concurrent use.
type Editor struct {
	f      storage.File
	opts   Opts
	logger log.Logger
	closed atomic.Bool
}

var _ interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
} = (*Editor)(nil)

// Opens the file at path for reading and writing.
func Open(path string, opts Opts) (*Editor, error) {
	f, err := storage.OpenOsFile(path, opts.create())
	if err != nil {
		return nil, err
	}
	e := New(f, opts)
	e.logger.WithDefaultLevel(log.Debug).Printf("opened %q", path)
	return e, nil
}

// Takes ownership of an already open file. It must be open for reading and writing, and not in
// append mode.
func OpenFile(f *os.File, opts Opts) (*Editor, error) {
	sf, err := storage.WrapOsFile(f)
	if err != nil {
		return nil, fmt.Errorf("wrapping file: %w", err)
	}
	e := New(sf, opts)
	e.logger.WithDefaultLevel(log.Debug).Printf("opened %q", f.Name())
	return e, nil
}

// Opens the file at path through a shared memory mapping.
func OpenMmap(path string, opts Opts) (*Editor, error) {
	f, err := storage.OpenMmap(path, opts.create())
	if err != nil {
		return nil, err
	}
	e := New(f, opts)
	e.logger.WithDefaultLevel(log.Debug).Printf("opened %q with mmap", path)
	return e, nil
}

// The constructor the Open functions share. Use it directly for other File implementations.
func New(f storage.File, opts Opts) *Editor {
	return &Editor{
		f:      f,
		opts:   opts,
		logger: opts.logger(),
	}
}

func (e *Editor) checkOpen() error {
	if e.closed.Load() {
		return ErrClosed
	}
	return nil
}

// The current length of the file. It's queried from the file every call.
func (e *Editor) Size() (int64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	return e.size()
}

func (e *Editor) size() (int64, error) {
	n, err := e.f.Size()
	if err != nil {
		return 0, fmt.Errorf("getting file size: %w", err)
	}
	return n, nil
}

// Reads n bytes at off. If the range runs past the end of the file, the bytes that exist are
// returned along with io.EOF. The buffer is sized to what the file holds, not to n.
func (e *Editor) Read(off, n int64) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if !(segments.Extent{Start: off, Length: n}).Valid() {
		return nil, rangeError("read", off, n)
	}
	size, err := e.size()
	if err != nil {
		return nil, err
	}
	avail := max(0, min(n, size-off))
	b := make([]byte, avail)
	read, err := e.f.ReadAt(b, off)
	if read == len(b) {
		if avail < n {
			return b, io.EOF
		}
		return b, nil
	}
	panicif.True(err == nil)
	if err == io.EOF {
		return b[:read], err
	}
	return b[:read], fmt.Errorf("reading %v bytes at %v: %w", n, off, err)
}

// Implements io.ReaderAt. Errors other than io.EOF are wrapped.
func (e *Editor) ReadAt(p []byte, off int64) (n int, err error) {
	if err = e.checkOpen(); err != nil {
		return
	}
	if !(segments.Extent{Start: off, Length: int64(len(p))}).Valid() {
		err = rangeError("read", off, int64(len(p)))
		return
	}
	n, err = e.f.ReadAt(p, off)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("reading %v bytes at %v: %w", len(p), off, err)
	}
	return
}

// Writes data at off, replacing what's there. The file grows if the data runs past the end, and
// any gap before off is zero-filled. Returns off.
func (e *Editor) Overwrite(off int64, data []byte) (int64, error) {
	if err := e.checkOpen(); err != nil {
		return off, err
	}
	if !(segments.Extent{Start: off, Length: int64(len(data))}).Valid() {
		return off, rangeError("overwrite", off, int64(len(data)))
	}
	return off, e.writeAt(data, off)
}

// Implements io.WriterAt with the same behaviour as Overwrite.
func (e *Editor) WriteAt(p []byte, off int64) (n int, err error) {
	_, err = e.Overwrite(off, p)
	if err == nil {
		n = len(p)
	}
	return
}

func (e *Editor) writeAt(p []byte, off int64) error {
	n, err := e.f.WriteAt(p, off)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("writing %v bytes at %v: %w", len(p), off, err)
	}
	return nil
}

// Writes data at the current end of the file and returns the offset it was written at. The size
// is read immediately before the write, so concurrent appenders can overwrite each other.
func (e *Editor) Append(data []byte) (int64, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	off, err := e.size()
	if err != nil {
		return 0, err
	}
	return off, e.writeAt(data, off)
}

// Commits the file's contents to stable storage.
func (e *Editor) Sync() error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.f.Sync(); err != nil {
		return fmt.Errorf("syncing: %w", err)
	}
	return nil
}

// Releases the file. Only the first call does anything, later calls return nil.
func (e *Editor) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	var syncErr error
	if e.opts.SyncOnClose {
		syncErr = e.f.Sync()
		if syncErr != nil {
			syncErr = fmt.Errorf("syncing: %w", syncErr)
		}
	}
	err := e.f.Close()
	if err != nil {
		err = fmt.Errorf("closing: %w", err)
	}
	e.logger.WithDefaultLevel(log.Debug).Printf("closed")
	return errors.Join(syncErr, err)
}
