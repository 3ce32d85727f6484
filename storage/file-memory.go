package storage

import (
	"io"
	"io/fs"
	"slices"
)

// A File held entirely in memory. Useful for tests and for callers that want the same editing
// operations on a byte slice.
type Memory struct {
	b      []byte
	closed bool
}

var _ File = (*Memory)(nil)

// The Memory takes ownership of b.
func NewMemory(b []byte) *Memory {
	return &Memory{b: b}
}

// Returns the current contents. The slice is only valid until the next write or truncate.
func (me *Memory) Bytes() []byte {
	return me.b
}

func (me *Memory) ReadAt(p []byte, off int64) (n int, err error) {
	if me.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, fs.ErrInvalid
	}
	if off >= int64(len(me.b)) {
		if len(p) != 0 {
			err = io.EOF
		}
		return
	}
	n = copy(p, me.b[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

func (me *Memory) WriteAt(p []byte, off int64) (n int, err error) {
	if me.closed {
		return 0, fs.ErrClosed
	}
	if off < 0 {
		return 0, fs.ErrInvalid
	}
	if end := off + int64(len(p)); end > int64(len(me.b)) {
		me.grow(end)
	}
	n = copy(me.b[off:], p)
	return
}

func (me *Memory) grow(size int64) {
	me.b = slices.Grow(me.b, int(size)-len(me.b))
	// Capacity past the old length may hold stale bytes from an earlier truncate.
	clear(me.b[len(me.b):size])
	me.b = me.b[:size]
}

func (me *Memory) Truncate(size int64) error {
	if me.closed {
		return fs.ErrClosed
	}
	if size < 0 {
		return fs.ErrInvalid
	}
	if size > int64(len(me.b)) {
		me.grow(size)
	} else {
		me.b = me.b[:size]
	}
	return nil
}

func (me *Memory) Size() (int64, error) {
	if me.closed {
		return 0, fs.ErrClosed
	}
	return int64(len(me.b)), nil
}

func (me *Memory) Sync() error {
	if me.closed {
		return fs.ErrClosed
	}
	return nil
}

func (me *Memory) Close() error {
	if me.closed {
		return fs.ErrClosed
	}
	me.closed = true
	return nil
}
