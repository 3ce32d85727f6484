package fileregion

import (
	"errors"
	"fmt"
)

var (
	// Matches every *RangeError.
	ErrInvalidRange = errors.New("invalid range")
	// Returned by operations on an Editor after Close.
	ErrClosed = errors.New("editor closed")
)

// An offset and length rejected before any I/O was done.
type RangeError struct {
	Op  string
	Off int64
	Len int64
	// The file size the range was checked against, or -1 if it wasn't needed.
	Size int64
}

func (me *RangeError) Error() string {
	if me.Size < 0 {
		return fmt.Sprintf("%s: invalid range: offset %v, length %v", me.Op, me.Off, me.Len)
	}
	return fmt.Sprintf(
		"%s: range at offset %v of length %v is outside file of size %v",
		me.Op, me.Off, me.Len, me.Size)
}

func (me *RangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

func rangeError(op string, off, n int64) error {
	return &RangeError{Op: op, Off: off, Len: n, Size: -1}
}
