package storage

import (
	"io"
)

// File is the positioned I/O an Editor needs from its backing file. Offsets are always explicit;
// nothing relies on a stream cursor.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	// Sets the file length, zero-filling if it grows.
	Truncate(size int64) error
	// The current length, queried each call.
	Size() (int64, error)
	// Commits written data to stable storage.
	Sync() error
}
