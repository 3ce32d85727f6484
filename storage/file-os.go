package storage

import (
	"errors"
	"os"
)

type osFile struct {
	*os.File
}

var _ File = osFile{}

// Wraps an already open file. The file must be open for reading and writing, and must not be in
// append mode, as positioned writes are refused on those.
func WrapOsFile(f *os.File) (File, error) {
	if f == nil {
		return nil, errors.New("nil file")
	}
	// Makes sure the handle is usable before we hand it out.
	if _, err := f.Stat(); err != nil {
		return nil, err
	}
	return osFile{f}, nil
}

// Opens the named file for reading and writing, creating it if create is set.
func OpenOsFile(name string, create bool) (File, error) {
	f, err := openFile(name, create)
	if err != nil {
		return nil, err
	}
	return osFile{f}, nil
}

func (me osFile) Size() (int64, error) {
	fi, err := me.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func openFile(name string, create bool) (*os.File, error) {
	flag := os.O_RDWR
	if create {
		flag |= os.O_CREATE
	}
	return os.OpenFile(name, flag, filePerm)
}
