//go:build unix

package storage

import (
	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

var pageSize = unix.Getpagesize()

func msync(mm mmap.MMap, offset, nbytes int) error {
	getDown := offset % pageSize
	return unix.Msync(mm[offset-getDown:offset+nbytes], unix.MS_SYNC)
}
