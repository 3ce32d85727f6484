//go:build !unix

package storage

import (
	"github.com/edsrzf/mmap-go"
)

// There's no partial flush outside unix, so the whole mapping goes.
func msync(mm mmap.MMap, offset, nbytes int) error {
	return mm.Flush()
}
