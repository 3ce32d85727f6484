package fileregion

import (
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"

	"github.com/anacrolix/fileregion/storage"
)

// The largest buffer used to shift bytes in Remove and Insert unless configured otherwise.
const DefaultShiftBufferSize = 1 << 20

var defaultLogger = log.Default.WithNames("fileregion")

type Opts struct {
	Logger g.Option[log.Logger]
	// Upper bound on the memory used when shifting bytes. Shifts longer than this are done in
	// chunks. Values below 1 mean DefaultShiftBufferSize.
	ShiftBufferSize g.Option[int64]
	// If set, shift buffers are taken from here instead of being allocated per operation.
	Buffers storage.BufferPool
	// Whether Open and OpenMmap create a missing file. Defaults to true.
	Create g.Option[bool]
	// Sync the backing file before closing it.
	SyncOnClose bool
}

func (me Opts) logger() log.Logger {
	return me.Logger.UnwrapOr(defaultLogger)
}

func (me Opts) shiftBufferSize() int64 {
	if size := me.ShiftBufferSize.UnwrapOr(DefaultShiftBufferSize); size > 0 {
		return size
	}
	return DefaultShiftBufferSize
}

func (me Opts) create() bool {
	return me.Create.UnwrapOr(true)
}
