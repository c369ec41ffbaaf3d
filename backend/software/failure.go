package software

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/memutils"
)

// Operation names a backend entry point that can be made to fail
type Operation uint32

const (
	OperationCreateMemoryHeap Operation = iota
	OperationCreateReservedResource
	OperationUpdateTileMapping
	OperationCreateTransferBuffer
	OperationCreateCommandContext
	OperationSubmit
	OperationCopy
	OperationMap
)

var operationMapping = map[Operation]string{
	OperationCreateMemoryHeap:       "CreateMemoryHeap",
	OperationCreateReservedResource: "CreateReservedResource",
	OperationUpdateTileMapping:      "UpdateTileMapping",
	OperationCreateTransferBuffer:   "CreateTransferBuffer",
	OperationCreateCommandContext:   "CreateCommandContext",
	OperationSubmit:                 "Submit",
	OperationCopy:                   "CopyBufferToTile",
	OperationMap:                    "Map",
}

func (o Operation) String() string {
	return operationMapping[o]
}

// FailNext causes the next call of op to fail. The error is marked with memutils.ErrBackend.
func (b *Backend) FailNext(op Operation) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures[op] = errors.Mark(errors.Newf("injected %s failure", op), memutils.ErrBackend)
}

func (b *Backend) takeFailure(op Operation) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	err, ok := b.failures[op]
	if !ok {
		return nil
	}
	delete(b.failures, op)
	return err
}
