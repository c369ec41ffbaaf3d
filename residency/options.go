package residency

import (
	"time"

	"github.com/vkngwrapper/core/v2/common"
)

// CreateFlags indicate specific manager behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	createFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return createFlagsMapping.FlagsToString(f)
}

const (
	// CreateExternallySynchronized ensures that the manager and its resources will not be
	// synchronized internally. The consumer must guarantee they are used from only one
	// goroutine at a time or are synchronized by some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateTrackResidency keeps resident tiles in least-recently-used order so that
	// Manager.EvictLeastRecentlyUsed can relieve heap pressure
	CreateTrackResidency
)

func init() {
	CreateExternallySynchronized.Register("CreateExternallySynchronized")
	CreateTrackResidency.Register("CreateTrackResidency")
}

const (
	// DefaultHeapSize is the tile heap size used when CreateOptions.HeapSizeInBytes is 0. It is
	// equal to 64Mb.
	DefaultHeapSize int = 64 * 1024 * 1024
	// DefaultRingSize is the number of upload slots used when CreateOptions.RingSize is 0
	DefaultRingSize int = 4
)

// CreateOptions contains optional settings when creating a Manager
type CreateOptions struct {
	// Flags indicates specific manager behaviors to activate or deactivate
	Flags CreateFlags
	// HeapSizeInBytes is the size of the tile heap. It is rounded up to a whole number of tiles.
	HeapSizeInBytes int
	// RingSize is the number of tile uploads that may be in flight at once
	RingSize int
	// StagingBufferSize is the size of each upload slot's transfer buffer. It defaults to twice
	// the backend's tile size.
	StagingBufferSize int
	// FenceTimeout bounds each wait for the GPU. Zero waits until the caller's context ends.
	FenceTimeout time.Duration
}
