// Package software implements backend.GraphicsBackend in host memory. Heaps are byte slices,
// tile bindings are tracked per resource and copies are executed when their submission
// completes, so the data path of the residency manager can be exercised without a GPU.
//
// Submissions complete immediately by default. With CreateOptions.ManualCompletion they stay
// pending until Complete, CompleteThrough or CompleteAll is called, which lets callers observe
// in-flight work and fence backpressure.
package software

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
	"golang.org/x/exp/slog"
)

const defaultPitchAlignment = 256

// CreateOptions contains optional settings for a software backend
type CreateOptions struct {
	// TileSizeInBytes defaults to backend.StandardTileSize
	TileSizeInBytes int
	// PitchAlignment is the staging row pitch alignment. It defaults to 256 and must be a power of two.
	PitchAlignment int
	// ManualCompletion leaves submissions pending until they are completed explicitly
	ManualCompletion bool
}

// Backend is a host-memory graphics backend
type Backend struct {
	logger *slog.Logger

	tileSize         int
	pitchAlignment   int
	manualCompletion bool

	mutex     sync.Mutex
	failures  map[Operation]error
	lastFence backend.FenceValue
	completed backend.FenceValue
	pending   []*submission
	changed   chan struct{}
	liveCount int
}

type submission struct {
	fence    backend.FenceValue
	commands *CommandContext
}

var _ backend.GraphicsBackend = &Backend{}

// New creates a software backend
func New(logger *slog.Logger, options CreateOptions) (*Backend, error) {
	b := &Backend{
		logger:           logger,
		tileSize:         options.TileSizeInBytes,
		pitchAlignment:   options.PitchAlignment,
		manualCompletion: options.ManualCompletion,
		failures:         make(map[Operation]error),
		changed:          make(chan struct{}),
	}

	if b.tileSize == 0 {
		b.tileSize = backend.StandardTileSize
	}
	if b.pitchAlignment == 0 {
		b.pitchAlignment = defaultPitchAlignment
	}

	if b.tileSize < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "tile size %d is invalid", b.tileSize)
	}
	if b.pitchAlignment < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "pitch alignment %d is invalid", b.pitchAlignment)
	}
	err := memutils.CheckPow2(b.pitchAlignment, "pitch alignment")
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Backend) TileSizeInBytes() int { return b.tileSize }

func (b *Backend) TexturePitchAlignment() int { return b.pitchAlignment }

// LiveObjectCount returns the number of heaps, resources, buffers and command contexts that
// have been created and not yet destroyed
func (b *Backend) LiveObjectCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.liveCount
}

func (b *Backend) trackObject(delta int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.liveCount += delta
}

func (b *Backend) CreateMemoryHeap(sizeInBytes int) (backend.Heap, error) {
	if err := b.takeFailure(OperationCreateMemoryHeap); err != nil {
		return nil, err
	}
	if sizeInBytes < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "heap size %d is invalid", sizeInBytes)
	}

	b.trackObject(1)
	return &Heap{
		backend: b,
		data:    make([]byte, sizeInBytes),
	}, nil
}

func (b *Backend) CreateReservedResource(info backend.ResourceCreateInfo) (backend.Resource, error) {
	if err := b.takeFailure(OperationCreateReservedResource); err != nil {
		return nil, err
	}

	err := backend.ValidateResourceCreateInfo(info)
	if err != nil {
		return nil, err
	}

	layout, err := backend.StandardTileLayout(info)
	if err != nil {
		return nil, err
	}
	if layout.TileSizeInBytes() > b.tileSize {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "a %s tile needs %d bytes but heap tiles are %d bytes", info.Format, layout.TileSizeInBytes(), b.tileSize)
	}

	b.trackObject(1)
	return newResource(b, info, layout), nil
}

func (b *Backend) QueryTileLayout(resource backend.Resource) (backend.TileLayout, error) {
	res, err := b.resource(resource)
	if err != nil {
		return backend.TileLayout{}, err
	}

	layout := res.layout
	layout.Subresources = append([]backend.SubresourceTiling(nil), res.layout.Subresources...)
	return layout, nil
}

func (b *Backend) UpdateTileMapping(resource backend.Resource, coord backend.TileCoordinate, heap backend.Heap, heapOffsetInTiles int) error {
	if err := b.takeFailure(OperationUpdateTileMapping); err != nil {
		return err
	}

	res, err := b.resource(resource)
	if err != nil {
		return err
	}
	if !res.layout.Contains(coord) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "tile %s is outside of the resource", coord)
	}

	if heap == nil {
		res.unbind(coord)
		return nil
	}

	softwareHeap, ok := heap.(*Heap)
	if !ok || softwareHeap.backend != b {
		return errors.Wrapf(memutils.ErrInvalidArgument, "heap %T was not created by this backend", heap)
	}
	if softwareHeap.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "cannot bind a tile to a destroyed heap")
	}
	if heapOffsetInTiles < 0 || (heapOffsetInTiles+1)*b.tileSize > len(softwareHeap.data) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "heap tile %d is outside of a heap of %d bytes", heapOffsetInTiles, len(softwareHeap.data))
	}

	res.bind(coord, softwareHeap, heapOffsetInTiles)
	return nil
}

func (b *Backend) CreateTransferBuffer(sizeInBytes int) (backend.TransferBuffer, error) {
	if err := b.takeFailure(OperationCreateTransferBuffer); err != nil {
		return nil, err
	}
	if sizeInBytes < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "transfer buffer size %d is invalid", sizeInBytes)
	}

	b.trackObject(1)
	return &TransferBuffer{
		backend: b,
		data:    make([]byte, sizeInBytes),
	}, nil
}

func (b *Backend) CreateCommandContext() (backend.CommandContext, error) {
	if err := b.takeFailure(OperationCreateCommandContext); err != nil {
		return nil, err
	}

	b.trackObject(1)
	return &CommandContext{backend: b}, nil
}

func (b *Backend) Submit(commands backend.CommandContext) (backend.FenceValue, error) {
	if err := b.takeFailure(OperationSubmit); err != nil {
		return 0, err
	}

	commandContext, ok := commands.(*CommandContext)
	if !ok || commandContext.backend != b {
		return 0, errors.Wrapf(memutils.ErrInvalidArgument, "command context %T was not created by this backend", commands)
	}
	if commandContext.state != commandStateClosed {
		return 0, errors.Newf("cannot submit a command context in state %s", commandContext.state)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	commandContext.state = commandStatePending
	b.lastFence++
	b.pending = append(b.pending, &submission{fence: b.lastFence, commands: commandContext})

	if !b.manualCompletion {
		b.completeLocked(len(b.pending))
	}

	return b.lastFence, nil
}

func (b *Backend) CompletedFenceValue() (backend.FenceValue, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.completed, nil
}

// LastSubmittedFenceValue returns the fence value of the most recent submission
func (b *Backend) LastSubmittedFenceValue() backend.FenceValue {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.lastFence
}

// PendingCount returns the number of submissions that have not yet completed
func (b *Backend) PendingCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return len(b.pending)
}

func (b *Backend) WaitForFence(ctx context.Context, value backend.FenceValue) error {
	for {
		b.mutex.Lock()
		completed := b.completed
		lastFence := b.lastFence
		changed := b.changed
		b.mutex.Unlock()

		if completed >= value {
			return nil
		}
		if value > lastFence {
			return errors.Wrapf(memutils.ErrInvalidArgument, "fence value %d has not been submitted, the last submission was %d", value, lastFence)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for fence value %d, completed value is %d", value, completed)
		}
	}
}

// Complete executes and completes the oldest count pending submissions
func (b *Backend) Complete(count int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.completeLocked(count)
}

// CompleteThrough executes and completes every pending submission up to and including value
func (b *Backend) CompleteThrough(value backend.FenceValue) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	count := 0
	for count < len(b.pending) && b.pending[count].fence <= value {
		count++
	}
	b.completeLocked(count)
}

// CompleteAll executes and completes every pending submission
func (b *Backend) CompleteAll() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.completeLocked(len(b.pending))
}

func (b *Backend) completeLocked(count int) {
	if count > len(b.pending) {
		count = len(b.pending)
	}
	if count < 1 {
		return
	}

	for _, sub := range b.pending[:count] {
		sub.commands.execute(b.logger)
		b.completed = sub.fence
	}
	b.pending = append(b.pending[:0], b.pending[count:]...)

	close(b.changed)
	b.changed = make(chan struct{})
}

func (b *Backend) resource(resource backend.Resource) (*Resource, error) {
	res, ok := resource.(*Resource)
	if !ok || res == nil || res.backend != b {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "resource %T was not created by this backend", resource)
	}
	if res.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "resource has been destroyed")
	}
	return res, nil
}
