// Package vulkan implements backend.GraphicsBackend with vkngwrapper/core sparse images.
// Reserved resources are images created with sparse residency, heaps are plain device memory
// allocations, tile mappings are applied with vkQueueBindSparse and uploads are recorded into
// per-context command pools and submitted to a single queue. Fence values are a monotonic
// counter layered over a pool of VkFence objects.
package vulkan

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
	"golang.org/x/exp/slog"
)

const defaultPollInterval = time.Millisecond

// CreateOptions contains settings for a vulkan backend
type CreateOptions struct {
	// QueueFamilyIndex must name a queue family that supports both sparse binding and transfer
	QueueFamilyIndex int
	QueueIndex       int

	// PitchAlignment overrides the device's optimalBufferCopyRowPitchAlignment. It must be a power of two.
	PitchAlignment int
	// PollInterval is the longest a single fence wait blocks before the context is checked again
	PollInterval time.Duration

	AllocationCallbacks *driver.AllocationCallbacks
}

// Backend is a graphics backend that drives a vulkan device
type Backend struct {
	logger *slog.Logger

	device           core1_0.Device
	queue            core1_0.Queue
	queueFamilyIndex int
	callbacks        *driver.AllocationCallbacks
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties

	pitchAlignment int
	pollInterval   time.Duration
	heapMemoryType int

	// queueMutex serializes queue access, fence bookkeeping and layout transitions
	queueMutex sync.Mutex
	lastFence  backend.FenceValue
	completed  backend.FenceValue
	inFlight   []*submission
	freeFences []core1_0.Fence
}

type submission struct {
	value    backend.FenceValue
	fence    core1_0.Fence
	commands *CommandContext
}

var _ backend.GraphicsBackend = &Backend{}

// New creates a vulkan backend on an existing device. The device must have been created with
// the sparseBinding and sparseResidencyImage2D features enabled, and sparseResidencyImage3D if
// volume resources will be created.
func New(logger *slog.Logger, device core1_0.Device, physicalDevice core1_0.PhysicalDevice, options CreateOptions) (*Backend, error) {
	deviceProperties, err := physicalDevice.Properties()
	if err != nil {
		return nil, err
	}

	b := &Backend{
		logger:           logger,
		device:           device,
		queue:            device.GetQueue(options.QueueFamilyIndex, options.QueueIndex),
		queueFamilyIndex: options.QueueFamilyIndex,
		callbacks:        options.AllocationCallbacks,
		memoryProperties: physicalDevice.MemoryProperties(),
		pitchAlignment:   options.PitchAlignment,
		pollInterval:     options.PollInterval,
	}

	if b.pitchAlignment == 0 {
		b.pitchAlignment = deviceProperties.Limits.OptimalBufferCopyRowPitchAlignment
	}
	if b.pitchAlignment < 1 {
		b.pitchAlignment = 1
	}
	err = memutils.CheckPow2(b.pitchAlignment, "pitch alignment")
	if err != nil {
		return nil, errors.Mark(err, memutils.ErrInvalidArgument)
	}

	if b.pollInterval <= 0 {
		b.pollInterval = defaultPollInterval
	}

	b.heapMemoryType, err = findMemoryTypeIndex(b.memoryProperties, ^uint32(0), core1_0.MemoryPropertyDeviceLocal, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "could not find a memory type for tile heaps")
	}

	return b, nil
}

func (b *Backend) TileSizeInBytes() int {
	return backend.StandardTileSize
}

func (b *Backend) TexturePitchAlignment() int {
	return b.pitchAlignment
}

// CreateMemoryHeap allocates device-local memory for tiles to be bound from
func (b *Backend) CreateMemoryHeap(sizeInBytes int) (backend.Heap, error) {
	if sizeInBytes < 1 || sizeInBytes%backend.StandardTileSize != 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "heap size %d is not a positive multiple of the tile size", sizeInBytes)
	}

	b.logger.Debug("Backend::CreateMemoryHeap", slog.Int("SizeInBytes", sizeInBytes))

	memory, _, err := b.device.AllocateMemory(b.callbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  sizeInBytes,
		MemoryTypeIndex: b.heapMemoryType,
	})
	if err != nil {
		return nil, memutils.BackendError(err, "allocating %d bytes of tile heap memory", sizeInBytes)
	}

	return &Heap{
		backend: b,
		memory:  memory,
		size:    sizeInBytes,
	}, nil
}

// CreateReservedResource creates a sparse-resident image. No memory backs any of its tiles
// until they are bound.
func (b *Backend) CreateReservedResource(info backend.ResourceCreateInfo) (backend.Resource, error) {
	imageInfo, err := imageCreateInfo(info)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Backend::CreateReservedResource",
		slog.Int("Width", info.Width),
		slog.Int("Height", info.Height),
		slog.Int("Depth", info.Depth),
		slog.Int("MipLevels", info.MipLevels),
		slog.String("Format", info.Format.String()))

	image, _, err := b.device.CreateImage(b.callbacks, imageInfo)
	if err != nil {
		return nil, memutils.BackendError(err, "creating sparse image")
	}

	resource := &Resource{
		backend: b,
		image:   image,
		info:    info,
	}

	defer func() {
		if err != nil {
			image.Destroy(b.callbacks)
		}
	}()

	requirements := image.MemoryRequirements()
	err = checkMemoryTypeAllowed(requirements.MemoryTypeBits, b.heapMemoryType, "sparse image")
	if err != nil {
		return nil, err
	}
	if requirements.Alignment != backend.StandardTileSize {
		err = errors.Wrapf(memutils.ErrInvalidArgument, "sparse image alignment %d is not the tile size %d", requirements.Alignment, backend.StandardTileSize)
		return nil, err
	}

	resource.layout, err = tileLayoutFromRequirements(info, image.SparseMemoryRequirements(), backend.StandardTileSize)
	if err != nil {
		return nil, err
	}

	return resource, nil
}

func (b *Backend) QueryTileLayout(resource backend.Resource) (backend.TileLayout, error) {
	r, err := b.resource(resource)
	if err != nil {
		return backend.TileLayout{}, err
	}

	layout := r.layout
	layout.Subresources = append([]backend.SubresourceTiling(nil), r.layout.Subresources...)
	return layout, nil
}

// UpdateTileMapping binds or unbinds one tile of a sparse image. The bind is applied before
// UpdateTileMapping returns because the call blocks on the bind's fence. Unbinds first wait
// for every earlier submission, so a tile never loses its memory underneath an in-flight copy.
func (b *Backend) UpdateTileMapping(resource backend.Resource, coord backend.TileCoordinate, heap backend.Heap, heapOffsetInTiles int) error {
	r, err := b.resource(resource)
	if err != nil {
		return err
	}

	if !r.layout.Contains(coord) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "tile %s is outside the resource's tile grid", coord)
	}

	bind := sparseImageBind(r.info, r.layout, coord)

	if heap != nil {
		h, ok := heap.(*Heap)
		if !ok || h.backend != b {
			return errors.Wrap(memutils.ErrInvalidArgument, "heap was not created by this backend")
		}
		if h.destroyed {
			return errors.Wrap(memutils.ErrDestroyed, "heap")
		}

		memoryOffset := heapOffsetInTiles * backend.StandardTileSize
		if heapOffsetInTiles < 0 || memoryOffset+backend.StandardTileSize > h.size {
			return errors.Wrapf(memutils.ErrInvalidArgument, "heap tile %d is outside a heap of %d bytes", heapOffsetInTiles, h.size)
		}

		bind.Memory = h.memory
		bind.MemoryOffset = memoryOffset
	}

	b.logger.Debug("Backend::UpdateTileMapping",
		slog.String("Coordinate", coord.String()),
		slog.Bool("Bind", heap != nil),
		slog.Int("HeapOffsetInTiles", heapOffsetInTiles))

	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	if heap == nil && len(b.inFlight) > 0 {
		last := b.inFlight[len(b.inFlight)-1]
		_, err = last.fence.Wait(common.NoTimeout)
		if err != nil {
			return memutils.BackendError(err, "waiting for fence value %d before unbinding tile %s", last.value, coord)
		}

		err = b.retireLocked()
		if err != nil {
			return err
		}
	}

	fence, err := b.acquireFenceLocked()
	if err != nil {
		return err
	}

	_, err = b.queue.BindSparse(fence, []core1_0.BindSparseInfo{
		{
			ImageBinds: []core1_0.SparseImageMemoryBindInfo{
				{
					Image: r.image,
					Binds: []core1_0.SparseImageMemoryBind{bind},
				},
			},
		},
	})
	if err != nil {
		b.freeFences = append(b.freeFences, fence)
		return memutils.BackendError(err, "binding tile %s", coord)
	}

	// Binds have no fence value of their own, so the fence is drained before it is reused
	_, err = fence.Wait(common.NoTimeout)
	if err != nil {
		fence.Destroy(b.callbacks)
		return memutils.BackendError(err, "waiting for tile %s to be bound", coord)
	}

	return b.releaseFenceLocked(fence)
}

// CreateTransferBuffer creates a host-visible, host-coherent staging buffer
func (b *Backend) CreateTransferBuffer(sizeInBytes int) (backend.TransferBuffer, error) {
	if sizeInBytes < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "transfer buffer size %d is invalid", sizeInBytes)
	}

	b.logger.Debug("Backend::CreateTransferBuffer", slog.Int("SizeInBytes", sizeInBytes))

	buffer, _, err := b.device.CreateBuffer(b.callbacks, core1_0.BufferCreateInfo{
		Size:        sizeInBytes,
		Usage:       core1_0.BufferUsageTransferSrc,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, memutils.BackendError(err, "creating staging buffer")
	}

	var memory core1_0.DeviceMemory
	defer func() {
		if err != nil {
			if memory != nil {
				memory.Free(b.callbacks)
			}
			buffer.Destroy(b.callbacks)
		}
	}()

	requirements := buffer.MemoryRequirements()
	memoryType, err := findMemoryTypeIndex(b.memoryProperties, requirements.MemoryTypeBits,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent|core1_0.MemoryPropertyHostCached)
	if err != nil {
		return nil, err
	}

	memory, _, err = b.device.AllocateMemory(b.callbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	})
	if err != nil {
		err = memutils.BackendError(err, "allocating %d bytes of staging memory", requirements.Size)
		return nil, err
	}

	_, err = buffer.BindBufferMemory(memory, 0)
	if err != nil {
		err = memutils.BackendError(err, "binding staging memory")
		return nil, err
	}

	return &TransferBuffer{
		backend: b,
		buffer:  buffer,
		memory:  memory,
		size:    sizeInBytes,
	}, nil
}

// CreateCommandContext creates a command pool with a single primary command buffer and
// begins recording into it
func (b *Backend) CreateCommandContext() (backend.CommandContext, error) {
	pool, _, err := b.device.CreateCommandPool(b.callbacks, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: b.queueFamilyIndex,
	})
	if err != nil {
		return nil, memutils.BackendError(err, "creating command pool")
	}

	defer func() {
		if err != nil {
			pool.Destroy(b.callbacks)
		}
	}()

	buffers, _, err := b.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		err = memutils.BackendError(err, "allocating command buffer")
		return nil, err
	}

	commands := &CommandContext{
		backend: b,
		pool:    pool,
		buffer:  buffers[0],
	}

	err = commands.begin()
	if err != nil {
		return nil, err
	}

	return commands, nil
}

// Submit queues a closed command context and returns the fence value its completion reaches
func (b *Backend) Submit(commands backend.CommandContext) (backend.FenceValue, error) {
	commandContext, ok := commands.(*CommandContext)
	if !ok || commandContext.backend != b {
		return 0, errors.Wrap(memutils.ErrInvalidArgument, "command context was not created by this backend")
	}
	if commandContext.state != stateClosed {
		return 0, errors.Wrapf(memutils.ErrInvalidArgument, "command context is %s and cannot be submitted", commandContext.state)
	}

	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	fence, err := b.acquireFenceLocked()
	if err != nil {
		return 0, err
	}

	_, err = b.queue.Submit(fence, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{commandContext.buffer},
		},
	})
	if err != nil {
		b.freeFences = append(b.freeFences, fence)
		return 0, memutils.BackendError(err, "submitting copy commands")
	}

	b.lastFence++
	b.inFlight = append(b.inFlight, &submission{
		value:    b.lastFence,
		fence:    fence,
		commands: commandContext,
	})
	commandContext.state = statePending
	for _, resource := range commandContext.transitions {
		resource.layoutInitialized = true
	}
	commandContext.transitions = nil

	b.logger.Debug("Backend::Submit", slog.Uint64("FenceValue", uint64(b.lastFence)))

	return b.lastFence, nil
}

// CompletedFenceValue polls the in-flight fences and returns the highest value reached
func (b *Backend) CompletedFenceValue() (backend.FenceValue, error) {
	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	err := b.retireLocked()
	return b.completed, err
}

// LastSubmittedFenceValue returns the fence value of the most recent submission
func (b *Backend) LastSubmittedFenceValue() backend.FenceValue {
	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	return b.lastFence
}

// WaitForFence blocks until value is reached. Fences are waited on for at most PollInterval at
// a time so that ctx is observed promptly.
func (b *Backend) WaitForFence(ctx context.Context, value backend.FenceValue) error {
	for {
		b.queueMutex.Lock()
		err := b.retireLocked()
		if err != nil {
			b.queueMutex.Unlock()
			return err
		}

		if value <= b.completed {
			b.queueMutex.Unlock()
			return nil
		}

		if value > b.lastFence {
			b.queueMutex.Unlock()
			return errors.Wrapf(memutils.ErrInvalidArgument, "fence value %d has not been submitted", value)
		}

		var fence core1_0.Fence
		for _, s := range b.inFlight {
			if s.value >= value {
				fence = s.fence
				break
			}
		}
		b.queueMutex.Unlock()

		err = ctx.Err()
		if err != nil {
			return errors.Wrapf(err, "waiting for fence value %d", value)
		}

		res, err := fence.Wait(b.pollInterval)
		if err != nil {
			return memutils.BackendError(err, "waiting for fence value %d", value)
		}
		if res != core1_0.VKSuccess && res != core1_0.VKTimeout {
			return memutils.BackendError(res.ToError(), "waiting for fence value %d", value)
		}
	}
}

// Destroy waits for the queue to drain and destroys every pooled fence. Objects created by the
// backend must be destroyed first.
func (b *Backend) Destroy() error {
	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	_, err := b.queue.WaitIdle()
	if err != nil {
		return memutils.BackendError(err, "waiting for queue idle")
	}

	err = b.retireLocked()
	if err != nil {
		return err
	}

	for _, fence := range b.freeFences {
		fence.Destroy(b.callbacks)
	}
	b.freeFences = nil

	return nil
}

func (b *Backend) acquireFenceLocked() (core1_0.Fence, error) {
	if len(b.freeFences) > 0 {
		fence := b.freeFences[len(b.freeFences)-1]
		b.freeFences = b.freeFences[:len(b.freeFences)-1]
		return fence, nil
	}

	fence, _, err := b.device.CreateFence(b.callbacks, core1_0.FenceCreateInfo{})
	if err != nil {
		return nil, memutils.BackendError(err, "creating fence")
	}

	return fence, nil
}

func (b *Backend) releaseFenceLocked(fence core1_0.Fence) error {
	_, err := fence.Reset()
	if err != nil {
		fence.Destroy(b.callbacks)
		return memutils.BackendError(err, "resetting fence")
	}

	b.freeFences = append(b.freeFences, fence)
	return nil
}

// retireLocked advances the completed value past every signaled submission. Submissions
// complete in order on a single queue, so the scan stops at the first unsignaled fence.
func (b *Backend) retireLocked() error {
	retired := 0
	for _, s := range b.inFlight {
		res, err := s.fence.Status()
		if err != nil {
			return memutils.BackendError(err, "querying fence value %d", s.value)
		}
		if res == core1_0.VKNotReady {
			break
		}

		b.completed = s.value
		s.commands.state = stateExecuted
		retired++

		err = b.releaseFenceLocked(s.fence)
		if err != nil {
			b.inFlight = b.inFlight[retired:]
			return err
		}
	}

	b.inFlight = b.inFlight[retired:]
	return nil
}

func (b *Backend) resource(resource backend.Resource) (*Resource, error) {
	r, ok := resource.(*Resource)
	if !ok || r.backend != b {
		return nil, errors.Wrap(memutils.ErrInvalidArgument, "resource was not created by this backend")
	}
	if r.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "resource")
	}

	return r, nil
}
