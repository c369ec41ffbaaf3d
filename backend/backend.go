// Package backend defines the capabilities a graphics device must expose for sparse tile
// residency: a memory heap that tiles are carved from, reserved (virtual) textures, tile
// binding, staging buffers, copy command recording and a monotonically increasing fence.
//
// Implementations live in subpackages: software (host memory, used by tests and headless
// tools) and vulkan (vkngwrapper/core sparse images).
package backend

import "context"

// FenceValue is a point on a backend's monotonically increasing completion counter. Zero is
// never signaled by a submission and is always complete.
type FenceValue uint64

// Heap is device-local memory from which tiles are bound into reserved resources
type Heap interface {
	SizeInBytes() int
	Destroy() error
}

// Resource is a reserved texture: its address space exists, but no memory backs a tile until
// that tile is bound with UpdateTileMapping
type Resource interface {
	Info() ResourceCreateInfo
	Destroy() error
}

// TransferBuffer is host-writable memory used as the source of tile copies
type TransferBuffer interface {
	SizeInBytes() int
	// Map returns a byte slice that aliases the whole buffer until Unmap is called
	Map() ([]byte, error)
	Unmap() error
	Destroy() error
}

// CommandContext records copy commands for a single submission. A context pairs the command
// recording object with the allocator that backs it, so Reset reclaims both.
type CommandContext interface {
	// Reset prepares the context to record again. It must only be called once the context's
	// previous submission has completed.
	Reset() error
	// CopyBufferToTile records a copy from src, laid out as described by footprint, into region of dst
	CopyBufferToTile(src TransferBuffer, footprint Footprint, dst Resource, region CopyRegion) error
	// Close finishes recording. A closed context may be submitted.
	Close() error
	Destroy() error
}

// GraphicsBackend is everything the residency manager needs from a graphics device
type GraphicsBackend interface {
	// TileSizeInBytes is the fixed size of one tile of heap memory, commonly 64 KiB
	TileSizeInBytes() int
	// TexturePitchAlignment is the row pitch alignment required of staging data. It is a power of two.
	TexturePitchAlignment() int

	CreateMemoryHeap(sizeInBytes int) (Heap, error)
	CreateReservedResource(info ResourceCreateInfo) (Resource, error)
	QueryTileLayout(resource Resource) (TileLayout, error)
	// UpdateTileMapping binds the tile at coord to the tile at heapOffsetInTiles within heap. When
	// heap is nil, the tile at coord is unbound and heapOffsetInTiles is ignored.
	UpdateTileMapping(resource Resource, coord TileCoordinate, heap Heap, heapOffsetInTiles int) error

	CreateTransferBuffer(sizeInBytes int) (TransferBuffer, error)
	CreateCommandContext() (CommandContext, error)
	// Submit executes a closed command context on the device queue and returns the fence value
	// that will be reached once it completes. Values increase with every submission.
	Submit(commands CommandContext) (FenceValue, error)
	// CompletedFenceValue returns the highest fence value the device has reached
	CompletedFenceValue() (FenceValue, error)
	// WaitForFence blocks until value has been reached or ctx is done. When ctx ends first,
	// the returned error wraps ctx.Err() and no backend state has changed.
	WaitForFence(ctx context.Context, value FenceValue) error
}
