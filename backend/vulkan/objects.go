package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

// Heap is a single device memory allocation that tiles are bound from
type Heap struct {
	backend   *Backend
	memory    core1_0.DeviceMemory
	size      int
	destroyed bool
}

var _ backend.Heap = &Heap{}

func (h *Heap) SizeInBytes() int {
	return h.size
}

// VulkanDeviceMemory returns the allocation backing the heap
func (h *Heap) VulkanDeviceMemory() core1_0.DeviceMemory {
	return h.memory
}

// Destroy frees the heap's memory. Every tile bound from it must have been unbound or its
// resource destroyed.
func (h *Heap) Destroy() error {
	if h.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "heap")
	}

	h.memory.Free(h.backend.callbacks)
	h.destroyed = true
	return nil
}

// Resource is a sparse-resident image
type Resource struct {
	backend *Backend
	image   core1_0.Image
	info    backend.ResourceCreateInfo
	layout  backend.TileLayout

	layoutInitialized bool
	destroyed         bool
}

var _ backend.Resource = &Resource{}

func (r *Resource) Info() backend.ResourceCreateInfo {
	return r.info
}

// VulkanImage returns the sparse image, for binding into descriptor sets. Uploaded tiles are
// left in ImageLayoutGeneral.
func (r *Resource) VulkanImage() core1_0.Image {
	return r.image
}

// Destroy destroys the image. Tiles still bound to it are released along with it. Destroying a
// resource twice does nothing.
func (r *Resource) Destroy() error {
	if r.destroyed {
		return nil
	}

	r.image.Destroy(r.backend.callbacks)
	r.destroyed = true
	return nil
}

// TransferBuffer is a host-visible staging buffer
type TransferBuffer struct {
	backend *Backend
	buffer  core1_0.Buffer
	memory  core1_0.DeviceMemory
	size    int

	mapped    []byte
	destroyed bool
}

var _ backend.TransferBuffer = &TransferBuffer{}

func (b *TransferBuffer) SizeInBytes() int {
	return b.size
}

func (b *TransferBuffer) Map() ([]byte, error) {
	if b.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "transfer buffer")
	}
	if b.mapped != nil {
		return nil, errors.New("transfer buffer is already mapped")
	}

	ptr, _, err := b.memory.Map(0, b.size, 0)
	if err != nil {
		return nil, memutils.BackendError(err, "mapping staging memory")
	}

	b.mapped = unsafe.Slice((*byte)(ptr), b.size)
	return b.mapped, nil
}

func (b *TransferBuffer) Unmap() error {
	if b.mapped == nil {
		return errors.New("transfer buffer is not mapped")
	}

	b.memory.Unmap()
	b.mapped = nil
	return nil
}

func (b *TransferBuffer) Destroy() error {
	if b.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "transfer buffer")
	}

	if b.mapped != nil {
		b.memory.Unmap()
		b.mapped = nil
	}

	b.buffer.Destroy(b.backend.callbacks)
	b.memory.Free(b.backend.callbacks)
	b.destroyed = true
	return nil
}
