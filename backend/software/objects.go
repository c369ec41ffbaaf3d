package software

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

// Heap is a host-memory tile heap
type Heap struct {
	backend   *Backend
	data      []byte
	destroyed bool
}

var _ backend.Heap = &Heap{}

func (h *Heap) SizeInBytes() int { return len(h.data) }

func (h *Heap) Destroy() error {
	if h.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "heap has already been destroyed")
	}

	h.destroyed = true
	h.data = nil
	h.backend.trackObject(-1)
	return nil
}

// Tile returns the heap memory of the tile at offsetInTiles
func (h *Heap) Tile(offsetInTiles int) []byte {
	start := offsetInTiles * h.backend.tileSize
	return h.data[start : start+h.backend.tileSize]
}

type tileBinding struct {
	heap   *Heap
	offset int
}

// Resource is a reserved texture whose tiles are bound to software heaps
type Resource struct {
	backend   *Backend
	info      backend.ResourceCreateInfo
	layout    backend.TileLayout
	bindings  *swiss.Map[backend.TileCoordinate, tileBinding]
	destroyed bool
}

var _ backend.Resource = &Resource{}

func newResource(b *Backend, info backend.ResourceCreateInfo, layout backend.TileLayout) *Resource {
	return &Resource{
		backend:  b,
		info:     info,
		layout:   layout,
		bindings: swiss.NewMap[backend.TileCoordinate, tileBinding](16),
	}
}

func (r *Resource) Info() backend.ResourceCreateInfo { return r.info }

// Destroy releases every binding of the resource. Destroying a resource twice does nothing.
func (r *Resource) Destroy() error {
	r.backend.mutex.Lock()
	if r.destroyed {
		r.backend.mutex.Unlock()
		return nil
	}

	r.destroyed = true
	r.bindings = swiss.NewMap[backend.TileCoordinate, tileBinding](16)
	r.backend.mutex.Unlock()

	r.backend.trackObject(-1)
	return nil
}

func (r *Resource) bind(coord backend.TileCoordinate, heap *Heap, offset int) {
	r.backend.mutex.Lock()
	defer r.backend.mutex.Unlock()

	r.bindings.Put(coord, tileBinding{heap: heap, offset: offset})
}

func (r *Resource) unbind(coord backend.TileCoordinate) {
	r.backend.mutex.Lock()
	defer r.backend.mutex.Unlock()

	r.bindings.Delete(coord)
}

// BoundTileCount returns the number of tiles currently bound to heap memory
func (r *Resource) BoundTileCount() int {
	r.backend.mutex.Lock()
	defer r.backend.mutex.Unlock()

	return r.bindings.Count()
}

// Binding returns the heap and heap tile offset that the tile at coord is bound to
func (r *Resource) Binding(coord backend.TileCoordinate) (heap *Heap, offsetInTiles int, bound bool) {
	r.backend.mutex.Lock()
	defer r.backend.mutex.Unlock()

	binding, bound := r.bindings.Get(coord)
	return binding.heap, binding.offset, bound
}

// ReadTile returns a tightly-packed copy of the texels of the tile at coord. Texels that fall
// outside of the mip level are included, as they are on hardware.
func (r *Resource) ReadTile(coord backend.TileCoordinate) ([]byte, error) {
	heap, offset, bound := r.Binding(coord)
	if !bound {
		return nil, errors.Wrapf(memutils.ErrNotMapped, "tile %s is not bound", coord)
	}
	if heap.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "tile is bound to a destroyed heap")
	}

	tile := heap.Tile(offset)
	out := make([]byte, r.layout.TileSizeInBytes())
	copy(out, tile)
	return out, nil
}

// TransferBuffer is a host-memory staging buffer
type TransferBuffer struct {
	backend   *Backend
	data      []byte
	mapped    bool
	destroyed bool
}

var _ backend.TransferBuffer = &TransferBuffer{}

func (b *TransferBuffer) SizeInBytes() int { return len(b.data) }

func (b *TransferBuffer) Map() ([]byte, error) {
	if err := b.backend.takeFailure(OperationMap); err != nil {
		return nil, err
	}
	if b.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "transfer buffer has been destroyed")
	}
	if b.mapped {
		return nil, errors.New("transfer buffer is already mapped")
	}

	b.mapped = true
	return b.data, nil
}

func (b *TransferBuffer) Unmap() error {
	if !b.mapped {
		return errors.New("transfer buffer is not mapped")
	}

	b.mapped = false
	return nil
}

func (b *TransferBuffer) Destroy() error {
	if b.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "transfer buffer has already been destroyed")
	}

	b.destroyed = true
	b.mapped = false
	b.backend.trackObject(-1)
	return nil
}
