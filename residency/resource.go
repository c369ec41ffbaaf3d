package residency

import (
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/tilemap"
)

// ResourceID identifies a reserved resource within its Manager. IDs are never reused.
type ResourceID uint64

// ReservedResource is a virtual texture created by a Manager. Its tiles have no memory until
// they are uploaded, and it holds on to heap tiles until they are evicted or the resource is
// destroyed.
type ReservedResource struct {
	id       ResourceID
	manager  *Manager
	handle   backend.Resource
	info     backend.ResourceCreateInfo
	layout   backend.TileLayout
	mappings *tilemap.Table
	released bool
}

// ID returns the resource's identifier
func (r *ReservedResource) ID() ResourceID { return r.id }

// Info returns the dimensions and format the resource was created with
func (r *ReservedResource) Info() backend.ResourceCreateInfo { return r.info }

// Layout returns the resource's tile geometry
func (r *ReservedResource) Layout() backend.TileLayout { return r.layout }

// Handle returns the backend resource, for binding the texture when rendering
func (r *ReservedResource) Handle() backend.Resource { return r.handle }

// TileRegion returns the texel box covered by the tile at coord, clipped to its mip level
func (r *ReservedResource) TileRegion(coord backend.TileCoordinate) backend.CopyRegion {
	return backend.TileRegion(r.info, r.layout, coord)
}

// TileSizeInBytes returns the number of bytes UploadTile expects: one whole tile of texels,
// tightly packed, whether or not the tile straddles the edge of its mip level
func (r *ReservedResource) TileSizeInBytes() int {
	return r.layout.TileSizeInBytes()
}

// IsReleased reports whether the resource has been destroyed
func (r *ReservedResource) IsReleased() bool {
	r.manager.mutex.Lock()
	defer r.manager.mutex.Unlock()

	return r.released
}

// MappedTileCount returns the number of tiles currently backed by heap memory
func (r *ReservedResource) MappedTileCount() int {
	r.manager.mutex.Lock()
	defer r.manager.mutex.Unlock()

	return r.mappings.Count()
}

// IsMapped reports whether the tile at coord is backed by heap memory
func (r *ReservedResource) IsMapped(coord backend.TileCoordinate) bool {
	r.manager.mutex.Lock()
	defer r.manager.mutex.Unlock()

	return r.mappings.IsMapped(coord)
}

// HeapOffset returns the heap tile that backs the tile at coord
func (r *ReservedResource) HeapOffset(coord backend.TileCoordinate) (offset int, mapped bool) {
	r.manager.mutex.Lock()
	defer r.manager.mutex.Unlock()

	return r.mappings.Offset(coord)
}

// Mappings returns a snapshot of every mapped tile and its heap offset
func (r *ReservedResource) Mappings() map[backend.TileCoordinate]int {
	r.manager.mutex.Lock()
	defer r.manager.mutex.Unlock()

	return r.mappings.Mappings()
}
