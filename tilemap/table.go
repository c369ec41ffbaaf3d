// Package tilemap records which tiles of a reserved resource are bound to which heap tile.
package tilemap

import (
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/sparse/backend"
)

const defaultCapacity = 64

// Table maps tile coordinates of one resource to heap offsets, in tiles. It is a pure
// associative store: entries have no ordering and the table is not safe for concurrent use.
type Table struct {
	mappings *swiss.Map[backend.TileCoordinate, int]
}

// NewTable creates an empty table sized for roughly capacity mappings
func NewTable(capacity int) *Table {
	if capacity < 1 {
		capacity = defaultCapacity
	}

	return &Table{
		mappings: swiss.NewMap[backend.TileCoordinate, int](uint32(capacity)),
	}
}

// Register records that coord is bound to heapOffset, replacing any previous mapping for coord
func (t *Table) Register(coord backend.TileCoordinate, heapOffset int) {
	t.mappings.Put(coord, heapOffset)
}

// IsMapped reports whether coord currently has a mapping
func (t *Table) IsMapped(coord backend.TileCoordinate) bool {
	return t.mappings.Has(coord)
}

// Offset returns the heap offset bound to coord, if any
func (t *Table) Offset(coord backend.TileCoordinate) (heapOffset int, mapped bool) {
	return t.mappings.Get(coord)
}

// Unregister removes the mapping for coord. It is a no-op if coord is not mapped.
func (t *Table) Unregister(coord backend.TileCoordinate) {
	t.mappings.Delete(coord)
}

// Count returns the number of mapped tiles
func (t *Table) Count() int {
	return t.mappings.Count()
}

// Iterate calls visit for every mapping until visit returns true
func (t *Table) Iterate(visit func(coord backend.TileCoordinate, heapOffset int) (stop bool)) {
	t.mappings.Iter(visit)
}

// Mappings returns a snapshot of every mapping in the table
func (t *Table) Mappings() map[backend.TileCoordinate]int {
	out := make(map[backend.TileCoordinate]int, t.mappings.Count())
	t.mappings.Iter(func(coord backend.TileCoordinate, heapOffset int) bool {
		out[coord] = heapOffset
		return false
	})
	return out
}

// Clear removes every mapping
func (t *Table) Clear() {
	t.mappings = swiss.NewMap[backend.TileCoordinate, int](defaultCapacity)
}
