package residency

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

// Validate checks the heap and upload ring, then that the heap and every resource's mapping table agree: each mapped tile
// owns a distinct used heap tile, and no heap tile is used without a mapping
func (m *Manager) Validate() error {
	err := memutils.ValidateAll(m.tiles, m.ring)
	if err != nil {
		return err
	}

	owners := make(map[int]backend.TileCoordinate, m.tiles.UsedTiles())
	mapped := 0

	m.resources.Iter(func(id ResourceID, resource *ReservedResource) bool {
		resource.mappings.Iterate(func(coord backend.TileCoordinate, heapOffset int) bool {
			if heapOffset < 0 || heapOffset >= m.tiles.TotalTiles() {
				err = errors.Newf("tile %s of resource %d maps to heap tile %d outside of a %d tile heap", coord, id, heapOffset, m.tiles.TotalTiles())
				return true
			}
			if other, taken := owners[heapOffset]; taken {
				err = errors.Newf("tile %s of resource %d shares heap tile %d with tile %s", coord, id, heapOffset, other)
				return true
			}

			owners[heapOffset] = coord
			mapped++
			return false
		})
		return err != nil
	})
	if err != nil {
		return err
	}

	if mapped != m.tiles.UsedTiles() {
		return errors.Newf("%d tiles are mapped but the heap has %d used tiles", mapped, m.tiles.UsedTiles())
	}

	return m.tiles.VisitAllRegions(func(offset, count int, free bool) error {
		for tile := offset; tile < offset+count; tile++ {
			_, owned := owners[tile]
			if free && owned {
				return errors.Newf("heap tile %d is free but mapped", tile)
			}
			if !free && !owned {
				return errors.Newf("heap tile %d is used but not mapped", tile)
			}
		}
		return nil
	})
}
