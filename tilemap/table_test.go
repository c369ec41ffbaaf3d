package tilemap_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/tilemap"
)

func TestRegisterAndLookup(t *testing.T) {
	table := tilemap.NewTable(0)

	coord := backend.TileCoordinate{Subresource: 1, X: 2, Y: 3, Z: 4}
	require.False(t, table.IsMapped(coord))
	_, mapped := table.Offset(coord)
	require.False(t, mapped)

	table.Register(coord, 17)
	require.True(t, table.IsMapped(coord))
	offset, mapped := table.Offset(coord)
	require.True(t, mapped)
	require.Equal(t, 17, offset)
	require.Equal(t, 1, table.Count())

	table.Register(coord, 5)
	offset, _ = table.Offset(coord)
	require.Equal(t, 5, offset)
	require.Equal(t, 1, table.Count())

	table.Unregister(coord)
	require.False(t, table.IsMapped(coord))
	require.Equal(t, 0, table.Count())

	table.Unregister(coord)
	require.Equal(t, 0, table.Count())
}

func TestCoordinatesDoNotCollide(t *testing.T) {
	table := tilemap.NewTable(16)

	expected := map[backend.TileCoordinate]int{}
	offset := 0
	for subresource := 0; subresource < 3; subresource++ {
		for x := 0; x < 4; x++ {
			for y := 0; y < 4; y++ {
				for z := 0; z < 4; z++ {
					coord := backend.TileCoordinate{Subresource: subresource, X: x, Y: y, Z: z}
					table.Register(coord, offset)
					expected[coord] = offset
					offset++
				}
			}
		}
	}

	require.Equal(t, len(expected), table.Count())
	require.Equal(t, expected, table.Mappings())

	// Swapped axes must be distinct keys
	a, _ := table.Offset(backend.TileCoordinate{Subresource: 0, X: 1, Y: 2, Z: 3})
	b, _ := table.Offset(backend.TileCoordinate{Subresource: 0, X: 3, Y: 2, Z: 1})
	require.NotEqual(t, a, b)
}

func TestIterateAndClear(t *testing.T) {
	table := tilemap.NewTable(4)
	table.Register(backend.TileCoordinate{X: 1}, 1)
	table.Register(backend.TileCoordinate{X: 2}, 2)
	table.Register(backend.TileCoordinate{X: 3}, 3)

	sum := 0
	table.Iterate(func(coord backend.TileCoordinate, heapOffset int) bool {
		require.Equal(t, coord.X, heapOffset)
		sum += heapOffset
		return false
	})
	require.Equal(t, 6, sum)

	visited := 0
	table.Iterate(func(coord backend.TileCoordinate, heapOffset int) bool {
		visited++
		return true
	})
	require.Equal(t, 1, visited)

	table.Clear()
	require.Equal(t, 0, table.Count())
	require.False(t, table.IsMapped(backend.TileCoordinate{}))

	table.Register(backend.TileCoordinate{X: 4}, 9)
	offset, mapped := table.Offset(backend.TileCoordinate{X: 4})
	require.True(t, mapped)
	require.Equal(t, 9, offset)
	require.Equal(t, 1, table.Count())
}
