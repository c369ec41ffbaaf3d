package residency

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/backend/software"
	"github.com/vkngwrapper/sparse/memutils"
)

func TestBuildStatsString(t *testing.T) {
	manager, _ := newTestManager(t, software.CreateOptions{}, heapOfTiles(4))
	resource, err := manager.CreateResource(testInfo)
	require.NoError(t, err)

	coord := backend.TileCoordinate{X: 1}
	require.NoError(t, manager.UploadTile(context.Background(), resource, coord, tileData(resource, 1)))

	require.JSONEq(t, `{
		"Heap": {
			"TileSizeInBytes": 65536,
			"TotalTiles": 4,
			"UsedTiles": 1,
			"FreeTiles": 3,
			"FreeRanges": 1,
			"LargestFreeRange": 3
		},
		"UploadRing": {
			"SlotCount": 4,
			"Submissions": 1,
			"BackpressureWaits": 0
		},
		"Uploads": 1,
		"Evictions": 0,
		"Resources": [
			{
				"ID": 1,
				"Width": 256,
				"Height": 256,
				"Depth": 1,
				"MipLevels": 3,
				"Format": "FormatR8G8B8A8Unorm",
				"MappedTiles": 1
			}
		]
	}`, manager.BuildStatsString(false))
}

func TestBuildStatsString_Detailed(t *testing.T) {
	manager, _ := newTestManager(t, software.CreateOptions{}, heapOfTiles(4))
	resource, err := manager.CreateResource(testInfo)
	require.NoError(t, err)

	for _, coord := range []backend.TileCoordinate{{}, {X: 1}, {Subresource: 1}} {
		require.NoError(t, manager.UploadTile(context.Background(), resource, coord, tileData(resource, 1)))
	}
	require.NoError(t, manager.EvictTile(resource, backend.TileCoordinate{X: 1}))

	var stats struct {
		Heap struct {
			UsedTiles int
			Map       struct {
				Regions []struct {
					Offset int
					Count  int
					Free   bool
				}
			}
		}
		UploadRing struct {
			Slots []struct {
				Index int
				State string
			}
		}
		Evictions int
		Resources []struct {
			MappedTiles int
			Tiles       []struct {
				Subresource int
				X           int
				HeapOffset  int
			}
		}
	}
	require.NoError(t, json.Unmarshal([]byte(manager.BuildStatsString(true)), &stats))

	require.Equal(t, 2, stats.Heap.UsedTiles)
	require.Len(t, stats.Heap.Map.Regions, 4)
	require.False(t, stats.Heap.Map.Regions[0].Free)
	require.True(t, stats.Heap.Map.Regions[1].Free)
	require.Equal(t, 1, stats.Heap.Map.Regions[1].Offset)
	require.False(t, stats.Heap.Map.Regions[2].Free)
	require.Equal(t, 2, stats.Heap.Map.Regions[2].Offset)
	require.True(t, stats.Heap.Map.Regions[3].Free)

	require.Len(t, stats.UploadRing.Slots, 4)
	require.Equal(t, "Submitted", stats.UploadRing.Slots[0].State)
	require.Equal(t, 1, stats.Evictions)

	require.Len(t, stats.Resources, 1)
	require.Equal(t, 2, stats.Resources[0].MappedTiles)
	require.Len(t, stats.Resources[0].Tiles, 2)
	require.Equal(t, 0, stats.Resources[0].Tiles[0].HeapOffset)
	require.Equal(t, 2, stats.Resources[0].Tiles[1].HeapOffset)
	require.Equal(t, 1, stats.Resources[0].Tiles[1].Subresource)
}

func TestCalculateStatistics(t *testing.T) {
	manager, _ := newTestManager(t, software.CreateOptions{}, heapOfTiles(8))
	resource, err := manager.CreateResource(testInfo)
	require.NoError(t, err)

	for _, coord := range []backend.TileCoordinate{{}, {X: 1}, {Y: 1}} {
		require.NoError(t, manager.UploadTile(context.Background(), resource, coord, tileData(resource, 1)))
	}
	require.NoError(t, manager.EvictTile(resource, backend.TileCoordinate{X: 1}))

	var stats memutils.DetailedStatistics
	manager.CalculateStatistics(&stats)
	require.Equal(t, 1, stats.HeapCount)
	require.Equal(t, 8, stats.HeapTiles)
	require.Equal(t, 2, stats.AllocationTiles)
	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 2, stats.FreeRangeCount)
	require.Equal(t, 1, stats.FreeRangeSizeMin)
	require.Equal(t, 5, stats.FreeRangeSizeMax)
	require.True(t, manager.CanAllocate(5))
	require.False(t, manager.CanAllocate(6))
	require.Equal(t, 5, manager.LargestFreeRun())
}
