package tileheap_test

import (
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sparse/memutils"
	"github.com/vkngwrapper/sparse/tileheap"
)

func requireInvariants(t *testing.T, heap *tileheap.TileHeap) {
	require.NoError(t, heap.Validate())

	freeSum := 0
	blocks := heap.FreeBlocks()
	for i, block := range blocks {
		freeSum += block.Count
		for j, other := range blocks {
			if i != j {
				require.NotEqual(t, block.Offset+block.Count, other.Offset, "free blocks %v and %v are adjacent", block, other)
			}
		}
	}
	require.Equal(t, heap.TotalTiles(), heap.UsedTiles()+freeSum)
}

func TestNewForBytesRoundsUp(t *testing.T) {
	heap := tileheap.NewForBytes(10*65536+1, 65536)
	require.Equal(t, 11, heap.TotalTiles())
	require.Equal(t, 11, heap.FreeTiles())
	require.Equal(t, 0, heap.UsedTiles())
	requireInvariants(t, heap)
}

func TestBasicAllocation(t *testing.T) {
	heap := tileheap.New(10)

	offset, success := heap.Allocate(3)
	require.True(t, success)
	require.Equal(t, 0, offset)

	offset, success = heap.Allocate(2)
	require.True(t, success)
	require.Equal(t, 3, offset)

	require.Equal(t, 5, heap.UsedTiles())
	require.Equal(t, 5, heap.FreeTiles())
	requireInvariants(t, heap)

	require.NoError(t, heap.Free(0, 3))
	require.NoError(t, heap.Free(3, 2))
	require.Equal(t, 1, heap.FreeBlockCount())

	offset, success = heap.Allocate(5)
	require.True(t, success)
	require.Equal(t, 0, offset)

	_, success = heap.Allocate(10)
	require.False(t, success)
	require.Equal(t, 5, heap.UsedTiles())
	requireInvariants(t, heap)
}

func TestFragmentation(t *testing.T) {
	heap := tileheap.New(10)

	var offsets []int
	for i := 0; i < 4; i++ {
		offset, success := heap.Allocate(2)
		require.True(t, success)
		offsets = append(offsets, offset)
	}
	require.Equal(t, []int{0, 2, 4, 6}, offsets)

	require.NoError(t, heap.Free(2, 2))
	require.NoError(t, heap.Free(6, 2))

	// Tiles 6-9 coalesce with the untouched tail, so only the offset-2 run is size 2
	require.Equal(t, 6, heap.FreeTiles())
	require.Equal(t, []tileheap.FreeBlock{{Offset: 2, Count: 2}, {Offset: 6, Count: 4}}, heap.FreeBlocks())
	requireInvariants(t, heap)

	offset, success := heap.Allocate(2)
	require.True(t, success)
	require.Equal(t, 2, offset)
}

func TestFragmentationFullHeap(t *testing.T) {
	heap := tileheap.New(8)

	for i := 0; i < 4; i++ {
		_, success := heap.Allocate(2)
		require.True(t, success)
	}

	require.NoError(t, heap.Free(2, 2))
	require.NoError(t, heap.Free(6, 2))
	require.Equal(t, 4, heap.FreeTiles())

	require.False(t, heap.CanAllocate(4))
	_, success := heap.Allocate(4)
	require.False(t, success)
	require.Equal(t, 4, heap.UsedTiles())

	require.True(t, heap.CanAllocate(2))
	offset, success := heap.Allocate(2)
	require.True(t, success)
	require.Equal(t, 2, offset)
	requireInvariants(t, heap)
}

func TestCoalesceMiddle(t *testing.T) {
	heap := tileheap.New(6)
	for i := 0; i < 6; i++ {
		_, success := heap.Allocate(1)
		require.True(t, success)
	}

	require.NoError(t, heap.Free(1, 1))
	require.NoError(t, heap.Free(3, 1))
	require.Equal(t, 2, heap.FreeBlockCount())

	require.NoError(t, heap.Free(2, 1))
	require.Equal(t, []tileheap.FreeBlock{{Offset: 1, Count: 3}}, heap.FreeBlocks())
	require.Equal(t, 3, heap.LargestFreeBlock())
	requireInvariants(t, heap)
}

func TestRoundTrip(t *testing.T) {
	heap := tileheap.New(64)
	_, success := heap.Allocate(5)
	require.True(t, success)

	var offsets []int
	for i := 0; i < 16; i++ {
		offset, success := heap.Allocate(1)
		require.True(t, success)
		offsets = append(offsets, offset)
	}

	// Free in an interleaved order so coalescing has to merge from both sides
	for i := 0; i < len(offsets); i += 2 {
		require.NoError(t, heap.Free(offsets[i], 1))
	}
	for i := 1; i < len(offsets); i += 2 {
		require.NoError(t, heap.Free(offsets[i], 1))
	}

	offset, success := heap.Allocate(16)
	require.True(t, success)
	require.Equal(t, offsets[0], offset)
	requireInvariants(t, heap)
}

func TestInvalidAllocate(t *testing.T) {
	heap := tileheap.New(4)

	_, success := heap.Allocate(0)
	require.False(t, success)
	_, success = heap.Allocate(-1)
	require.False(t, success)
	require.False(t, heap.CanAllocate(0))
	require.Equal(t, 0, heap.UsedTiles())

	empty := tileheap.New(0)
	_, success = empty.Allocate(1)
	require.False(t, success)
	requireInvariants(t, empty)
}

func TestInvalidFree(t *testing.T) {
	heap := tileheap.New(10)
	offset, success := heap.Allocate(4)
	require.True(t, success)

	err := heap.Free(offset, 0)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	err = heap.Free(8, 4)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	// Tiles 4+ were never allocated
	err = heap.Free(3, 2)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	require.NoError(t, heap.Free(offset, 4))

	err = heap.Free(offset, 4)
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	require.Equal(t, 0, heap.UsedTiles())
	require.Equal(t, 1, heap.FreeBlockCount())
	requireInvariants(t, heap)
}

type allocation struct {
	offset int
	count  int
}

func runSequence(t *testing.T, seed int64) []int {
	heap := tileheap.New(256)
	random := rand.New(rand.NewSource(seed))

	var live []allocation
	var results []int

	for step := 0; step < 2000; step++ {
		if len(live) > 0 && random.Intn(3) == 0 {
			index := random.Intn(len(live))
			alloc := live[index]
			live = append(live[:index], live[index+1:]...)

			require.NoError(t, heap.Free(alloc.offset, alloc.count))
		} else {
			count := random.Intn(8) + 1
			canAllocate := heap.CanAllocate(count)
			offset, success := heap.Allocate(count)
			require.Equal(t, canAllocate, success)

			if success {
				live = append(live, allocation{offset: offset, count: count})
				results = append(results, offset)
			} else {
				results = append(results, -1)
			}
		}

		requireInvariants(t, heap)
	}

	for _, alloc := range live {
		require.NoError(t, heap.Free(alloc.offset, alloc.count))
	}
	require.True(t, heap.IsEmpty())
	require.Equal(t, []tileheap.FreeBlock{{Offset: 0, Count: 256}}, heap.FreeBlocks())

	return results
}

func TestRandomSequenceInvariantsAndDeterminism(t *testing.T) {
	first := runSequence(t, 42)
	second := runSequence(t, 42)

	require.Equal(t, first, second)
}

func TestStatistics(t *testing.T) {
	heap := tileheap.New(10)
	for i := 0; i < 4; i++ {
		_, success := heap.Allocate(2)
		require.True(t, success)
	}
	require.NoError(t, heap.Free(2, 2))

	var stats memutils.Statistics
	heap.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		HeapCount:       1,
		AllocationCount: 2,
		HeapTiles:       10,
		AllocationTiles: 6,
	}, stats)

	var detailed memutils.DetailedStatistics
	detailed.Clear()
	heap.AddDetailedStatistics(&detailed)
	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			HeapCount:       1,
			AllocationCount: 2,
			HeapTiles:       10,
			AllocationTiles: 6,
		},
		FreeRangeCount:   2,
		AllocationMin:    2,
		AllocationMax:    4,
		FreeRangeSizeMin: 2,
		FreeRangeSizeMax: 2,
	}, detailed)
}

func TestPrintDetailedMap(t *testing.T) {
	heap := tileheap.New(4)
	_, success := heap.Allocate(1)
	require.True(t, success)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	heap.PrintDetailedMap(&obj)
	obj.End()

	require.NoError(t, writer.Error())
	require.JSONEq(t, `{
		"TotalTiles": 4,
		"UsedTiles": 1,
		"FreeTiles": 3,
		"FreeRanges": 1,
		"LargestFreeRange": 3,
		"Regions": [
			{"Offset": 0, "Count": 1, "Free": false},
			{"Offset": 1, "Count": 3, "Free": true}
		]
	}`, string(writer.Bytes()))
}
