// Package tileheap implements a fixed-capacity, tile-granular allocator. Offsets and counts are
// expressed in tiles, never bytes. Allocation is first-fit over free runs in ascending offset
// order, and frees coalesce eagerly so that no two free runs are ever adjacent.
//
// TileHeap is not safe for concurrent use; callers that share one across goroutines must
// serialize access themselves.
package tileheap

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sparse/memutils"
)

// FreeBlock is a contiguous run of unallocated tiles
type FreeBlock struct {
	Offset int
	Count  int
}

// End returns the first tile offset past the end of the run
func (b FreeBlock) End() int {
	return b.Offset + b.Count
}

// TileHeap tracks which tiles of one fixed-size backend memory heap are in use
type TileHeap struct {
	totalTiles int
	usedTiles  int

	// Sorted by offset, never overlapping, never adjacent
	freeBlocks []FreeBlock
}

var _ memutils.Validatable = &TileHeap{}

// New creates a TileHeap that manages totalTiles tiles, all of them initially free
func New(totalTiles int) *TileHeap {
	h := &TileHeap{}
	h.Init(totalTiles)
	return h
}

// NewForBytes creates a TileHeap covering sizeInBytes, rounded up to the next tile boundary
func NewForBytes(sizeInBytes int, tileSizeInBytes int) *TileHeap {
	return New(memutils.TileCountForBytes(sizeInBytes, tileSizeInBytes))
}

// Init resets the heap to totalTiles free tiles, discarding every outstanding allocation
func (h *TileHeap) Init(totalTiles int) {
	if totalTiles < 0 {
		totalTiles = 0
	}

	h.totalTiles = totalTiles
	h.usedTiles = 0
	h.freeBlocks = h.freeBlocks[:0]
	if totalTiles > 0 {
		h.freeBlocks = append(h.freeBlocks, FreeBlock{Offset: 0, Count: totalTiles})
	}
}

// Clear instantly frees all allocations
func (h *TileHeap) Clear() {
	h.Init(h.totalTiles)
}

// TotalTiles returns the capacity of the heap in tiles
func (h *TileHeap) TotalTiles() int { return h.totalTiles }

// UsedTiles returns the number of tiles currently allocated
func (h *TileHeap) UsedTiles() int { return h.usedTiles }

// FreeTiles returns the number of tiles not currently allocated, whether or not they are contiguous
func (h *TileHeap) FreeTiles() int { return h.totalTiles - h.usedTiles }

// FreeBlockCount returns the number of distinct free runs
func (h *TileHeap) FreeBlockCount() int { return len(h.freeBlocks) }

// IsEmpty returns true if no tiles are allocated
func (h *TileHeap) IsEmpty() bool { return h.usedTiles == 0 }

// LargestFreeBlock returns the size in tiles of the largest free run, which is the largest
// allocation that can currently succeed
func (h *TileHeap) LargestFreeBlock() int {
	largest := 0
	for _, block := range h.freeBlocks {
		if block.Count > largest {
			largest = block.Count
		}
	}
	return largest
}

// FreeBlocks returns a copy of the free runs in ascending offset order
func (h *TileHeap) FreeBlocks() []FreeBlock {
	blocks := make([]FreeBlock, len(h.freeBlocks))
	copy(blocks, h.freeBlocks)
	return blocks
}

func (h *TileHeap) firstFit(numTiles int) int {
	for index, block := range h.freeBlocks {
		if block.Count >= numTiles {
			return index
		}
	}

	return -1
}

// CanAllocate reports whether Allocate(numTiles) would currently succeed, without mutating the heap
func (h *TileHeap) CanAllocate(numTiles int) bool {
	if numTiles < 1 {
		return false
	}
	return h.firstFit(numTiles) >= 0
}

// Allocate reserves numTiles contiguous tiles from the first free run that is large enough and
// returns the offset of the first tile. success is false when no run is large enough: this is
// an ordinary outcome of exhaustion or fragmentation and leaves the heap untouched.
func (h *TileHeap) Allocate(numTiles int) (offset int, success bool) {
	if numTiles < 1 {
		return 0, false
	}

	index := h.firstFit(numTiles)
	if index < 0 {
		return 0, false
	}

	block := &h.freeBlocks[index]
	offset = block.Offset

	if block.Count == numTiles {
		h.freeBlocks = append(h.freeBlocks[:index], h.freeBlocks[index+1:]...)
	} else {
		block.Offset += numTiles
		block.Count -= numTiles
	}
	h.usedTiles += numTiles

	memutils.DebugValidate(h)
	return offset, true
}

// Free returns numTiles tiles starting at offset to the heap and merges the resulting free
// run with its neighbors. Freeing a range that lies outside the heap or overlaps a free run
// (including a double free) returns an error wrapping memutils.ErrInvalidArgument and leaves
// the heap untouched.
func (h *TileHeap) Free(offset, numTiles int) error {
	if numTiles < 1 {
		return errors.Wrapf(memutils.ErrInvalidArgument, "cannot free %d tiles", numTiles)
	}
	if offset < 0 || offset+numTiles > h.totalTiles {
		return errors.Wrapf(memutils.ErrInvalidArgument, "tile range [%d, %d) is outside of a heap of %d tiles", offset, offset+numTiles, h.totalTiles)
	}

	for _, block := range h.freeBlocks {
		if offset < block.End() && block.Offset < offset+numTiles {
			return errors.Wrapf(memutils.ErrInvalidArgument, "tile range [%d, %d) overlaps free range [%d, %d)", offset, offset+numTiles, block.Offset, block.End())
		}
	}

	h.usedTiles -= numTiles
	h.freeBlocks = append(h.freeBlocks, FreeBlock{Offset: offset, Count: numTiles})
	h.coalesce()

	memutils.DebugValidate(h)
	return nil
}

func (h *TileHeap) coalesce() {
	if len(h.freeBlocks) <= 1 {
		return
	}

	sort.Slice(h.freeBlocks, func(i, j int) bool {
		return h.freeBlocks[i].Offset < h.freeBlocks[j].Offset
	})

	merged := h.freeBlocks[:1]
	for _, current := range h.freeBlocks[1:] {
		last := &merged[len(merged)-1]
		if last.End() == current.Offset {
			last.Count += current.Count
		} else {
			merged = append(merged, current)
		}
	}
	h.freeBlocks = merged
}

// Validate performs internal consistency checks: free runs are sorted, in range, non-overlapping
// and non-adjacent, and usedTiles plus the free run total equals the heap capacity.
func (h *TileHeap) Validate() error {
	if h.usedTiles < 0 || h.usedTiles > h.totalTiles {
		return errors.Errorf("used tile count %d is outside of a heap of %d tiles", h.usedTiles, h.totalTiles)
	}

	freeSum := 0
	for index, block := range h.freeBlocks {
		if block.Count < 1 {
			return errors.Errorf("free block at offset %d has an invalid count %d", block.Offset, block.Count)
		}
		if block.Offset < 0 || block.End() > h.totalTiles {
			return errors.Errorf("free block [%d, %d) is outside of a heap of %d tiles", block.Offset, block.End(), h.totalTiles)
		}

		if index > 0 {
			prev := h.freeBlocks[index-1]
			if prev.End() > block.Offset {
				return errors.Errorf("free block [%d, %d) overlaps or precedes free block [%d, %d)", block.Offset, block.End(), prev.Offset, prev.End())
			}
			if prev.End() == block.Offset {
				return errors.Errorf("free blocks at offsets %d and %d are adjacent but were not merged", prev.Offset, block.Offset)
			}
		}

		freeSum += block.Count
	}

	if h.usedTiles+freeSum != h.totalTiles {
		return errors.Errorf("the heap holds %d tiles, but %d used tiles and %d free tiles were found", h.totalTiles, h.usedTiles, freeSum)
	}

	return nil
}

// VisitAllRegions calls the provided callback once for each used and free run in the heap, in
// ascending offset order
func (h *TileHeap) VisitAllRegions(visit func(offset, count int, free bool) error) error {
	cursor := 0
	for _, block := range h.freeBlocks {
		if block.Offset > cursor {
			err := visit(cursor, block.Offset-cursor, false)
			if err != nil {
				return err
			}
		}

		err := visit(block.Offset, block.Count, true)
		if err != nil {
			return err
		}
		cursor = block.End()
	}

	if cursor < h.totalTiles {
		return visit(cursor, h.totalTiles-cursor, false)
	}

	return nil
}

// AddStatistics sums this heap's usage into stats. Each contiguous used run counts as one allocation.
func (h *TileHeap) AddStatistics(stats *memutils.Statistics) {
	stats.HeapCount++
	stats.HeapTiles += h.totalTiles
	stats.AllocationTiles += h.usedTiles

	_ = h.VisitAllRegions(func(offset, count int, free bool) error {
		if !free {
			stats.AllocationCount++
		}
		return nil
	})
}

// AddDetailedStatistics sums this heap's usage and fragmentation into stats
func (h *TileHeap) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapTiles += h.totalTiles

	_ = h.VisitAllRegions(func(offset, count int, free bool) error {
		if free {
			stats.AddFreeRange(count)
		} else {
			stats.AddAllocation(count)
		}
		return nil
	})
}

// PrintDetailedMap populates a json object with the heap's usage and every region it contains
func (h *TileHeap) PrintDetailedMap(json *jwriter.ObjectState) {
	json.Name("TotalTiles").Int(h.totalTiles)
	json.Name("UsedTiles").Int(h.usedTiles)
	json.Name("FreeTiles").Int(h.FreeTiles())
	json.Name("FreeRanges").Int(len(h.freeBlocks))
	json.Name("LargestFreeRange").Int(h.LargestFreeBlock())

	regions := json.Name("Regions").Array()
	defer regions.End()

	_ = h.VisitAllRegions(func(offset, count int, free bool) error {
		obj := regions.Object()
		defer obj.End()

		obj.Name("Offset").Int(offset)
		obj.Name("Count").Int(count)
		obj.Name("Free").Bool(free)
		return nil
	})
}
