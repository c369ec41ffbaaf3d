package memutils

import "math"

// Statistics summarizes tile usage across one or more tile heaps. All sizes are in tiles.
type Statistics struct {
	HeapCount       int
	AllocationCount int
	HeapTiles       int
	AllocationTiles int
}

func (s *Statistics) Clear() {
	s.HeapCount = 0
	s.AllocationCount = 0
	s.HeapTiles = 0
	s.AllocationTiles = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.HeapCount += other.HeapCount
	s.AllocationCount += other.AllocationCount
	s.HeapTiles += other.HeapTiles
	s.AllocationTiles += other.AllocationTiles
}

// DetailedStatistics adds fragmentation data to Statistics: how many free runs exist
// and how large the smallest and largest of them are
type DetailedStatistics struct {
	Statistics
	FreeRangeCount   int
	AllocationMin    int
	AllocationMax    int
	FreeRangeSizeMin int
	FreeRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.AllocationMin = math.MaxInt
	s.AllocationMax = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationTiles += size

	if size < s.AllocationMin {
		s.AllocationMin = size
	}

	if size > s.AllocationMax {
		s.AllocationMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}

	if other.AllocationMin < s.AllocationMin {
		s.AllocationMin = other.AllocationMin
	}

	if other.AllocationMax > s.AllocationMax {
		s.AllocationMax = other.AllocationMax
	}
}
