package residency

import (
	"sort"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

// TotalTiles returns the capacity of the tile heap
func (m *Manager) TotalTiles() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.tiles.TotalTiles()
}

// UsedTiles returns the number of heap tiles backing resident tiles
func (m *Manager) UsedTiles() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.tiles.UsedTiles()
}

// FreeTiles returns the number of unused heap tiles
func (m *Manager) FreeTiles() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.tiles.FreeTiles()
}

// LargestFreeRun returns the length of the longest run of contiguous free heap tiles
func (m *Manager) LargestFreeRun() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.tiles.LargestFreeBlock()
}

// CanAllocate reports whether numTiles contiguous heap tiles are free
func (m *Manager) CanAllocate(numTiles int) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.tiles.CanAllocate(numTiles)
}

// UploadCount returns the number of tile uploads that have been submitted
func (m *Manager) UploadCount() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.uploadCount
}

// EvictionCount returns the number of tiles that have been evicted
func (m *Manager) EvictionCount() uint64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.evictionCount
}

// CalculateStatistics populates stats with the heap's tile usage
func (m *Manager) CalculateStatistics(stats *memutils.DetailedStatistics) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats.Clear()
	m.tiles.AddDetailedStatistics(stats)
}

// BuildStatsString returns a JSON description of the heap, the upload ring and every
// resource. When detailed is true, the heap's region map, each ring slot and each resident
// tile are included.
func (m *Manager) BuildStatsString(detailed bool) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	writer := jwriter.NewWriter()
	root := writer.Object()

	var stats memutils.DetailedStatistics
	stats.Clear()
	m.tiles.AddDetailedStatistics(&stats)

	heapObj := root.Name("Heap").Object()
	heapObj.Name("TileSizeInBytes").Int(m.backend.TileSizeInBytes())
	heapObj.Name("TotalTiles").Int(m.tiles.TotalTiles())
	heapObj.Name("UsedTiles").Int(m.tiles.UsedTiles())
	heapObj.Name("FreeTiles").Int(m.tiles.FreeTiles())
	heapObj.Name("FreeRanges").Int(stats.FreeRangeCount)
	heapObj.Name("LargestFreeRange").Int(m.tiles.LargestFreeBlock())
	if detailed {
		mapObj := heapObj.Name("Map").Object()
		m.tiles.PrintDetailedMap(&mapObj)
		mapObj.End()
	}
	heapObj.End()

	ringObj := root.Name("UploadRing").Object()
	if detailed {
		m.ring.PrintDetailedMap(&ringObj)
	} else {
		ringObj.Name("SlotCount").Int(m.ring.SlotCount())
		ringObj.Name("Submissions").Float64(float64(m.ring.SubmissionCount()))
		ringObj.Name("BackpressureWaits").Float64(float64(m.ring.BackpressureWaitCount()))
	}
	ringObj.End()

	root.Name("Uploads").Float64(float64(m.uploadCount))
	root.Name("Evictions").Float64(float64(m.evictionCount))

	resourceArray := root.Name("Resources").Array()
	for _, resource := range m.sortedResources() {
		resourceObj := resourceArray.Object()
		resource.printParameters(&resourceObj, detailed)
		resourceObj.End()
	}
	resourceArray.End()

	root.End()
	return string(writer.Bytes())
}

func (r *ReservedResource) printParameters(json *jwriter.ObjectState, detailed bool) {
	json.Name("ID").Float64(float64(r.id))
	json.Name("Width").Int(r.info.Width)
	json.Name("Height").Int(r.info.Height)
	json.Name("Depth").Int(r.info.Depth)
	json.Name("MipLevels").Int(r.info.MipLevels)
	json.Name("Format").String(r.info.Format.String())
	json.Name("MappedTiles").Int(r.mappings.Count())

	if !detailed {
		return
	}

	type mappedTile struct {
		coord  backend.TileCoordinate
		offset int
	}
	tiles := make([]mappedTile, 0, r.mappings.Count())
	r.mappings.Iterate(func(coord backend.TileCoordinate, heapOffset int) bool {
		tiles = append(tiles, mappedTile{coord: coord, offset: heapOffset})
		return false
	})
	sort.Slice(tiles, func(i, j int) bool {
		return tiles[i].offset < tiles[j].offset
	})

	tileArray := json.Name("Tiles").Array()
	defer tileArray.End()

	for _, tile := range tiles {
		tileObj := tileArray.Object()
		tileObj.Name("Subresource").Int(tile.coord.Subresource)
		tileObj.Name("X").Int(tile.coord.X)
		tileObj.Name("Y").Int(tile.coord.Y)
		tileObj.Name("Z").Int(tile.coord.Z)
		tileObj.Name("HeapOffset").Int(tile.offset)
		tileObj.End()
	}
}
