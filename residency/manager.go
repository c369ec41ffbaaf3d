// Package residency streams the tiles of sparse textures in and out of a fixed GPU tile heap.
//
// A Manager owns one backend heap, the allocator that carves it into tiles and a ring of
// upload slots. UploadTile makes a tile resident (allocating and binding heap memory the first
// time) and copies its texels through the ring; EvictTile unbinds a tile and returns its heap
// memory. Both either complete or leave the heap, the mapping tables and the backend bindings
// as they were.
package residency

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/internal/utils"
	"github.com/vkngwrapper/sparse/memutils"
	"github.com/vkngwrapper/sparse/tileheap"
	"github.com/vkngwrapper/sparse/tilemap"
	"github.com/vkngwrapper/sparse/upload"
	"golang.org/x/exp/slog"
)

type residentTile struct {
	resource ResourceID
	coord    backend.TileCoordinate
}

// Manager is the tile residency manager for one graphics backend
type Manager struct {
	logger      *slog.Logger
	backend     backend.GraphicsBackend
	mutex       *utils.OptionalMutex
	createFlags CreateFlags

	heap  backend.Heap
	tiles *tileheap.TileHeap
	ring  *upload.Ring

	resources *swiss.Map[ResourceID, *ReservedResource]
	nextID    ResourceID
	resident  *simplelru.LRU

	uploadCount   uint64
	evictionCount uint64
	destroyed     bool
}

// New creates a residency manager. The backend heap and every upload slot are created up
// front and live until Destroy.
//
// logger - The logger that manager operations are traced to
//
// graphics - The backend that owns the device, queue and fence
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, graphics backend.GraphicsBackend, options CreateOptions) (manager *Manager, err error) {
	if graphics == nil {
		return nil, errors.Wrap(memutils.ErrInvalidArgument, "graphics backend is nil")
	}

	if options.HeapSizeInBytes == 0 {
		options.HeapSizeInBytes = DefaultHeapSize
	}
	if options.RingSize == 0 {
		options.RingSize = DefaultRingSize
	}
	if options.HeapSizeInBytes < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "heap size %d is invalid", options.HeapSizeInBytes)
	}

	tileSize := graphics.TileSizeInBytes()
	if tileSize < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "backend tile size %d is invalid", tileSize)
	}
	tileCount := memutils.TileCountForBytes(options.HeapSizeInBytes, tileSize)

	manager = &Manager{
		logger:      logger,
		backend:     graphics,
		mutex:       utils.NewOptionalMutex(options.Flags&CreateExternallySynchronized == 0),
		createFlags: options.Flags,
		tiles:       tileheap.New(tileCount),
		resources:   swiss.NewMap[ResourceID, *ReservedResource](8),
		nextID:      1,
	}

	manager.heap, err = graphics.CreateMemoryHeap(tileCount * tileSize)
	if err != nil {
		return nil, memutils.BackendError(err, "creating tile heap of %d tiles", tileCount)
	}

	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, manager.heap.Destroy())
			manager = nil
		}
	}()

	manager.ring, err = upload.NewRing(logger, graphics, upload.CreateOptions{
		SlotCount:         options.RingSize,
		StagingBufferSize: options.StagingBufferSize,
		FenceTimeout:      options.FenceTimeout,
	})
	if err != nil {
		return manager, err
	}

	if options.Flags&CreateTrackResidency != 0 {
		manager.resident, err = simplelru.NewLRU(tileCount, nil)
		if err != nil {
			return manager, errors.CombineErrors(err, manager.ring.Destroy(context.Background()))
		}
	}

	logger.Debug("Manager::New",
		slog.String("Flags", options.Flags.String()),
		slog.Int("TileCount", tileCount),
		slog.Int("TileSizeInBytes", tileSize),
		slog.Int("RingSize", options.RingSize),
	)
	return manager, nil
}

func (m *Manager) checkAlive() error {
	if m.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "residency manager has been destroyed")
	}
	return nil
}

func (m *Manager) checkResource(resource *ReservedResource) error {
	if err := m.checkAlive(); err != nil {
		return err
	}
	if resource == nil {
		return errors.Wrap(memutils.ErrInvalidArgument, "resource is nil")
	}
	if resource.manager != m {
		return errors.Wrapf(memutils.ErrInvalidArgument, "resource %d belongs to another manager", resource.id)
	}
	if resource.released {
		return errors.Wrapf(memutils.ErrDestroyed, "resource %d has been destroyed", resource.id)
	}
	return nil
}

func (m *Manager) checkCoordinate(resource *ReservedResource, coord backend.TileCoordinate) error {
	if !resource.layout.Contains(coord) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "tile %s is outside of resource %d", coord, resource.id)
	}
	return nil
}

// Backend returns the graphics backend the manager drives
func (m *Manager) Backend() backend.GraphicsBackend { return m.backend }

// Heap returns the backend heap that tiles are carved from
func (m *Manager) Heap() backend.Heap { return m.heap }

// CreateResource reserves a virtual texture. No memory is bound to any of its tiles.
func (m *Manager) CreateResource(info backend.ResourceCreateInfo) (resource *ReservedResource, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkAlive(); err != nil {
		return nil, err
	}

	err = backend.ValidateResourceCreateInfo(info)
	if err != nil {
		return nil, err
	}

	handle, err := m.backend.CreateReservedResource(info)
	if err != nil {
		return nil, memutils.BackendError(err, "creating %dx%dx%d %s resource", info.Width, info.Height, info.Depth, info.Format)
	}

	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, handle.Destroy())
		}
	}()

	layout, err := m.backend.QueryTileLayout(handle)
	if err != nil {
		return nil, memutils.BackendError(err, "querying tile layout of %dx%dx%d %s resource", info.Width, info.Height, info.Depth, info.Format)
	}

	fullTile := backend.CopyRegion{Width: layout.TileWidth, Height: layout.TileHeight, Depth: layout.TileDepth}
	stagingSize := upload.ComputeFootprint(fullTile, layout.BytesPerTexel, m.ring.PitchAlignment()).SizeInBytes()
	if stagingSize > m.ring.StagingBufferSize() {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "a %s tile needs %d bytes of staging but upload slots hold %d", info.Format, stagingSize, m.ring.StagingBufferSize())
	}

	resource = &ReservedResource{
		id:       m.nextID,
		manager:  m,
		handle:   handle,
		info:     info,
		layout:   layout,
		mappings: tilemap.NewTable(0),
	}
	m.nextID++
	m.resources.Put(resource.id, resource)

	m.logger.Debug("Manager::CreateResource",
		slog.Uint64("ID", uint64(resource.id)),
		slog.Int("Width", info.Width),
		slog.Int("Height", info.Height),
		slog.Int("Depth", info.Depth),
		slog.Int("MipLevels", info.MipLevels),
		slog.String("Format", info.Format.String()),
	)
	return resource, nil
}

// UploadTile copies data into the tile at coord, making the tile resident if it is not
// already. data must hold exactly resource.TileSizeInBytes() bytes: one whole tile of
// tightly-packed texels. Only the texels inside the mip level are copied, so a tile on the
// edge of the texture ignores the rows and columns past the edge.
//
// A tile that is already resident keeps its heap tile and binding; only its texels are
// restaged. A newly resident tile takes one heap tile, which is bound before the copy is
// submitted. When the heap is exhausted the returned error is marked memutils.ErrOutOfTiles
// and nothing has changed.
//
// UploadTile blocks while every upload slot is waiting on the GPU.
func (m *Manager) UploadTile(ctx context.Context, resource *ReservedResource, coord backend.TileCoordinate, data []byte) (err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkResource(resource); err != nil {
		return err
	}
	if err := m.checkCoordinate(resource, coord); err != nil {
		return err
	}

	region := resource.TileRegion(coord)
	expected := resource.layout.TileSizeInBytes()
	if len(data) != expected {
		return errors.Wrapf(memutils.ErrInvalidArgument, "tile %s of resource %d holds %d bytes but %d were provided", coord, resource.id, expected, len(data))
	}

	slot, err := m.ring.AcquireSlot(ctx)
	if err != nil {
		return err
	}

	err = m.ring.FillSlotFrom(slot, region, resource.layout.BytesPerTexel, upload.TileSource(resource.layout), data)
	if err != nil {
		m.ring.Release(slot)
		return err
	}

	offset, alreadyMapped := resource.mappings.Offset(coord)
	if !alreadyMapped {
		offset, err = m.mapTile(resource, coord)
		if err != nil {
			m.ring.Release(slot)
			return err
		}
	}

	_, err = m.ring.SubmitCopy(slot, resource.handle, region)
	if err != nil {
		if !alreadyMapped {
			err = errors.CombineErrors(err, m.unmapTile(resource, coord, offset))
		}

		m.logger.Error("Manager::UploadTile failed",
			slog.Uint64("ID", uint64(resource.id)),
			slog.String("Tile", coord.String()),
			slog.Any("error", err),
		)
		return err
	}

	m.touch(resource, coord)
	m.uploadCount++
	memutils.DebugValidate(m)

	m.logger.Debug("Manager::UploadTile",
		slog.Uint64("ID", uint64(resource.id)),
		slog.String("Tile", coord.String()),
		slog.Int("HeapOffset", offset),
		slog.Bool("NewMapping", !alreadyMapped),
	)
	return nil
}

// mapTile allocates a heap tile, binds it at coord and registers the mapping
func (m *Manager) mapTile(resource *ReservedResource, coord backend.TileCoordinate) (int, error) {
	offset, success := m.tiles.Allocate(1)
	if !success {
		return 0, errors.Wrapf(memutils.ErrOutOfTiles, "mapping tile %s of resource %d with %d of %d heap tiles used", coord, resource.id, m.tiles.UsedTiles(), m.tiles.TotalTiles())
	}

	err := m.backend.UpdateTileMapping(resource.handle, coord, m.heap, offset)
	if err != nil {
		return 0, errors.CombineErrors(
			memutils.BackendError(err, "binding tile %s of resource %d to heap tile %d", coord, resource.id, offset),
			m.tiles.Free(offset, 1),
		)
	}

	resource.mappings.Register(coord, offset)
	return offset, nil
}

// unmapTile reverses mapTile. When the unbind fails, the mapping stays registered and its
// heap tile stays allocated so the tables keep agreeing with the backend.
func (m *Manager) unmapTile(resource *ReservedResource, coord backend.TileCoordinate, offset int) error {
	err := m.backend.UpdateTileMapping(resource.handle, coord, nil, 0)
	if err != nil {
		m.touch(resource, coord)
		return memutils.BackendError(err, "unbinding tile %s of resource %d", coord, resource.id)
	}

	err = m.tiles.Free(offset, 1)
	if err != nil {
		return err
	}

	resource.mappings.Unregister(coord)
	if m.resident != nil {
		m.resident.Remove(residentTile{resource: resource.id, coord: coord})
	}
	return nil
}

func (m *Manager) touch(resource *ReservedResource, coord backend.TileCoordinate) {
	if m.resident != nil {
		m.resident.Add(residentTile{resource: resource.id, coord: coord}, nil)
	}
}

// EvictTile unbinds the tile at coord and returns its heap tile to the heap. Evicting a tile
// that is not resident returns an error marked with memutils.ErrNotMapped. If the backend
// fails to unbind the tile, nothing changes.
func (m *Manager) EvictTile(resource *ReservedResource, coord backend.TileCoordinate) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkResource(resource); err != nil {
		return err
	}
	if err := m.checkCoordinate(resource, coord); err != nil {
		return err
	}

	return m.evictLocked(resource, coord)
}

func (m *Manager) evictLocked(resource *ReservedResource, coord backend.TileCoordinate) error {
	offset, mapped := resource.mappings.Offset(coord)
	if !mapped {
		return errors.Mark(errors.Wrapf(memutils.ErrNotMapped, "evicting tile %s of resource %d", coord, resource.id), memutils.ErrInvalidArgument)
	}

	err := m.unmapTile(resource, coord, offset)
	if err != nil {
		return err
	}

	m.evictionCount++
	memutils.DebugValidate(m)

	m.logger.Debug("Manager::EvictTile",
		slog.Uint64("ID", uint64(resource.id)),
		slog.String("Tile", coord.String()),
		slog.Int("HeapOffset", offset),
	)
	return nil
}

// MarkUsed moves a resident tile to the most recently used position. It requires
// CreateTrackResidency.
func (m *Manager) MarkUsed(resource *ReservedResource, coord backend.TileCoordinate) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkResource(resource); err != nil {
		return err
	}
	if m.resident == nil {
		return errors.Wrap(memutils.ErrInvalidArgument, "residency tracking requires CreateTrackResidency")
	}
	if !resource.mappings.IsMapped(coord) {
		return errors.Mark(errors.Wrapf(memutils.ErrNotMapped, "marking tile %s of resource %d", coord, resource.id), memutils.ErrInvalidArgument)
	}

	m.touch(resource, coord)
	return nil
}

// EvictLeastRecentlyUsed evicts up to count resident tiles, least recently uploaded or marked
// first, and returns the number evicted. It requires CreateTrackResidency.
func (m *Manager) EvictLeastRecentlyUsed(count int) (evicted int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkAlive(); err != nil {
		return 0, err
	}
	if m.resident == nil {
		return 0, errors.Wrap(memutils.ErrInvalidArgument, "residency tracking requires CreateTrackResidency")
	}

	for evicted < count {
		key, _, ok := m.resident.GetOldest()
		if !ok {
			break
		}

		tile := key.(residentTile)
		resource, ok := m.resources.Get(tile.resource)
		if !ok {
			m.resident.Remove(key)
			continue
		}

		err = m.evictLocked(resource, tile.coord)
		if err != nil {
			return evicted, err
		}
		evicted++
	}

	m.logger.Debug("Manager::EvictLeastRecentlyUsed", slog.Int("Requested", count), slog.Int("Evicted", evicted))
	return evicted, nil
}

// Flush blocks until every submitted upload has completed
func (m *Manager) Flush(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.checkAlive(); err != nil {
		return err
	}

	m.logger.Debug("Manager::Flush")
	return m.ring.WaitIdle(ctx)
}

// DestroyResource releases every tile of resource back to the heap and destroys the backend
// resource. In-flight uploads are waited on first; if that wait fails nothing is released.
// Tiles are released without being unbound one at a time, since the whole resource goes away.
// Destroying a resource twice does nothing.
func (m *Manager) DestroyResource(ctx context.Context, resource *ReservedResource) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if resource != nil && resource.manager == m && resource.released {
		return nil
	}
	if err := m.checkResource(resource); err != nil {
		return err
	}

	err := m.ring.WaitIdle(ctx)
	if err != nil {
		return err
	}

	return m.releaseResource(resource)
}

func (m *Manager) releaseResource(resource *ReservedResource) error {
	var err error
	released := 0
	resource.mappings.Iterate(func(coord backend.TileCoordinate, heapOffset int) bool {
		err = errors.CombineErrors(err, m.tiles.Free(heapOffset, 1))
		if m.resident != nil {
			m.resident.Remove(residentTile{resource: resource.id, coord: coord})
		}
		released++
		return false
	})

	resource.mappings.Clear()
	resource.released = true
	m.resources.Delete(resource.id)

	if released > 0 {
		m.logger.Warn("Manager::DestroyResource released resident tiles",
			slog.Uint64("ID", uint64(resource.id)),
			slog.Int("TileCount", released),
		)
	}

	destroyErr := resource.handle.Destroy()
	if destroyErr != nil {
		err = errors.CombineErrors(err, memutils.BackendError(destroyErr, "destroying resource %d", resource.id))
	}

	memutils.DebugValidate(m)
	m.logger.Debug("Manager::DestroyResource", slog.Uint64("ID", uint64(resource.id)))
	return err
}

// Resource returns the live resource with the given ID
func (m *Manager) Resource(id ResourceID) (*ReservedResource, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.resources.Get(id)
}

// Resources returns every live resource in creation order
func (m *Manager) Resources() []*ReservedResource {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.sortedResources()
}

func (m *Manager) sortedResources() []*ReservedResource {
	resources := make([]*ReservedResource, 0, m.resources.Count())
	m.resources.Iter(func(id ResourceID, resource *ReservedResource) bool {
		resources = append(resources, resource)
		return false
	})

	sort.Slice(resources, func(i, j int) bool {
		return resources[i].id < resources[j].id
	})
	return resources
}

// Destroy waits for in-flight uploads, then destroys every resource, the upload ring and the
// heap. If the wait fails nothing is destroyed. Destroying a manager twice does nothing.
func (m *Manager) Destroy(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.destroyed {
		return nil
	}

	err := m.ring.WaitIdle(ctx)
	if err != nil {
		return err
	}

	for _, resource := range m.sortedResources() {
		err = errors.CombineErrors(err, m.releaseResource(resource))
	}

	if !m.tiles.IsEmpty() {
		m.logger.LogAttrs(ctx, slog.LevelError, "Manager::Destroy heap still has used tiles",
			slog.Int("UsedTiles", m.tiles.UsedTiles()),
		)
	}

	err = errors.CombineErrors(err, m.ring.Destroy(ctx))
	heapErr := m.heap.Destroy()
	if heapErr != nil {
		err = errors.CombineErrors(err, memutils.BackendError(heapErr, "destroying tile heap"))
	}

	m.destroyed = true
	m.logger.Debug("Manager::Destroy")
	return err
}
