package upload

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/backend/mocks"
	"github.com/vkngwrapper/sparse/backend/software"
	"github.com/vkngwrapper/sparse/memutils"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

var testInfo = backend.ResourceCreateInfo{
	Width:     256,
	Height:    256,
	Depth:     1,
	MipLevels: 2,
	Format:    backend.FormatR8G8B8A8Unorm,
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard))
}

type ringFixture struct {
	backend  *software.Backend
	ring     *Ring
	resource backend.Resource
	layout   backend.TileLayout
}

func newRingFixture(t *testing.T, backendOptions software.CreateOptions, ringOptions CreateOptions) *ringFixture {
	b, err := software.New(testLogger(), backendOptions)
	require.NoError(t, err)

	ring, err := NewRing(testLogger(), b, ringOptions)
	require.NoError(t, err)

	res, err := b.CreateReservedResource(testInfo)
	require.NoError(t, err)
	layout, err := b.QueryTileLayout(res)
	require.NoError(t, err)

	return &ringFixture{
		backend:  b,
		ring:     ring,
		resource: res,
		layout:   layout,
	}
}

func (f *ringFixture) upload(t *testing.T, coord backend.TileCoordinate, fill byte) (*Slot, backend.FenceValue) {
	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	region := backend.TileRegion(testInfo, f.layout, coord)
	data := make([]byte, PackedSize(region, f.layout.BytesPerTexel))
	for i := range data {
		data[i] = fill
	}
	require.NoError(t, f.ring.FillSlot(slot, region, f.layout.BytesPerTexel, data))

	fence, err := f.ring.SubmitCopy(slot, f.resource, region)
	require.NoError(t, err)
	return slot, fence
}

func TestNewRing_Defaults(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{})

	require.Equal(t, 4, f.ring.SlotCount())
	require.Equal(t, 2*backend.StandardTileSize, f.ring.StagingBufferSize())
	require.Equal(t, 256, f.ring.PitchAlignment())
	for i := 0; i < f.ring.SlotCount(); i++ {
		require.Equal(t, SlotIdle, f.ring.Slot(i).State())
		require.Equal(t, backend.FenceValue(0), f.ring.Slot(i).FenceValue())
	}

	// 4 buffers, 4 command contexts and the test resource
	require.Equal(t, 9, f.backend.LiveObjectCount())
	require.NoError(t, f.ring.Destroy(context.Background()))
	require.Equal(t, 1, f.backend.LiveObjectCount())

	_, err := f.ring.AcquireSlot(context.Background())
	require.True(t, errors.Is(err, memutils.ErrDestroyed))
}

func TestNewRing_RollsBackOnFailure(t *testing.T) {
	b, err := software.New(testLogger(), software.CreateOptions{})
	require.NoError(t, err)

	b.FailNext(software.OperationCreateCommandContext)
	ring, err := NewRing(testLogger(), b, CreateOptions{SlotCount: 3})
	require.Nil(t, ring)
	require.True(t, errors.Is(err, memutils.ErrBackend))
	require.Equal(t, 0, b.LiveObjectCount())

	_, err = NewRing(testLogger(), b, CreateOptions{SlotCount: -1})
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
}

func TestAcquireSlot_Rotates(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 3})

	var indices []int
	var fences []backend.FenceValue
	for i := 0; i < 7; i++ {
		slot, fence := f.upload(t, backend.TileCoordinate{}, byte(i))
		indices = append(indices, slot.Index())
		fences = append(fences, fence)
	}

	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, indices)
	for i := 1; i < len(fences); i++ {
		require.Greater(t, fences[i], fences[i-1])
	}
	require.Equal(t, uint64(7), f.ring.SubmissionCount())
	require.Equal(t, uint64(0), f.ring.BackpressureWaitCount())
	require.Equal(t, fences[6], f.ring.LastSubmittedFenceValue())
	require.NoError(t, f.ring.Validate())
}

func TestRing_Validate(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{ManualCompletion: true}, CreateOptions{SlotCount: 3})

	f.upload(t, backend.TileCoordinate{}, 1)
	f.upload(t, backend.TileCoordinate{X: 1}, 2)
	require.NoError(t, f.ring.Validate())
	require.NoError(t, memutils.ValidateAll(f.ring))

	f.ring.Slot(1).fence = f.ring.Slot(0).fence
	require.Error(t, f.ring.Validate())

	f.ring.Slot(1).fence = f.ring.LastSubmittedFenceValue() + 1
	require.Error(t, f.ring.Validate())
}

func TestAcquireSlot_BlocksUntilCompletion(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{ManualCompletion: true}, CreateOptions{SlotCount: 2})

	first, firstFence := f.upload(t, backend.TileCoordinate{}, 1)
	_, _ = f.upload(t, backend.TileCoordinate{X: 1}, 2)

	inFlight, err := f.ring.InFlightCount()
	require.NoError(t, err)
	require.Equal(t, 2, inFlight)

	acquired := make(chan *Slot, 1)
	failed := make(chan error, 1)
	go func() {
		slot, err := f.ring.AcquireSlot(context.Background())
		if err != nil {
			failed <- err
			return
		}
		acquired <- slot
	}()

	select {
	case <-acquired:
		require.FailNow(t, "slot acquired before any submission completed")
	case err := <-failed:
		require.NoError(t, err)
	case <-time.After(50 * time.Millisecond):
	}

	f.backend.CompleteThrough(firstFence)

	select {
	case slot := <-acquired:
		require.Same(t, first, slot)
		require.Equal(t, SlotRecording, slot.State())
	case err := <-failed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "slot was not acquired after completion")
	}

	require.Equal(t, uint64(1), f.ring.BackpressureWaitCount())
}

func TestAcquireSlot_TimeoutLeavesStateUnchanged(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{ManualCompletion: true}, CreateOptions{SlotCount: 1, FenceTimeout: 10 * time.Millisecond})

	slot, fence := f.upload(t, backend.TileCoordinate{}, 1)

	_, err := f.ring.AcquireSlot(context.Background())
	require.True(t, errors.Is(err, memutils.ErrFenceTimeout))
	require.Equal(t, SlotSubmitted, slot.State())
	require.Equal(t, fence, slot.FenceValue())
	require.Equal(t, fence, f.ring.LastSubmittedFenceValue())

	inFlight, err := f.ring.InFlightCount()
	require.NoError(t, err)
	require.Equal(t, 1, inFlight)

	f.backend.CompleteAll()
	acquired, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)
	require.Same(t, slot, acquired)
}

func TestAcquireSlot_ContextCancelled(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{ManualCompletion: true}, CreateOptions{SlotCount: 1})

	f.upload(t, backend.TileCoordinate{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ring.AcquireSlot(ctx)
	require.True(t, errors.Is(err, memutils.ErrFenceTimeout))
	require.True(t, errors.Is(err, context.Canceled))
}

func TestAcquireSlot_AllRecording(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 1})

	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	_, err = f.ring.AcquireSlot(context.Background())
	require.Error(t, err)

	f.ring.Release(slot)
	require.Equal(t, SlotIdle, slot.State())

	_, err = f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)
}

func TestFillSlot_Restride(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 1})

	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	region := backend.CopyRegion{Width: 10, Height: 3, Depth: 2}
	data := make([]byte, PackedSize(region, 4))
	for i := range data {
		data[i] = byte(i%251 + 1)
	}

	require.NoError(t, f.ring.FillSlot(slot, region, 4, data))

	footprint := slot.Footprint()
	require.Equal(t, 40, footprint.RowSize)
	require.Equal(t, 256, footprint.RowPitch)
	require.Equal(t, 3, footprint.Rows)
	require.Equal(t, 768, footprint.SlicePitch)
	require.Equal(t, 2, footprint.Slices)

	for z := 0; z < 2; z++ {
		for y := 0; y < 3; y++ {
			srcRow := (z*3 + y) * 40
			dstRow := z*768 + y*256
			require.Equal(t, data[srcRow:srcRow+40], slot.mapped[dstRow:dstRow+40])
		}
	}
}

func TestFillSlot_Invalid(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 1, StagingBufferSize: 1024})

	region := backend.CopyRegion{Width: 4, Height: 4, Depth: 1}

	err := f.ring.FillSlot(f.ring.Slot(0), region, 4, make([]byte, 64))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	err = f.ring.FillSlot(slot, region, 4, make([]byte, 63))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	// 4 rows padded to 256 bytes fit, 5 do not
	require.NoError(t, f.ring.FillSlot(slot, region, 4, make([]byte, 64)))
	tall := backend.CopyRegion{Width: 4, Height: 5, Depth: 1}
	err = f.ring.FillSlot(slot, tall, 4, make([]byte, 80))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	_, err = f.ring.SubmitCopy(f.ring.Slot(0), f.resource, region)
	require.NoError(t, err)
}

func TestFillSlotFrom_ClipsFullTile(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 1})

	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	// A 72x22 corner of a 128x128 RGBA8 tile, staged from the whole tile
	source := TileSource(f.layout)
	require.Equal(t, 512, source.RowPitch)
	require.Equal(t, 512*128, source.SlicePitch)
	require.Equal(t, f.layout.TileSizeInBytes(), source.SizeInBytes())

	data := make([]byte, source.SizeInBytes())
	for i := range data {
		data[i] = byte(i/512*3 + i%512)
	}

	region := backend.CopyRegion{X: 128, Y: 128, Width: 72, Height: 22, Depth: 1}
	require.NoError(t, f.ring.FillSlotFrom(slot, region, 4, source, data))

	footprint := slot.Footprint()
	require.Equal(t, 288, footprint.RowSize)
	require.Equal(t, 512, footprint.RowPitch)
	require.Equal(t, 22, footprint.Rows)
	for y := 0; y < 22; y++ {
		require.Equal(t, data[y*512:y*512+288], slot.mapped[y*512:y*512+288])
	}

	// The packed size of the visible texels is not a whole tile
	err = f.ring.FillSlotFrom(slot, region, 4, source, make([]byte, 72*22*4))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))

	// A source whose rows are shorter than the region cannot be staged
	narrow := PackedSource(backend.CopyRegion{Width: 64, Height: 22, Depth: 1}, 4)
	err = f.ring.FillSlotFrom(slot, region, 4, narrow, make([]byte, narrow.SizeInBytes()))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
}

func TestSubmitCopy_Unfilled(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 1})

	slot, err := f.ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	_, err = f.ring.SubmitCopy(slot, f.resource, backend.TileRegion(testInfo, f.layout, backend.TileCoordinate{}))
	require.True(t, errors.Is(err, memutils.ErrInvalidArgument))
	require.Equal(t, SlotRecording, slot.State())
}

func TestSubmitCopy_DataReachesTile(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{})

	heap, err := f.backend.CreateMemoryHeap(f.backend.TileSizeInBytes())
	require.NoError(t, err)

	coord := backend.TileCoordinate{Subresource: 1}
	require.NoError(t, f.backend.UpdateTileMapping(f.resource, coord, heap, 0))

	f.upload(t, coord, 0x5A)

	data, err := f.resource.(*software.Resource).ReadTile(coord)
	require.NoError(t, err)
	require.Len(t, data, f.layout.TileSizeInBytes())
	for _, value := range data {
		require.Equal(t, byte(0x5A), value)
	}
}

func TestSubmitCopy_BackendFailureReleasesSlot(t *testing.T) {
	ctrl := gomock.NewController(t)

	graphics := mocks.NewMockGraphicsBackend(ctrl)
	buffer := mocks.NewMockTransferBuffer(ctrl)
	commands := mocks.NewMockCommandContext(ctrl)
	resource := mocks.NewMockResource(ctrl)

	graphics.EXPECT().TileSizeInBytes().Return(1024).AnyTimes()
	graphics.EXPECT().TexturePitchAlignment().Return(16).AnyTimes()
	graphics.EXPECT().CreateTransferBuffer(2048).Return(buffer, nil)
	buffer.EXPECT().Map().Return(make([]byte, 2048), nil)
	graphics.EXPECT().CreateCommandContext().Return(commands, nil)

	ring, err := NewRing(testLogger(), graphics, CreateOptions{SlotCount: 1})
	require.NoError(t, err)

	graphics.EXPECT().CompletedFenceValue().Return(backend.FenceValue(0), nil)
	commands.EXPECT().Reset().Return(nil)

	slot, err := ring.AcquireSlot(context.Background())
	require.NoError(t, err)

	region := backend.CopyRegion{Width: 4, Height: 4, Depth: 1}
	require.NoError(t, ring.FillSlot(slot, region, 4, make([]byte, 64)))

	commands.EXPECT().CopyBufferToTile(buffer, slot.Footprint(), resource, region).Return(nil)
	commands.EXPECT().Close().Return(nil)
	graphics.EXPECT().Submit(commands).Return(backend.FenceValue(0), errors.New("device lost"))

	_, err = ring.SubmitCopy(slot, resource, region)
	require.True(t, errors.Is(err, memutils.ErrBackend))
	require.Equal(t, SlotIdle, slot.State())
	require.Equal(t, backend.FenceValue(0), slot.FenceValue())
	require.Equal(t, uint64(0), ring.SubmissionCount())

	commands.EXPECT().Destroy().Return(nil)
	buffer.EXPECT().Unmap().Return(nil)
	buffer.EXPECT().Destroy().Return(nil)
	require.NoError(t, ring.Destroy(context.Background()))
}

func TestSubmitCopy_NonMonotonicFence(t *testing.T) {
	ctrl := gomock.NewController(t)

	graphics := mocks.NewMockGraphicsBackend(ctrl)
	buffer := mocks.NewMockTransferBuffer(ctrl)
	commands := mocks.NewMockCommandContext(ctrl)
	resource := mocks.NewMockResource(ctrl)

	graphics.EXPECT().TileSizeInBytes().Return(1024).AnyTimes()
	graphics.EXPECT().TexturePitchAlignment().Return(1).AnyTimes()
	graphics.EXPECT().CreateTransferBuffer(2048).Return(buffer, nil)
	buffer.EXPECT().Map().Return(make([]byte, 2048), nil)
	graphics.EXPECT().CreateCommandContext().Return(commands, nil)

	ring, err := NewRing(testLogger(), graphics, CreateOptions{SlotCount: 1})
	require.NoError(t, err)

	region := backend.CopyRegion{Width: 1, Height: 1, Depth: 1}
	submit := func(completed, returned backend.FenceValue) (*Slot, error) {
		graphics.EXPECT().CompletedFenceValue().Return(completed, nil)
		commands.EXPECT().Reset().Return(nil)

		slot, err := ring.AcquireSlot(context.Background())
		require.NoError(t, err)
		require.NoError(t, ring.FillSlot(slot, region, 4, make([]byte, 4)))

		commands.EXPECT().CopyBufferToTile(buffer, gomock.Any(), resource, region).Return(nil)
		commands.EXPECT().Close().Return(nil)
		graphics.EXPECT().Submit(commands).Return(returned, nil)

		_, err = ring.SubmitCopy(slot, resource, region)
		return slot, err
	}

	slot, err := submit(0, 5)
	require.NoError(t, err)
	require.Equal(t, backend.FenceValue(5), slot.FenceValue())

	// The backend accepted the copy, so the slot must not go back to Idle while the copy may
	// still be reading its staging buffer
	slot, err = submit(5, 3)
	require.True(t, errors.Is(err, memutils.ErrBackend))
	require.Equal(t, SlotSubmitted, slot.State())
	require.Equal(t, backend.FenceValue(3), slot.FenceValue())
	require.Equal(t, backend.FenceValue(5), ring.LastSubmittedFenceValue())
	require.Equal(t, uint64(1), ring.SubmissionCount())

	// Release leaves a submitted slot alone
	ring.Release(slot)
	require.Equal(t, SlotSubmitted, slot.State())
}

func TestWaitIdle(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{ManualCompletion: true}, CreateOptions{SlotCount: 2})

	f.upload(t, backend.TileCoordinate{}, 1)
	f.upload(t, backend.TileCoordinate{X: 1}, 2)

	done := make(chan error, 1)
	go func() {
		done <- f.ring.WaitIdle(context.Background())
	}()

	f.backend.CompleteAll()
	require.NoError(t, <-done)

	for i := 0; i < f.ring.SlotCount(); i++ {
		require.Equal(t, SlotIdle, f.ring.Slot(i).State())
	}

	inFlight, err := f.ring.InFlightCount()
	require.NoError(t, err)
	require.Equal(t, 0, inFlight)
}

func TestRing_PrintDetailedMap(t *testing.T) {
	f := newRingFixture(t, software.CreateOptions{}, CreateOptions{SlotCount: 2})
	f.upload(t, backend.TileCoordinate{}, 1)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	f.ring.PrintDetailedMap(&obj)
	obj.End()
	require.NoError(t, writer.Error())

	require.JSONEq(t, `{
		"SlotCount": 2,
		"StagingBufferSize": 131072,
		"LastSubmittedFence": 1,
		"Submissions": 1,
		"BackpressureWaits": 0,
		"Slots": [
			{"Index": 0, "State": "Submitted", "Fence": 1},
			{"Index": 1, "State": "Idle", "Fence": 0}
		]
	}`, string(writer.Bytes()))
}

func TestComputeFootprint(t *testing.T) {
	region := backend.CopyRegion{Width: 128, Height: 128, Depth: 1}
	footprint := ComputeFootprint(region, 4, 256)
	require.Equal(t, backend.Footprint{
		RowSize:    512,
		RowPitch:   512,
		Rows:       128,
		SlicePitch: 512 * 128,
		Slices:     1,
	}, footprint)
	require.Equal(t, backend.StandardTileSize, footprint.SizeInBytes())

	edge := backend.CopyRegion{Width: 3, Height: 2, Depth: 1}
	footprint = ComputeFootprint(edge, 2, 4)
	require.Equal(t, 6, footprint.RowSize)
	require.Equal(t, 8, footprint.RowPitch)
	require.Equal(t, 16, footprint.SizeInBytes())
}
