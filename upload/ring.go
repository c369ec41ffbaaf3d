// Package upload stages tile data through a fixed pool of transfer buffers and command
// contexts. The pool bounds the number of uploads in flight: when every slot is waiting on
// the GPU, acquiring a slot blocks on the fence of the least recently submitted one.
package upload

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
	"golang.org/x/exp/slog"
)

const defaultSlotCount = 4

// CreateOptions contains optional settings for a Ring
type CreateOptions struct {
	// SlotCount is the number of uploads that may be in flight at once. It defaults to 4.
	SlotCount int
	// StagingBufferSize is the size of each slot's transfer buffer. It defaults to twice the
	// backend's tile size, which leaves room for row pitch padding.
	StagingBufferSize int
	// FenceTimeout bounds each wait for a slot to become free. Zero waits until the
	// caller's context ends.
	FenceTimeout time.Duration
}

// Ring is a rotating pool of upload slots. It is not safe for concurrent use: submissions to
// the backend queue must be serialized by the owner.
type Ring struct {
	logger  *slog.Logger
	backend backend.GraphicsBackend

	slots             []*Slot
	cursor            int
	stagingBufferSize int
	pitchAlignment    int
	fenceTimeout      time.Duration

	lastSubmitted backend.FenceValue
	submissions   uint64
	waits         uint64
	destroyed     bool
}

// NewRing creates every slot's transfer buffer and command context. The transfer buffers stay
// mapped for the lifetime of the ring.
func NewRing(logger *slog.Logger, graphics backend.GraphicsBackend, options CreateOptions) (ring *Ring, err error) {
	if options.SlotCount == 0 {
		options.SlotCount = defaultSlotCount
	}
	if options.StagingBufferSize == 0 {
		options.StagingBufferSize = 2 * graphics.TileSizeInBytes()
	}

	if options.SlotCount < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "ring slot count %d is invalid", options.SlotCount)
	}
	if options.StagingBufferSize < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "staging buffer size %d is invalid", options.StagingBufferSize)
	}
	if options.FenceTimeout < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "fence timeout %s is invalid", options.FenceTimeout)
	}

	pitchAlignment := graphics.TexturePitchAlignment()
	if pitchAlignment < 1 {
		return nil, errors.Wrapf(memutils.ErrInvalidArgument, "backend pitch alignment %d is invalid", pitchAlignment)
	}
	err = memutils.CheckPow2(pitchAlignment, "backend pitch alignment")
	if err != nil {
		return nil, err
	}

	ring = &Ring{
		logger:            logger,
		backend:           graphics,
		slots:             make([]*Slot, 0, options.SlotCount),
		stagingBufferSize: options.StagingBufferSize,
		pitchAlignment:    pitchAlignment,
		fenceTimeout:      options.FenceTimeout,
	}

	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, ring.destroySlots())
			ring = nil
		}
	}()

	for index := 0; index < options.SlotCount; index++ {
		slot, err := ring.createSlot(index)
		if err != nil {
			return ring, err
		}
		ring.slots = append(ring.slots, slot)
	}

	logger.Debug("Ring::NewRing",
		slog.Int("SlotCount", options.SlotCount),
		slog.Int("StagingBufferSize", options.StagingBufferSize),
		slog.Int("PitchAlignment", pitchAlignment),
	)
	return ring, nil
}

func (r *Ring) createSlot(index int) (slot *Slot, err error) {
	slot = &Slot{index: index}

	slot.staging, err = r.backend.CreateTransferBuffer(r.stagingBufferSize)
	if err != nil {
		return nil, memutils.BackendError(err, "creating staging buffer for ring slot %d", index)
	}

	slot.mapped, err = slot.staging.Map()
	if err != nil {
		return nil, errors.CombineErrors(
			memutils.BackendError(err, "mapping staging buffer for ring slot %d", index),
			slot.staging.Destroy(),
		)
	}

	slot.commands, err = r.backend.CreateCommandContext()
	if err != nil {
		return nil, errors.CombineErrors(
			memutils.BackendError(err, "creating command context for ring slot %d", index),
			errors.CombineErrors(slot.staging.Unmap(), slot.staging.Destroy()),
		)
	}

	return slot, nil
}

// SlotCount returns the number of slots in the ring
func (r *Ring) SlotCount() int { return len(r.slots) }

// Slot returns the slot at index
func (r *Ring) Slot(index int) *Slot { return r.slots[index] }

// StagingBufferSize returns the size of each slot's transfer buffer
func (r *Ring) StagingBufferSize() int { return r.stagingBufferSize }

// PitchAlignment returns the row pitch alignment used when filling slots
func (r *Ring) PitchAlignment() int { return r.pitchAlignment }

// LastSubmittedFenceValue returns the fence value of the ring's most recent submission
func (r *Ring) LastSubmittedFenceValue() backend.FenceValue { return r.lastSubmitted }

// SubmissionCount returns the number of copies the ring has submitted
func (r *Ring) SubmissionCount() uint64 { return r.submissions }

// BackpressureWaitCount returns the number of times AcquireSlot had to wait for the GPU
func (r *Ring) BackpressureWaitCount() uint64 { return r.waits }

// AcquireSlot returns a slot that is ready to be filled. Slots are scanned from a rotating
// cursor; the first one that is idle or whose submission has completed is taken. When no
// slot is free, AcquireSlot blocks on the fence of the least recently submitted slot.
//
// A wait that ends because ctx or the ring's fence timeout expired returns an error marked
// with memutils.ErrFenceTimeout and leaves every slot as it was.
func (r *Ring) AcquireSlot(ctx context.Context) (*Slot, error) {
	if r.destroyed {
		return nil, errors.Wrap(memutils.ErrDestroyed, "ring has been destroyed")
	}

	completed, err := r.backend.CompletedFenceValue()
	if err != nil {
		return nil, memutils.BackendError(err, "reading completed fence value")
	}

	var oldest *Slot
	for i := 0; i < len(r.slots); i++ {
		slot := r.slots[(r.cursor+i)%len(r.slots)]
		if slot.reusable(completed) {
			return r.claim(slot)
		}

		if slot.state == SlotSubmitted && (oldest == nil || slot.fence < oldest.fence) {
			oldest = slot
		}
	}

	if oldest == nil {
		return nil, errors.Newf("all %d ring slots are recording and none can be waited on", len(r.slots))
	}

	r.waits++
	r.logger.Debug("Ring::AcquireSlot waiting",
		slog.Int("Slot", oldest.index),
		slog.Uint64("Fence", uint64(oldest.fence)),
		slog.Uint64("Completed", uint64(completed)),
	)

	err = r.waitForFence(ctx, oldest.fence)
	if err != nil {
		return nil, err
	}

	return r.claim(oldest)
}

func (r *Ring) waitForFence(ctx context.Context, value backend.FenceValue) error {
	if r.fenceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fenceTimeout)
		defer cancel()
	}

	err := r.backend.WaitForFence(ctx, value)
	if err != nil {
		return memutils.FenceWaitError(err, uint64(value))
	}
	return nil
}

func (r *Ring) claim(slot *Slot) (*Slot, error) {
	err := slot.commands.Reset()
	if err != nil {
		return nil, memutils.BackendError(err, "resetting command context of ring slot %d", slot.index)
	}

	slot.state = SlotRecording
	slot.filled = false
	r.cursor = (slot.index + 1) % len(r.slots)

	r.logger.Debug("Ring::AcquireSlot", slog.Int("Slot", slot.index))
	return slot, nil
}

func (r *Ring) checkRecording(slot *Slot) error {
	if slot == nil || slot.index >= len(r.slots) || r.slots[slot.index] != slot {
		return errors.Wrap(memutils.ErrInvalidArgument, "slot does not belong to this ring")
	}
	if slot.state != SlotRecording {
		return errors.Wrapf(memutils.ErrInvalidArgument, "ring slot %d is %s, not Recording", slot.index, slot.state)
	}
	return nil
}

// FillSlot writes tightly-packed texel data for region into the slot's staging buffer. Rows
// are padded to the backend's pitch alignment.
func (r *Ring) FillSlot(slot *Slot, region backend.CopyRegion, bytesPerTexel int, data []byte) error {
	return r.FillSlotFrom(slot, region, bytesPerTexel, PackedSource(region, bytesPerTexel), data)
}

// FillSlotFrom stages region out of data laid out as source. It is used to stage the visible
// part of a full tile that straddles the edge of its texture.
func (r *Ring) FillSlotFrom(slot *Slot, region backend.CopyRegion, bytesPerTexel int, source Source, data []byte) error {
	err := r.checkRecording(slot)
	if err != nil {
		return err
	}

	footprint := ComputeFootprint(region, bytesPerTexel, r.pitchAlignment)
	err = restride(slot.mapped, footprint, source, data)
	if err != nil {
		return err
	}

	slot.footprint = footprint
	slot.filled = true
	return nil
}

// SubmitCopy records a copy of the slot's staging data into region of dst and submits it. The
// returned fence value is stored on the slot. On failure the slot returns to Idle.
func (r *Ring) SubmitCopy(slot *Slot, dst backend.Resource, region backend.CopyRegion) (fence backend.FenceValue, err error) {
	err = r.checkRecording(slot)
	if err != nil {
		return 0, err
	}
	if !slot.filled {
		return 0, errors.Wrapf(memutils.ErrInvalidArgument, "ring slot %d has not been filled", slot.index)
	}

	defer func() {
		if err != nil {
			r.Release(slot)
		}
	}()

	err = slot.commands.CopyBufferToTile(slot.staging, slot.footprint, dst, region)
	if err != nil {
		return 0, memutils.BackendError(err, "recording copy to subresource %d at (%d, %d, %d)", region.Subresource, region.X, region.Y, region.Z)
	}

	err = slot.commands.Close()
	if err != nil {
		return 0, memutils.BackendError(err, "closing command context of ring slot %d", slot.index)
	}

	fence, err = r.backend.Submit(slot.commands)
	if err != nil {
		return 0, memutils.BackendError(err, "submitting ring slot %d", slot.index)
	}

	// The copy is queued from here on, so the slot stays Submitted even when the fence is bad
	slot.fence = fence
	slot.state = SlotSubmitted
	if fence <= r.lastSubmitted {
		return 0, errors.Mark(errors.Newf("backend returned fence value %d after %d", fence, r.lastSubmitted), memutils.ErrBackend)
	}

	r.lastSubmitted = fence
	r.submissions++
	memutils.DebugValidate(r)

	r.logger.Debug("Ring::SubmitCopy", slog.Int("Slot", slot.index), slog.Uint64("Fence", uint64(fence)))
	return fence, nil
}

// Release returns a Recording slot to Idle without submitting it. The slot's last fence value
// is kept. Releasing a slot in any other state does nothing.
func (r *Ring) Release(slot *Slot) {
	if slot == nil || slot.state != SlotRecording {
		return
	}

	slot.state = SlotIdle
	slot.filled = false
	r.logger.Debug("Ring::Release", slog.Int("Slot", slot.index))
}

// InFlightCount returns the number of submitted slots whose fence has not been reached
func (r *Ring) InFlightCount() (int, error) {
	completed, err := r.backend.CompletedFenceValue()
	if err != nil {
		return 0, memutils.BackendError(err, "reading completed fence value")
	}

	count := 0
	for _, slot := range r.slots {
		if slot.state == SlotSubmitted && slot.fence > completed {
			count++
		}
	}
	return count, nil
}

// WaitIdle blocks until every submitted slot has completed
func (r *Ring) WaitIdle(ctx context.Context) error {
	if r.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "ring has been destroyed")
	}

	var latest backend.FenceValue
	for _, slot := range r.slots {
		if slot.state == SlotSubmitted && slot.fence > latest {
			latest = slot.fence
		}
	}

	if latest > 0 {
		r.logger.Debug("Ring::WaitIdle", slog.Uint64("Fence", uint64(latest)))

		err := r.waitForFence(ctx, latest)
		if err != nil {
			return err
		}
	}

	for _, slot := range r.slots {
		if slot.state == SlotSubmitted {
			slot.state = SlotIdle
		}
	}
	return nil
}

// Destroy waits for every in-flight upload, then unmaps and destroys the ring's transfer
// buffers and command contexts. If the wait fails nothing is destroyed.
func (r *Ring) Destroy(ctx context.Context) error {
	if r.destroyed {
		return nil
	}

	err := r.WaitIdle(ctx)
	if err != nil {
		return err
	}

	r.destroyed = true
	r.logger.Debug("Ring::Destroy", slog.Int("SlotCount", len(r.slots)))
	return r.destroySlots()
}

func (r *Ring) destroySlots() error {
	var err error
	for _, slot := range r.slots {
		err = errors.CombineErrors(err, slot.commands.Destroy())
		err = errors.CombineErrors(err, slot.staging.Unmap())
		err = errors.CombineErrors(err, slot.staging.Destroy())
		slot.mapped = nil
	}
	r.slots = r.slots[:0]
	return err
}

// PrintDetailedMap writes the state of every slot into json
func (r *Ring) PrintDetailedMap(json *jwriter.ObjectState) {
	json.Name("SlotCount").Int(len(r.slots))
	json.Name("StagingBufferSize").Int(r.stagingBufferSize)
	json.Name("LastSubmittedFence").Float64(float64(r.lastSubmitted))
	json.Name("Submissions").Float64(float64(r.submissions))
	json.Name("BackpressureWaits").Float64(float64(r.waits))

	slotArray := json.Name("Slots").Array()
	defer slotArray.End()

	for _, slot := range r.slots {
		slotObj := slotArray.Object()
		slotObj.Name("Index").Int(slot.index)
		slotObj.Name("State").String(slot.state.String())
		slotObj.Name("Fence").Float64(float64(slot.fence))
		slotObj.End()
	}
}

// Validate checks that slot indices match their positions and that every submitted slot
// carries a distinct fence value no later than the ring's last submission
func (r *Ring) Validate() error {
	fences := make(map[backend.FenceValue]int, len(r.slots))

	for position, slot := range r.slots {
		if slot.index != position {
			return errors.Newf("ring slot at position %d has index %d", position, slot.index)
		}
		if slot.fence > r.lastSubmitted {
			return errors.Newf("ring slot %d has fence value %d after the last submission %d", position, slot.fence, r.lastSubmitted)
		}
		if slot.state != SlotSubmitted {
			continue
		}

		if slot.fence == 0 {
			return errors.Newf("ring slot %d is submitted without a fence value", position)
		}
		if other, taken := fences[slot.fence]; taken {
			return errors.Newf("ring slots %d and %d share fence value %d", other, position, slot.fence)
		}
		fences[slot.fence] = position
	}

	return nil
}
