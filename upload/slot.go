package upload

import (
	"github.com/vkngwrapper/sparse/backend"
)

// SlotState is the position of a ring slot in its Idle -> Recording -> Submitted cycle
type SlotState uint32

const (
	// SlotIdle slots have no outstanding work and may be acquired
	SlotIdle SlotState = iota
	// SlotRecording slots have been acquired and are being filled and recorded
	SlotRecording
	// SlotSubmitted slots have been submitted and may be reused once their fence is reached
	SlotSubmitted
)

var slotStateMapping = map[SlotState]string{
	SlotIdle:      "Idle",
	SlotRecording: "Recording",
	SlotSubmitted: "Submitted",
}

func (s SlotState) String() string {
	return slotStateMapping[s]
}

// Slot is one staging buffer and command context pair of a Ring. A slot acquired from the ring
// is exclusively owned by the caller until it is submitted or released.
type Slot struct {
	index    int
	state    SlotState
	staging  backend.TransferBuffer
	mapped   []byte
	commands backend.CommandContext

	fence     backend.FenceValue
	footprint backend.Footprint
	filled    bool
}

// Index returns the slot's position in the ring
func (s *Slot) Index() int { return s.index }

// State returns the slot's current state. A Submitted slot whose fence has been reached
// reports Submitted until the ring next observes the completion.
func (s *Slot) State() SlotState { return s.state }

// FenceValue returns the fence value of the slot's most recent submission, or 0 if it has
// never been submitted
func (s *Slot) FenceValue() backend.FenceValue { return s.fence }

// Footprint returns the staging layout written by the most recent FillSlot
func (s *Slot) Footprint() backend.Footprint { return s.footprint }

func (s *Slot) reusable(completed backend.FenceValue) bool {
	switch s.state {
	case SlotIdle:
		return true
	case SlotSubmitted:
		return s.fence <= completed
	default:
		return false
	}
}
