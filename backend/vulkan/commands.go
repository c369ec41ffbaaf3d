package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

type commandState uint32

const (
	stateRecording commandState = iota
	stateClosed
	statePending
	stateExecuted
	stateDestroyed
)

var commandStateMapping = map[commandState]string{
	stateRecording: "Recording",
	stateClosed:    "Closed",
	statePending:   "Pending",
	stateExecuted:  "Executed",
	stateDestroyed: "Destroyed",
}

func (s commandState) String() string {
	return commandStateMapping[s]
}

// CommandContext owns a command pool and the one primary command buffer allocated from it
type CommandContext struct {
	backend *Backend
	pool    core1_0.CommandPool
	buffer  core1_0.CommandBuffer
	state   commandState

	// resources whose first use transitions them out of ImageLayoutUndefined
	transitions []*Resource
}

var _ backend.CommandContext = &CommandContext{}

func (c *CommandContext) begin() error {
	_, err := c.buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return memutils.BackendError(err, "beginning command buffer")
	}

	c.state = stateRecording
	return nil
}

// Reset resets the command pool, which reclaims the command buffer's memory, and begins
// recording again
func (c *CommandContext) Reset() error {
	switch c.currentState() {
	case stateDestroyed:
		return errors.Wrap(memutils.ErrDestroyed, "command context has been destroyed")
	case statePending:
		return errors.New("cannot reset a command context while its submission is pending")
	case stateRecording:
		_, err := c.buffer.End()
		if err != nil {
			return memutils.BackendError(err, "ending command buffer")
		}
	}

	_, err := c.pool.Reset(0)
	if err != nil {
		return memutils.BackendError(err, "resetting command pool")
	}

	c.transitions = c.transitions[:0]
	return c.begin()
}

// CopyBufferToTile records a buffer to image copy. The first copy into a resource also records
// a transition of every subresource from ImageLayoutUndefined to ImageLayoutGeneral.
func (c *CommandContext) CopyBufferToTile(src backend.TransferBuffer, footprint backend.Footprint, dst backend.Resource, region backend.CopyRegion) error {
	if c.state != stateRecording {
		return errors.Newf("cannot record a copy into a command context in state %s", c.state)
	}

	buffer, ok := src.(*TransferBuffer)
	if !ok || buffer.backend != c.backend {
		return errors.Wrapf(memutils.ErrInvalidArgument, "transfer buffer %T was not created by this backend", src)
	}
	if buffer.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "transfer buffer has been destroyed")
	}
	if footprint.Offset < 0 || footprint.Offset+footprint.SizeInBytes() > buffer.size {
		return errors.Wrapf(memutils.ErrInvalidArgument, "footprint %+v overruns a transfer buffer of %d bytes", footprint, buffer.size)
	}

	resource, err := c.backend.resource(dst)
	if err != nil {
		return err
	}

	copyRegion, err := bufferImageCopy(footprint, region, resource.layout.BytesPerTexel)
	if err != nil {
		return err
	}

	if c.needsTransition(resource) {
		err = c.buffer.CmdPipelineBarrier(core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, 0, nil, nil,
			[]core1_0.ImageMemoryBarrier{
				{
					DstAccessMask: core1_0.AccessTransferWrite,
					OldLayout:     core1_0.ImageLayoutUndefined,
					NewLayout:     core1_0.ImageLayoutGeneral,
					Image:         resource.image,
					SubresourceRange: core1_0.ImageSubresourceRange{
						AspectMask:     core1_0.ImageAspectColor,
						BaseMipLevel:   0,
						LevelCount:     resource.info.MipLevels,
						BaseArrayLayer: 0,
						LayerCount:     1,
					},
				},
			})
		if err != nil {
			return memutils.BackendError(err, "recording layout transition")
		}
		c.transitions = append(c.transitions, resource)
	}

	err = c.buffer.CmdCopyBufferToImage(buffer.buffer, resource.image, core1_0.ImageLayoutGeneral, []core1_0.BufferImageCopy{copyRegion})
	if err != nil {
		return memutils.BackendError(err, "recording tile copy")
	}

	err = c.buffer.CmdPipelineBarrier(core1_0.PipelineStageTransfer, core1_0.PipelineStageAllCommands, 0,
		[]core1_0.MemoryBarrier{
			{
				SrcAccessMask: core1_0.AccessTransferWrite,
				DstAccessMask: core1_0.AccessMemoryRead,
			},
		}, nil, nil)
	if err != nil {
		return memutils.BackendError(err, "recording copy barrier")
	}

	return nil
}

// currentState reads the state under the queue mutex, since retiring a submission moves it
// from pending to executed
func (c *CommandContext) currentState() commandState {
	c.backend.queueMutex.Lock()
	defer c.backend.queueMutex.Unlock()

	return c.state
}

func (c *CommandContext) needsTransition(resource *Resource) bool {
	c.backend.queueMutex.Lock()
	initialized := resource.layoutInitialized
	c.backend.queueMutex.Unlock()

	if initialized {
		return false
	}

	for _, pending := range c.transitions {
		if pending == resource {
			return false
		}
	}
	return true
}

func (c *CommandContext) Close() error {
	if c.state != stateRecording {
		return errors.Newf("cannot close a command context in state %s", c.state)
	}

	_, err := c.buffer.End()
	if err != nil {
		return memutils.BackendError(err, "ending command buffer")
	}

	c.state = stateClosed
	return nil
}

// Destroy destroys the command pool, freeing its command buffer
func (c *CommandContext) Destroy() error {
	switch c.currentState() {
	case stateDestroyed:
		return errors.Wrap(memutils.ErrDestroyed, "command context has already been destroyed")
	case statePending:
		return errors.New("cannot destroy a command context while its submission is pending")
	}

	c.pool.Destroy(c.backend.callbacks)
	c.state = stateDestroyed
	c.transitions = nil
	return nil
}
