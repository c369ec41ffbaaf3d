package software

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
	"golang.org/x/exp/slog"
)

type commandState uint32

const (
	commandStateRecording commandState = iota
	commandStateClosed
	commandStatePending
	commandStateExecuted
	commandStateDestroyed
)

var commandStateMapping = map[commandState]string{
	commandStateRecording: "Recording",
	commandStateClosed:    "Closed",
	commandStatePending:   "Pending",
	commandStateExecuted:  "Executed",
	commandStateDestroyed: "Destroyed",
}

func (s commandState) String() string {
	return commandStateMapping[s]
}

type copyCommand struct {
	src       *TransferBuffer
	footprint backend.Footprint
	dst       *Resource
	region    backend.CopyRegion
}

// CommandContext records tile copies that are executed when their submission completes
type CommandContext struct {
	backend *Backend
	state   commandState
	copies  []copyCommand
}

var _ backend.CommandContext = &CommandContext{}

func (c *CommandContext) Reset() error {
	switch c.state {
	case commandStatePending:
		return errors.New("cannot reset a command context while its submission is pending")
	case commandStateDestroyed:
		return errors.Wrap(memutils.ErrDestroyed, "command context has been destroyed")
	}

	c.state = commandStateRecording
	c.copies = c.copies[:0]
	return nil
}

func (c *CommandContext) CopyBufferToTile(src backend.TransferBuffer, footprint backend.Footprint, dst backend.Resource, region backend.CopyRegion) error {
	if err := c.backend.takeFailure(OperationCopy); err != nil {
		return err
	}
	if c.state != commandStateRecording {
		return errors.Newf("cannot record a copy into a command context in state %s", c.state)
	}

	buffer, ok := src.(*TransferBuffer)
	if !ok || buffer.backend != c.backend {
		return errors.Wrapf(memutils.ErrInvalidArgument, "transfer buffer %T was not created by this backend", src)
	}
	if buffer.destroyed {
		return errors.Wrap(memutils.ErrDestroyed, "transfer buffer has been destroyed")
	}

	res, err := c.backend.resource(dst)
	if err != nil {
		return err
	}

	layout := res.layout
	if region.Subresource < 0 || region.Subresource >= layout.SubresourceCount() {
		return errors.Wrapf(memutils.ErrInvalidArgument, "subresource %d is outside of the resource", region.Subresource)
	}
	if region.Width < 1 || region.Height < 1 || region.Depth < 1 ||
		region.X%layout.TileWidth != 0 || region.Y%layout.TileHeight != 0 || region.Z%layout.TileDepth != 0 ||
		region.Width > layout.TileWidth || region.Height > layout.TileHeight || region.Depth > layout.TileDepth {
		return errors.Wrapf(memutils.ErrInvalidArgument, "copy region %+v does not lie within a single tile", region)
	}

	if footprint.RowSize < region.Width*layout.BytesPerTexel || footprint.RowPitch < footprint.RowSize ||
		footprint.Rows < region.Height || footprint.Slices < region.Depth ||
		footprint.SlicePitch < footprint.RowPitch*footprint.Rows {
		return errors.Wrapf(memutils.ErrInvalidArgument, "footprint %+v cannot hold copy region %+v", footprint, region)
	}
	if footprint.Offset < 0 || footprint.Offset+footprint.SizeInBytes() > len(buffer.data) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "footprint %+v overruns a transfer buffer of %d bytes", footprint, len(buffer.data))
	}

	c.copies = append(c.copies, copyCommand{
		src:       buffer,
		footprint: footprint,
		dst:       res,
		region:    region,
	})
	return nil
}

func (c *CommandContext) Close() error {
	if c.state != commandStateRecording {
		return errors.Newf("cannot close a command context in state %s", c.state)
	}

	c.state = commandStateClosed
	return nil
}

func (c *CommandContext) Destroy() error {
	if c.state == commandStateDestroyed {
		return errors.Wrap(memutils.ErrDestroyed, "command context has already been destroyed")
	}
	if c.state == commandStatePending {
		return errors.New("cannot destroy a command context while its submission is pending")
	}

	c.state = commandStateDestroyed
	c.copies = nil
	c.backend.trackObject(-1)
	return nil
}

// execute runs with the backend mutex held
func (c *CommandContext) execute(logger *slog.Logger) {
	for _, command := range c.copies {
		executeCopy(logger, command)
	}
	c.state = commandStateExecuted
}

func executeCopy(logger *slog.Logger, command copyCommand) {
	layout := command.dst.layout
	region := command.region
	coord := backend.TileCoordinate{
		Subresource: region.Subresource,
		X:           region.X / layout.TileWidth,
		Y:           region.Y / layout.TileHeight,
		Z:           region.Z / layout.TileDepth,
	}

	binding, bound := command.dst.bindings.Get(coord)
	if command.dst.destroyed || command.src.destroyed || !bound || binding.heap.destroyed {
		// Writes to unbound tiles are discarded
		logger.Debug("CommandContext::execute dropped copy", slog.String("Tile", coord.String()))
		return
	}

	tile := binding.heap.Tile(binding.offset)
	footprint := command.footprint
	rowBytes := region.Width * layout.BytesPerTexel

	for z := 0; z < region.Depth; z++ {
		for y := 0; y < region.Height; y++ {
			srcOffset := footprint.Offset + z*footprint.SlicePitch + y*footprint.RowPitch
			dstOffset := ((z*layout.TileHeight + y) * layout.TileWidth) * layout.BytesPerTexel
			copy(tile[dstOffset:dstOffset+rowBytes], command.src.data[srcOffset:srcOffset+rowBytes])
		}
	}
}
