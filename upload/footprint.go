package upload

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

// ComputeFootprint returns the staging layout of region for a texel size of bytesPerTexel,
// with each row padded to pitchAlignment
func ComputeFootprint(region backend.CopyRegion, bytesPerTexel int, pitchAlignment int) backend.Footprint {
	memutils.DebugCheckPow2(pitchAlignment, "pitchAlignment")

	rowSize := region.Width * bytesPerTexel
	rowPitch := memutils.AlignUp(rowSize, uint(pitchAlignment))

	return backend.Footprint{
		Offset:     0,
		RowSize:    rowSize,
		RowPitch:   rowPitch,
		Rows:       region.Height,
		SlicePitch: rowPitch * region.Height,
		Slices:     region.Depth,
	}
}

// PackedSize returns the size of region's texels when tightly packed
func PackedSize(region backend.CopyRegion, bytesPerTexel int) int {
	return region.Width * region.Height * region.Depth * bytesPerTexel
}

// Source describes the layout of texel data handed to the ring. Its rows and slices may be
// longer than the region being staged, in which case only the leading texels of each row and
// the leading rows of each slice are copied.
type Source struct {
	RowPitch   int
	SlicePitch int
	Slices     int
}

// SizeInBytes is the number of bytes of data the source layout describes
func (s Source) SizeInBytes() int {
	return s.SlicePitch * s.Slices
}

// PackedSource is the layout of region's texels when tightly packed
func PackedSource(region backend.CopyRegion, bytesPerTexel int) Source {
	rowSize := region.Width * bytesPerTexel
	return Source{
		RowPitch:   rowSize,
		SlicePitch: rowSize * region.Height,
		Slices:     region.Depth,
	}
}

// TileSource is the layout of one whole, unclipped tile of layout when tightly packed
func TileSource(layout backend.TileLayout) Source {
	rowSize := layout.RowSizeInBytes()
	return Source{
		RowPitch:   rowSize,
		SlicePitch: rowSize * layout.TileHeight,
		Slices:     layout.TileDepth,
	}
}

// restride copies the rows of src, laid out as source, into dst laid out as footprint
func restride(dst []byte, footprint backend.Footprint, source Source, src []byte) error {
	if len(src) != source.SizeInBytes() {
		return errors.Wrapf(memutils.ErrInvalidArgument, "expected %d bytes of texel data but received %d", source.SizeInBytes(), len(src))
	}
	if source.RowPitch < footprint.RowSize || source.SlicePitch < source.RowPitch*footprint.Rows || source.Slices < footprint.Slices {
		return errors.Wrapf(memutils.ErrInvalidArgument, "source layout %+v cannot hold staging layout %+v", source, footprint)
	}
	if footprint.Offset+footprint.SizeInBytes() > len(dst) {
		return errors.Wrapf(memutils.ErrInvalidArgument, "staging layout needs %d bytes but the staging buffer holds %d", footprint.Offset+footprint.SizeInBytes(), len(dst))
	}

	if source.RowPitch == footprint.RowPitch && source.SlicePitch == footprint.SlicePitch {
		copy(dst[footprint.Offset:], src[:footprint.SizeInBytes()])
		return nil
	}

	for slice := 0; slice < footprint.Slices; slice++ {
		srcSlice := slice * source.SlicePitch
		dstSlice := footprint.Offset + slice*footprint.SlicePitch

		for row := 0; row < footprint.Rows; row++ {
			srcRow := srcSlice + row*source.RowPitch
			dstRow := dstSlice + row*footprint.RowPitch
			copy(dst[dstRow:dstRow+footprint.RowSize], src[srcRow:srcRow+footprint.RowSize])
		}
	}

	return nil
}
