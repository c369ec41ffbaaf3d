package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

func imageCreateInfo(info backend.ResourceCreateInfo) (core1_0.ImageCreateInfo, error) {
	err := backend.ValidateResourceCreateInfo(info)
	if err != nil {
		return core1_0.ImageCreateInfo{}, err
	}

	format, err := VulkanFormat(info.Format)
	if err != nil {
		return core1_0.ImageCreateInfo{}, err
	}

	imageType := core1_0.ImageType2D
	if info.Depth > 1 {
		imageType = core1_0.ImageType3D
	}

	return core1_0.ImageCreateInfo{
		Flags:     core1_0.ImageCreateSparseBinding | core1_0.ImageCreateSparseResidency,
		ImageType: imageType,
		Format:    format,
		Extent: core1_0.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  info.Depth,
		},
		MipLevels:     info.MipLevels,
		ArrayLayers:   1,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	}, nil
}

// tileLayoutFromRequirements builds a tile layout from the color aspect's sparse requirements.
// The sparse block shape becomes the tile shape and the mip tail becomes the packed mips.
func tileLayoutFromRequirements(info backend.ResourceCreateInfo, requirements []core1_0.SparseImageMemoryRequirements, tileSize int) (backend.TileLayout, error) {
	for _, requirement := range requirements {
		if requirement.FormatProperties.AspectMask&core1_0.ImageAspectColor == 0 {
			continue
		}

		granularity := requirement.FormatProperties.ImageGranularity
		if granularity.Width < 1 || granularity.Height < 1 || granularity.Depth < 1 {
			return backend.TileLayout{}, errors.Wrapf(memutils.ErrBackend,
				"sparse block shape %dx%dx%d is invalid", granularity.Width, granularity.Height, granularity.Depth)
		}

		blockSize := granularity.Width * granularity.Height * granularity.Depth * info.Format.BytesPerTexel()
		if blockSize != tileSize {
			return backend.TileLayout{}, errors.Wrapf(memutils.ErrInvalidArgument,
				"sparse block of %dx%dx%d texels is %d bytes, not the tile size %d",
				granularity.Width, granularity.Height, granularity.Depth, blockSize, tileSize)
		}

		firstPackedMip := info.MipLevels
		if requirement.ImageMipTailFirstLod < info.MipLevels {
			firstPackedMip = requirement.ImageMipTailFirstLod
		}

		return backend.ComputeTileLayout(info, granularity.Width, granularity.Height, granularity.Depth, firstPackedMip), nil
	}

	return backend.TileLayout{}, errors.Wrap(memutils.ErrBackend, "sparse image has no color aspect requirements")
}

// bufferImageCopy translates a staging footprint and destination region into a copy region
func bufferImageCopy(footprint backend.Footprint, region backend.CopyRegion, bytesPerTexel int) (core1_0.BufferImageCopy, error) {
	if bytesPerTexel < 1 || footprint.RowPitch%bytesPerTexel != 0 {
		return core1_0.BufferImageCopy{}, errors.Wrapf(memutils.ErrInvalidArgument,
			"row pitch %d is not a multiple of the texel size %d", footprint.RowPitch, bytesPerTexel)
	}
	if footprint.RowPitch < 1 || footprint.SlicePitch%footprint.RowPitch != 0 {
		return core1_0.BufferImageCopy{}, errors.Wrapf(memutils.ErrInvalidArgument,
			"slice pitch %d is not a multiple of the row pitch %d", footprint.SlicePitch, footprint.RowPitch)
	}

	return core1_0.BufferImageCopy{
		BufferOffset:      footprint.Offset,
		BufferRowLength:   footprint.RowPitch / bytesPerTexel,
		BufferImageHeight: footprint.SlicePitch / footprint.RowPitch,
		ImageSubresource: core1_0.ImageSubresourceLayers{
			AspectMask:     core1_0.ImageAspectColor,
			MipLevel:       region.Subresource,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: core1_0.Offset3D{X: region.X, Y: region.Y, Z: region.Z},
		ImageExtent: core1_0.Extent3D{Width: region.Width, Height: region.Height, Depth: region.Depth},
	}, nil
}

// sparseImageBind describes the texel box of one tile of the color aspect. Tiles on the edge of
// a mip level are clipped to it, which is the only extent Vulkan accepts that is not a whole
// number of sparse blocks.
func sparseImageBind(info backend.ResourceCreateInfo, layout backend.TileLayout, coord backend.TileCoordinate) core1_0.SparseImageMemoryBind {
	region := backend.TileRegion(info, layout, coord)

	return core1_0.SparseImageMemoryBind{
		Subresource: core1_0.ImageSubresource{
			AspectMask: core1_0.ImageAspectColor,
			MipLevel:   uint32(coord.Subresource),
			ArrayLayer: 0,
		},
		Offset: core1_0.Offset3D{X: region.X, Y: region.Y, Z: region.Z},
		Extent: core1_0.Extent3D{Width: region.Width, Height: region.Height, Depth: region.Depth},
	}
}
