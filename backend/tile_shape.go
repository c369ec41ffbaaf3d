package backend

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sparse/memutils"
)

// StandardTileSize is the size in bytes of a standard tile
const StandardTileSize int = 64 * 1024

type tileShape struct {
	width, height, depth int
}

var standardTileShapes2D = map[int]tileShape{
	1:  {256, 256, 1},
	2:  {256, 128, 1},
	4:  {128, 128, 1},
	8:  {128, 64, 1},
	16: {64, 64, 1},
}

var standardTileShapes3D = map[int]tileShape{
	1:  {64, 32, 32},
	2:  {32, 32, 32},
	4:  {32, 32, 16},
	8:  {32, 16, 16},
	16: {16, 16, 16},
}

// StandardTileShape returns the texel extent of a 64 KiB tile for the given format
func StandardTileShape(format Format, volume bool) (width, height, depth int, err error) {
	shapes := standardTileShapes2D
	if volume {
		shapes = standardTileShapes3D
	}

	shape, ok := shapes[format.BytesPerTexel()]
	if !ok {
		return 0, 0, 0, errors.Wrapf(memutils.ErrInvalidArgument, "format %s has no standard tile shape", format)
	}

	return shape.width, shape.height, shape.depth, nil
}

// ComputeTileLayout builds the tile grid of every mip level of a resource from its tile
// shape. Mips from firstPackedMip onward form the packed mip tail and get empty grids.
func ComputeTileLayout(info ResourceCreateInfo, tileWidth, tileHeight, tileDepth, firstPackedMip int) TileLayout {
	layout := TileLayout{
		TileWidth:     tileWidth,
		TileHeight:    tileHeight,
		TileDepth:     tileDepth,
		BytesPerTexel: info.Format.BytesPerTexel(),
		Subresources:  make([]SubresourceTiling, info.MipLevels),
	}

	if firstPackedMip > info.MipLevels {
		firstPackedMip = info.MipLevels
	}
	layout.PackedMipCount = info.MipLevels - firstPackedMip

	startTile := 0
	for mip := 0; mip < firstPackedMip; mip++ {
		width, height, depth := info.MipExtent(mip)
		tiling := SubresourceTiling{
			WidthInTiles:   memutils.DivideRoundingUp(width, tileWidth),
			HeightInTiles:  memutils.DivideRoundingUp(height, tileHeight),
			DepthInTiles:   memutils.DivideRoundingUp(depth, tileDepth),
			StartTileIndex: startTile,
		}
		layout.Subresources[mip] = tiling
		startTile += tiling.TileCount()
	}

	for mip := firstPackedMip; mip < info.MipLevels; mip++ {
		layout.Subresources[mip].StartTileIndex = startTile
	}

	return layout
}

// FirstPackedMip returns the first mip level that is smaller than one tile in any dimension
func FirstPackedMip(info ResourceCreateInfo, tileWidth, tileHeight, tileDepth int) int {
	for mip := 0; mip < info.MipLevels; mip++ {
		width, height, depth := info.MipExtent(mip)
		if width < tileWidth || height < tileHeight || depth < tileDepth {
			return mip
		}
	}
	return info.MipLevels
}

// StandardTileLayout returns the layout of a resource that uses standard 64 KiB tile shapes
func StandardTileLayout(info ResourceCreateInfo) (TileLayout, error) {
	width, height, depth, err := StandardTileShape(info.Format, info.Depth > 1)
	if err != nil {
		return TileLayout{}, err
	}

	firstPacked := FirstPackedMip(info, width, height, depth)
	return ComputeTileLayout(info, width, height, depth, firstPacked), nil
}

// ValidateResourceCreateInfo checks that info describes a texture a backend can reserve
func ValidateResourceCreateInfo(info ResourceCreateInfo) error {
	if info.Width < 1 || info.Height < 1 || info.Depth < 1 {
		return errors.Wrapf(memutils.ErrInvalidArgument, "resource extent %dx%dx%d is invalid", info.Width, info.Height, info.Depth)
	}
	if info.MipLevels < 1 {
		return errors.Wrapf(memutils.ErrInvalidArgument, "resource mip level count %d is invalid", info.MipLevels)
	}

	largest := info.Width
	if info.Height > largest {
		largest = info.Height
	}
	if info.Depth > largest {
		largest = info.Depth
	}
	maxMips := 1
	for largest > 1 {
		largest >>= 1
		maxMips++
	}
	if info.MipLevels > maxMips {
		return errors.Wrapf(memutils.ErrInvalidArgument, "resource mip level count %d exceeds the %d levels of a %dx%dx%d texture", info.MipLevels, maxMips, info.Width, info.Height, info.Depth)
	}

	if info.Format.BytesPerTexel() == 0 {
		return errors.Wrapf(memutils.ErrInvalidArgument, "resource format %s is not supported", info.Format)
	}

	return nil
}
