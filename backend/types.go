package backend

import "fmt"

// TileCoordinate identifies one tile of a reserved resource in tile-grid units
type TileCoordinate struct {
	Subresource int
	X           int
	Y           int
	Z           int
}

func (c TileCoordinate) String() string {
	return fmt.Sprintf("(subresource %d, x %d, y %d, z %d)", c.Subresource, c.X, c.Y, c.Z)
}

// ResourceCreateInfo describes a reserved texture. A Depth greater than 1 produces a volume
// texture, otherwise a 2D texture. Subresource indices equal mip levels.
type ResourceCreateInfo struct {
	Width     int
	Height    int
	Depth     int
	MipLevels int
	Format    Format
}

// MipExtent returns the texel dimensions of the given mip level
func (i ResourceCreateInfo) MipExtent(mipLevel int) (width, height, depth int) {
	width = mipDimension(i.Width, mipLevel)
	height = mipDimension(i.Height, mipLevel)
	depth = mipDimension(i.Depth, mipLevel)
	return width, height, depth
}

func mipDimension(size, mipLevel int) int {
	size >>= mipLevel
	if size < 1 {
		return 1
	}
	return size
}

// SubresourceTiling is the size of one subresource's tile grid. Subresources that belong to
// the packed mip tail have an empty grid.
type SubresourceTiling struct {
	WidthInTiles   int
	HeightInTiles  int
	DepthInTiles   int
	StartTileIndex int
}

// TileCount returns the number of tiles in the grid
func (t SubresourceTiling) TileCount() int {
	return t.WidthInTiles * t.HeightInTiles * t.DepthInTiles
}

// Contains reports whether x, y and z fall within the grid
func (t SubresourceTiling) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 &&
		x < t.WidthInTiles && y < t.HeightInTiles && z < t.DepthInTiles
}

// TileLayout is the fixed tile geometry of a reserved resource
type TileLayout struct {
	TileWidth      int
	TileHeight     int
	TileDepth      int
	BytesPerTexel  int
	PackedMipCount int
	Subresources   []SubresourceTiling
}

// SubresourceCount returns the number of subresources in the resource
func (l TileLayout) SubresourceCount() int {
	return len(l.Subresources)
}

// RowSizeInBytes is the size of one tightly-packed row of texels in a tile
func (l TileLayout) RowSizeInBytes() int {
	return l.TileWidth * l.BytesPerTexel
}

// TileSizeInBytes is the size of one tile's texels when tightly packed
func (l TileLayout) TileSizeInBytes() int {
	return l.RowSizeInBytes() * l.TileHeight * l.TileDepth
}

// Contains reports whether coord addresses a tile inside the resource
func (l TileLayout) Contains(coord TileCoordinate) bool {
	if coord.Subresource < 0 || coord.Subresource >= len(l.Subresources) {
		return false
	}
	return l.Subresources[coord.Subresource].Contains(coord.X, coord.Y, coord.Z)
}

// Footprint describes how a tile's texels are laid out in a staging buffer
type Footprint struct {
	Offset     int
	RowSize    int
	RowPitch   int
	Rows       int
	SlicePitch int
	Slices     int
}

// SizeInBytes is the number of staging bytes the footprint spans after Offset
func (f Footprint) SizeInBytes() int {
	return f.SlicePitch * f.Slices
}

// CopyRegion is the texel box of a resource that a tile copy writes
type CopyRegion struct {
	Subresource int
	X           int
	Y           int
	Z           int
	Width       int
	Height      int
	Depth       int
}

// TileRegion returns the texel box covered by the tile at coord, clipped to the extent of the
// coordinate's mip level
func TileRegion(info ResourceCreateInfo, layout TileLayout, coord TileCoordinate) CopyRegion {
	mipWidth, mipHeight, mipDepth := info.MipExtent(coord.Subresource)

	region := CopyRegion{
		Subresource: coord.Subresource,
		X:           coord.X * layout.TileWidth,
		Y:           coord.Y * layout.TileHeight,
		Z:           coord.Z * layout.TileDepth,
		Width:       layout.TileWidth,
		Height:      layout.TileHeight,
		Depth:       layout.TileDepth,
	}

	region.Width = clip(region.X, region.Width, mipWidth)
	region.Height = clip(region.Y, region.Height, mipHeight)
	region.Depth = clip(region.Z, region.Depth, mipDepth)
	return region
}

func clip(start, size, limit int) int {
	if start+size > limit {
		size = limit - start
	}
	if size < 0 {
		return 0
	}
	return size
}
