package backend

// Format identifies the texel format of a reserved resource
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatR8G8Unorm
	FormatR16Float
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatR32Float
	FormatR16G16B16A16Float
	FormatR32G32Float
	FormatR32G32B32A32Float
)

type formatInfo struct {
	name          string
	bytesPerTexel int
}

var formatMapping = map[Format]formatInfo{
	FormatUndefined:         {"FormatUndefined", 0},
	FormatR8Unorm:           {"FormatR8Unorm", 1},
	FormatR8G8Unorm:         {"FormatR8G8Unorm", 2},
	FormatR16Float:          {"FormatR16Float", 2},
	FormatR8G8B8A8Unorm:     {"FormatR8G8B8A8Unorm", 4},
	FormatB8G8R8A8Unorm:     {"FormatB8G8R8A8Unorm", 4},
	FormatR32Float:          {"FormatR32Float", 4},
	FormatR16G16B16A16Float: {"FormatR16G16B16A16Float", 8},
	FormatR32G32Float:       {"FormatR32G32Float", 8},
	FormatR32G32B32A32Float: {"FormatR32G32B32A32Float", 16},
}

func (f Format) String() string {
	info, ok := formatMapping[f]
	if !ok {
		return "FormatUnknown"
	}
	return info.name
}

// BytesPerTexel returns the size of one texel, or 0 for formats without a fixed texel size
func (f Format) BytesPerTexel() int {
	return formatMapping[f].bytesPerTexel
}
