package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/sparse/backend"
	"github.com/vkngwrapper/sparse/memutils"
)

var vulkanFormats = map[backend.Format]core1_0.Format{
	backend.FormatR8Unorm:           core1_0.FormatR8UnsignedNormalized,
	backend.FormatR8G8Unorm:         core1_0.FormatR8G8UnsignedNormalized,
	backend.FormatR16Float:          core1_0.FormatR16SignedFloat,
	backend.FormatR8G8B8A8Unorm:     core1_0.FormatR8G8B8A8UnsignedNormalized,
	backend.FormatB8G8R8A8Unorm:     core1_0.FormatB8G8R8A8UnsignedNormalized,
	backend.FormatR32Float:          core1_0.FormatR32SignedFloat,
	backend.FormatR16G16B16A16Float: core1_0.FormatR16G16B16A16SignedFloat,
	backend.FormatR32G32Float:       core1_0.FormatR32G32SignedFloat,
	backend.FormatR32G32B32A32Float: core1_0.FormatR32G32B32A32SignedFloat,
}

// VulkanFormat returns the Vulkan format used for reserved resources of the given format
func VulkanFormat(format backend.Format) (core1_0.Format, error) {
	vkFormat, ok := vulkanFormats[format]
	if !ok {
		return core1_0.FormatUndefined, errors.Wrapf(memutils.ErrInvalidArgument, "format %s has no vulkan equivalent", format)
	}

	return vkFormat, nil
}
