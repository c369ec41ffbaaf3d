package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/sparse/memutils"
)

// findMemoryTypeIndex returns the first memory type allowed by memoryTypeBits that has all
// of the required property flags. Types that also carry every preferred flag win over types
// that only carry the required ones.
func findMemoryTypeIndex(properties *core1_0.PhysicalDeviceMemoryProperties, memoryTypeBits uint32, required, preferred core1_0.MemoryPropertyFlags) (int, error) {
	fallback := -1

	for index, memoryType := range properties.MemoryTypes {
		if memoryTypeBits&(1<<uint(index)) == 0 {
			continue
		}

		if memoryType.PropertyFlags&required != required {
			continue
		}

		if memoryType.PropertyFlags&preferred == preferred {
			return index, nil
		}

		if fallback < 0 {
			fallback = index
		}
	}

	if fallback < 0 {
		return -1, errors.Wrapf(core1_0.VKErrorFeatureNotPresent.ToError(),
			"no memory type in bits %#x has properties %s", memoryTypeBits, required)
	}

	return fallback, nil
}

func checkMemoryTypeAllowed(memoryTypeBits uint32, memoryTypeIndex int, what string) error {
	if memoryTypeBits&(1<<uint(memoryTypeIndex)) == 0 {
		return errors.Wrapf(memutils.ErrInvalidArgument,
			"%s cannot be bound to heap memory type %d (allowed types %#x)", what, memoryTypeIndex, memoryTypeBits)
	}

	return nil
}
