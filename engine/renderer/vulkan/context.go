package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Handles shared by every object of the backend: the instance,
 * the window surface and the selected device.
 */
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugCallback vk.DebugReportCallback
	validation    bool

	Device *VulkanDevice
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has
// all of propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	err := fmt.Errorf("%w: no memory type matches filter %#x with properties %#x", core.ErrAllocationFailed, typeFilter, uint32(propertyFlags))
	core.LogWarn(err.Error())
	return 0, err
}

func (vc *VulkanContext) logicalDevice() vk.Device {
	return vc.Device.LogicalDevice
}
