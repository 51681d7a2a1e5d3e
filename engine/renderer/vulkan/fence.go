package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

type VulkanFence struct {
	context    *VulkanContext
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		context: context,
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.logicalDevice(), &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, resultError("vkCreateFence", res)
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vf.context.logicalDevice(), vf.Handle, vf.context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait returns at once if the fence is known to be signaled.
func (vf *VulkanFence) Wait(timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(vf.context.logicalDevice(), 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		err := fmt.Errorf("fence wait timed out after %dns", timeoutNs)
		core.LogWarn(err.Error())
		return err
	}
	return resultError("vkWaitForFences", result)
}

func (vf *VulkanFence) Reset() error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(vf.context.logicalDevice(), 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return resultError("vkResetFences", res)
	}
	vf.IsSignaled = false
	return nil
}

type VulkanSemaphore struct {
	context *VulkanContext
	Handle  vk.Semaphore
}

func NewSemaphore(context *VulkanContext) (*VulkanSemaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(context.logicalDevice(), &createInfo, context.Allocator, &handle); res != vk.Success {
		return nil, resultError("vkCreateSemaphore", res)
	}
	return &VulkanSemaphore{context: context, Handle: handle}, nil
}

func (s *VulkanSemaphore) Destroy() {
	if s.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(s.context.logicalDevice(), s.Handle, s.context.Allocator)
		s.Handle = vk.NullSemaphore
	}
}

// semaphoreHandle unwraps a semaphore created by this backend.
func semaphoreHandle(s renderer.Semaphore) (vk.Semaphore, error) {
	vs, ok := s.(*VulkanSemaphore)
	if !ok || vs == nil {
		return vk.NullSemaphore, fmt.Errorf("semaphore %T was not created by the Vulkan backend", s)
	}
	return vs.Handle, nil
}

func fenceHandle(f renderer.Fence) (*VulkanFence, error) {
	vf, ok := f.(*VulkanFence)
	if !ok || vf == nil {
		return nil, fmt.Errorf("fence %T was not created by the Vulkan backend", f)
	}
	return vf, nil
}
