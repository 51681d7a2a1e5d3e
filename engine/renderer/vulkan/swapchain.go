package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

/**
 * @brief The presentable images plus everything sized after them: image views,
 * the shared depth attachment and one framebuffer per image.
 */
type VulkanSwapchain struct {
	context     *VulkanContext
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Images      []vk.Image
	Views       []vk.ImageView
	extent      vk.Extent2D

	DepthAttachment *VulkanImage

	renderpass *VulkanRenderpass
	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

func SwapchainCreate(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{context: context}
	if err := swapchain.create(width, height, vk.NullSwapchain); err != nil {
		swapchain.SwapchainDestroy()
		return nil, err
	}
	return swapchain, nil
}

// AttachRenderpass builds the framebuffers for rp. Recreate rebuilds them from then on.
func (vs *VulkanSwapchain) AttachRenderpass(rp *VulkanRenderpass) error {
	vs.renderpass = rp
	return vs.regenerateFramebuffers()
}

func (vs *VulkanSwapchain) ImageCount() int {
	return len(vs.Images)
}

func (vs *VulkanSwapchain) Extent() (uint32, uint32) {
	return vs.extent.Width, vs.extent.Height
}

func (vs *VulkanSwapchain) Framebuffer(imageIndex uint32) (*VulkanFramebuffer, error) {
	if int(imageIndex) >= len(vs.Framebuffers) {
		return nil, fmt.Errorf("%w: framebuffer %d of %d", core.ErrIndexOutOfRange, imageIndex, len(vs.Framebuffers))
	}
	return vs.Framebuffers[imageIndex], nil
}

func (vs *VulkanSwapchain) AcquireNextImage(timeoutNs uint64, signal renderer.Semaphore) (uint32, renderer.AcquireStatus, error) {
	semaphore, err := semaphoreHandle(signal)
	if err != nil {
		return 0, renderer.AcquireOutOfDate, err
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(vs.context.logicalDevice(), vs.Handle, timeoutNs, semaphore, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success:
		return imageIndex, renderer.AcquireSuccess, nil
	case vk.Suboptimal:
		return imageIndex, renderer.AcquireSuboptimal, nil
	case vk.ErrorOutOfDate:
		return 0, renderer.AcquireOutOfDate, nil
	}
	return 0, renderer.AcquireOutOfDate, resultError("vkAcquireNextImageKHR", result)
}

func (vs *VulkanSwapchain) Present(imageIndex uint32, wait renderer.Semaphore) (renderer.AcquireStatus, error) {
	semaphore, err := semaphoreHandle(wait)
	if err != nil {
		return renderer.AcquireOutOfDate, err
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(vs.context.Device.PresentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return renderer.AcquireSuccess, nil
	case vk.Suboptimal:
		return renderer.AcquireSuboptimal, nil
	case vk.ErrorOutOfDate:
		return renderer.AcquireOutOfDate, nil
	}
	return renderer.AcquireOutOfDate, resultError("vkQueuePresentKHR", result)
}

// Recreate replaces the swapchain for the new surface size. The device must be idle.
func (vs *VulkanSwapchain) Recreate(width, height uint32) error {
	device := vs.context.Device
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, vs.context.Surface, &device.SwapchainSupport); err != nil {
		return err
	}

	old := vs.Handle
	vs.destroyAttachments()
	err := vs.create(width, height, old)
	retireSwapchain(old, vs.Handle, vk.NullSwapchain, func(h vk.Swapchain) {
		vk.DestroySwapchain(device.LogicalDevice, h, vs.context.Allocator)
	})
	if err != nil {
		return err
	}
	if vs.renderpass != nil {
		return vs.regenerateFramebuffers()
	}
	return nil
}

// retireSwapchain destroys old once create has stored a replacement in current,
// even if create failed afterwards. If no replacement was made current still
// owns old and it is released with the swapchain.
func retireSwapchain[H comparable](old, current, null H, destroy func(H)) {
	if old != null && old != current {
		destroy(old)
	}
}

func (vs *VulkanSwapchain) SwapchainDestroy() {
	vs.destroyAttachments()
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.context.logicalDevice(), vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func (vs *VulkanSwapchain) create(width, height uint32, old vk.Swapchain) error {
	context := vs.context
	support := &context.Device.SwapchainSupport

	// Choose a swap surface format.
	vs.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			vs.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	extent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		extent = support.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	minExtent := support.Capabilities.MinImageExtent
	maxExtent := support.Capabilities.MaxImageExtent
	extent.Width = lmath.Clamp(extent.Width, minExtent.Width, maxExtent.Width)
	extent.Height = lmath.Clamp(extent.Height, minExtent.Height, maxExtent.Height)
	vs.extent = extent

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	device := context.Device
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		return resultError("vkCreateSwapchainKHR", res)
	}
	vs.Handle = handle

	var count uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, vs.Handle, &count, nil); res != vk.Success {
		return resultError("vkGetSwapchainImagesKHR", res)
	}
	vs.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(device.LogicalDevice, vs.Handle, &count, vs.Images); res != vk.Success {
		return resultError("vkGetSwapchainImagesKHR", res)
	}

	// Only the views are ours; the images belong to the swapchain.
	vs.Views = make([]vk.ImageView, 0, count)
	for _, image := range vs.Images {
		view, err := createImageView(context, image, vs.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		vs.Views = append(vs.Views, view)
	}

	depthAttachment, err := ImageCreate(
		context,
		extent.Width,
		extent.Height,
		device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	vs.DepthAttachment = depthAttachment

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, count)
	return nil
}

func (vs *VulkanSwapchain) regenerateFramebuffers() error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for _, view := range vs.Views {
		attachments := []vk.ImageView{view, vs.DepthAttachment.View}
		fb, err := FramebufferCreate(vs.context, vs.renderpass, vs.extent.Width, vs.extent.Height, attachments)
		if err != nil {
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

// destroyAttachments frees what is rebuilt on every recreate, keeping the swapchain handle.
func (vs *VulkanSwapchain) destroyAttachments() {
	for _, fb := range vs.Framebuffers {
		fb.Destroy(vs.context)
	}
	vs.Framebuffers = nil

	if vs.DepthAttachment != nil {
		vs.DepthAttachment.ImageDestroy(vs.context)
		vs.DepthAttachment = nil
	}

	for _, view := range vs.Views {
		vk.DestroyImageView(vs.context.logicalDevice(), view, vs.context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
}
