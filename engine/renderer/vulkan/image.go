package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

/**
 * @brief Creates a 2D image with dedicated memory and, when createView is set, a view on it.
 */
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, createView bool, viewAspectFlags vk.ImageAspectFlags) (*VulkanImage, error) {
	outImage := &VulkanImage{
		Format: format,
		Width:  width,
		Height: height,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	device := context.logicalDevice()
	if res := vk.CreateImage(device, &imageCreateInfo, context.Allocator, &outImage.Handle); res != vk.Success {
		return nil, resultError("vkCreateImage", res)
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, outImage.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, memoryFlags)
	if err != nil {
		vk.DestroyImage(device, outImage.Handle, context.Allocator)
		return nil, fmt.Errorf("image %dx%d: %w", width, height, err)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &outImage.Memory); res != vk.Success {
		vk.DestroyImage(device, outImage.Handle, context.Allocator)
		return nil, resultError("vkAllocateMemory", res)
	}

	if res := vk.BindImageMemory(device, outImage.Handle, outImage.Memory, 0); res != vk.Success {
		outImage.ImageDestroy(context)
		return nil, resultError("vkBindImageMemory", res)
	}

	if createView {
		if err := outImage.ImageViewCreate(context, viewAspectFlags); err != nil {
			outImage.ImageDestroy(context)
			return nil, err
		}
	}
	return outImage, nil
}

func (img *VulkanImage) ImageViewCreate(context *VulkanContext, aspectFlags vk.ImageAspectFlags) error {
	view, err := createImageView(context, img.Handle, img.Format, aspectFlags)
	if err != nil {
		return err
	}
	img.View = view
	return nil
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.logicalDevice(), &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		return vk.NullImageView, resultError("vkCreateImageView", res)
	}
	return view, nil
}

/**
 * @brief Records a layout transition for a colour image. Only the two
 * transitions used by texture uploads are supported.
 */
func (img *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var sourceStage, destinationStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		err := fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
		core.LogError(err.Error())
		return err
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle, sourceStage, destinationStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records a copy of tightly packed pixels at offset into the whole image.
func (img *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer, offset uint64) {
	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  img.Width,
			Height: img.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (img *VulkanImage) ImageDestroy(context *VulkanContext) {
	device := context.logicalDevice()
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = vk.NullImage
	}
}
