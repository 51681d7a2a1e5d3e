package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
)

/**
 * @brief A VkBuffer bound to its own dedicated allocation.
 */
type VulkanBuffer struct {
	context *VulkanContext
	Handle  vk.Buffer
	Memory  vk.DeviceMemory
	size    uint64
	mapped  []byte
}

func (b *VulkanBuffer) Size() uint64 {
	return b.size
}

func (b *VulkanBuffer) Map() ([]byte, error) {
	if b.mapped != nil {
		return b.mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(b.context.logicalDevice(), b.Memory, 0, vk.DeviceSize(b.size), 0, &data); res != vk.Success {
		return nil, resultError("vkMapMemory", res)
	}
	b.mapped = unsafe.Slice((*byte)(data), b.size)
	return b.mapped, nil
}

func (b *VulkanBuffer) Unmap() {
	if b.mapped == nil {
		return
	}
	vk.UnmapMemory(b.context.logicalDevice(), b.Memory)
	b.mapped = nil
}

func (b *VulkanBuffer) Mapped() []byte {
	return b.mapped
}

/**
 * @brief Creates buffers with one device memory allocation each.
 * Host visible memory is always requested coherent, so writes through a
 * mapping need no flush.
 */
type BufferAllocator struct {
	context *VulkanContext
}

func NewBufferAllocator(context *VulkanContext) *BufferAllocator {
	return &BufferAllocator{context: context}
}

func bufferUsageFlags(usage memory.Usage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage&memory.UsageTransferSrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage&memory.UsageTransferDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	if usage&memory.UsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage&memory.UsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage&memory.UsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage&memory.UsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func memoryPropertyFlags(residency memory.Residency) vk.MemoryPropertyFlags {
	if residency == memory.ResidencyHostVisible {
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

func (a *BufferAllocator) CreateBuffer(info memory.BufferCreateInfo) (memory.Buffer, error) {
	device := a.context.logicalDevice()
	buffer := &VulkanBuffer{context: a.context, size: info.Size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       bufferUsageFlags(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device, &bufferInfo, a.context.Allocator, &buffer.Handle); res != vk.Success {
		return nil, resultError("vkCreateBuffer", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
	requirements.Deref()

	memoryType, err := a.context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags(info.Residency))
	if err != nil {
		vk.DestroyBuffer(device, buffer.Handle, a.context.Allocator)
		return nil, fmt.Errorf("%s buffer of %d bytes: %w", info.Residency, info.Size, err)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	if res := vk.AllocateMemory(device, &allocateInfo, a.context.Allocator, &buffer.Memory); res != vk.Success {
		vk.DestroyBuffer(device, buffer.Handle, a.context.Allocator)
		return nil, resultError("vkAllocateMemory", res)
	}

	if res := vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		a.DestroyBuffer(buffer)
		return nil, resultError("vkBindBufferMemory", res)
	}

	core.LogDebug("buffer created: %d bytes, %s, memory type %d", info.Size, info.Residency, memoryType)
	return buffer, nil
}

func (a *BufferAllocator) DestroyBuffer(b memory.Buffer) {
	buffer, ok := b.(*VulkanBuffer)
	if !ok || buffer == nil {
		core.LogWarn("DestroyBuffer called with foreign buffer %T", b)
		return
	}
	device := a.context.logicalDevice()
	buffer.Unmap()
	if buffer.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, buffer.Handle, a.context.Allocator)
		buffer.Handle = vk.NullBuffer
	}
	if buffer.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, buffer.Memory, a.context.Allocator)
		buffer.Memory = vk.NullDeviceMemory
	}
}

func bufferHandle(b memory.Buffer) (vk.Buffer, error) {
	buffer, ok := b.(*VulkanBuffer)
	if !ok || buffer == nil {
		return vk.NullBuffer, fmt.Errorf("buffer %T was not created by the Vulkan backend", b)
	}
	return buffer.Handle, nil
}

/**
 * @brief Performs transfers on the graphics queue with one-time command buffers.
 */
type TransferQueue struct {
	context *VulkanContext
}

func NewTransferQueue(context *VulkanContext) *TransferQueue {
	return &TransferQueue{context: context}
}

func (q *TransferQueue) CopyBuffer(src, dst memory.Buffer, srcOffset, dstOffset, size uint64) error {
	srcHandle, err := bufferHandle(src)
	if err != nil {
		return err
	}
	dstHandle, err := bufferHandle(dst)
	if err != nil {
		return err
	}

	device := q.context.Device
	return RunSingleUse(q.context, device.GraphicsCommandPool, device.GraphicsQueue, func(cb *VulkanCommandBuffer) {
		region := vk.BufferCopy{
			SrcOffset: vk.DeviceSize(srcOffset),
			DstOffset: vk.DeviceSize(dstOffset),
			Size:      vk.DeviceSize(size),
		}
		vk.CmdCopyBuffer(cb.Handle, srcHandle, dstHandle, 1, []vk.BufferCopy{region})
	})
}

// CopyBufferToImage uploads tightly packed RGBA pixels and leaves the image ready for sampling.
func (q *TransferQueue) CopyBufferToImage(src memory.Buffer, srcOffset uint64, image *VulkanImage) error {
	srcHandle, err := bufferHandle(src)
	if err != nil {
		return err
	}

	device := q.context.Device
	var recordErr error
	err = RunSingleUse(q.context, device.GraphicsCommandPool, device.GraphicsQueue, func(cb *VulkanCommandBuffer) {
		if recordErr = image.TransitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); recordErr != nil {
			return
		}
		image.CopyFromBuffer(cb, srcHandle, srcOffset)
		recordErr = image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if recordErr != nil {
		return recordErr
	}
	return err
}
