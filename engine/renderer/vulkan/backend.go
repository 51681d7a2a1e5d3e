package vulkan

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type BackendConfig struct {
	ApplicationName  string
	Validation       bool
	ValidationLayers []string
	DeviceExtensions []string
	// ShaderDir holds the compiled object.vert.spv and object.frag.spv.
	ShaderDir   string
	MaxTextures uint32
	Width       uint32
	Height      uint32
}

// WindowSurface is what the backend needs from the platform window.
type WindowSurface interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

/**
 * @brief The Vulkan implementation of the renderer device. It owns the
 * instance, device, swapchain, the object pipeline and one primary command
 * buffer per swapchain image.
 */
type VulkanBackend struct {
	context *VulkanContext

	swapchain   *VulkanSwapchain
	renderpass  *VulkanRenderpass
	descriptors *SceneDescriptors
	shaders     []*VulkanShaderStage
	pipeline    *VulkanPipeline

	allocator *BufferAllocator
	transfer  *TransferQueue

	commandBuffers []*VulkanCommandBuffer

	FrameNumber uint64
}

func NewBackend(config BackendConfig, window WindowSurface) (*VulkanBackend, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, err
	}

	vb := &VulkanBackend{context: &VulkanContext{Allocator: nil}}
	if err := vb.initialize(config, window); err != nil {
		vb.Shutdown()
		return nil, err
	}
	core.LogInfo("Vulkan backend initialized successfully.")
	return vb, nil
}

func (vb *VulkanBackend) initialize(config BackendConfig, window WindowSurface) error {
	context := vb.context

	err := createInstance(context, InstanceConfig{
		ApplicationName:  config.ApplicationName,
		Extensions:       window.RequiredInstanceExtensions(),
		Validation:       config.Validation,
		ValidationLayers: config.ValidationLayers,
	})
	if err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(context.Instance)
	if err != nil {
		err = fmt.Errorf("failed to create platform surface: %w", err)
		core.LogError(err.Error())
		return err
	}
	context.Surface = surface

	if err := DeviceCreate(context, config.DeviceExtensions); err != nil {
		return err
	}

	vb.swapchain, err = SwapchainCreate(context, config.Width, config.Height)
	if err != nil {
		return err
	}

	vb.renderpass, err = RenderpassCreate(context, vb.swapchain.ImageFormat.Format, context.Device.DepthFormat, 1.0, 0)
	if err != nil {
		return err
	}
	if err := vb.swapchain.AttachRenderpass(vb.renderpass); err != nil {
		return err
	}

	vb.descriptors, err = NewSceneDescriptors(context, config.MaxTextures)
	if err != nil {
		return err
	}

	vert, err := NewShaderStage(context, config.ShaderDir, "object", "vert", vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	vb.shaders = append(vb.shaders, vert)
	frag, err := NewShaderStage(context, config.ShaderDir, "object", "frag", vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	vb.shaders = append(vb.shaders, frag)

	vb.pipeline, err = NewObjectPipeline(context, vb.renderpass, vb.descriptors.Layout, vb.shaders)
	if err != nil {
		return err
	}

	vb.allocator = NewBufferAllocator(context)
	vb.transfer = NewTransferQueue(context)
	return nil
}

func (vb *VulkanBackend) Swapchain() *VulkanSwapchain {
	return vb.swapchain
}

func (vb *VulkanBackend) Allocator() *BufferAllocator {
	return vb.allocator
}

// Transfer performs blocking buffer and image copies.
func (vb *VulkanBackend) Transfer() *TransferQueue {
	return vb.transfer
}

func (vb *VulkanBackend) CreateSemaphore() (renderer.Semaphore, error) {
	semaphore, err := NewSemaphore(vb.context)
	if err != nil {
		return nil, err
	}
	return semaphore, nil
}

func (vb *VulkanBackend) CreateFence(signaled bool) (renderer.Fence, error) {
	fence, err := NewFence(vb.context, signaled)
	if err != nil {
		return nil, err
	}
	return fence, nil
}

func (vb *VulkanBackend) WaitIdle() error {
	if vb.context.Device == nil || vb.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vb.context.Device.LogicalDevice); res != vk.Success {
		return resultError("vkDeviceWaitIdle", res)
	}
	return nil
}

func (vb *VulkanBackend) ResizeCommandBuffers(count int) error {
	pool := vb.context.Device.GraphicsCommandPool
	for _, cb := range vb.commandBuffers {
		cb.Free(vb.context, pool)
	}
	vb.commandBuffers = make([]*VulkanCommandBuffer, 0, count)
	for i := 0; i < count; i++ {
		cb, err := NewVulkanCommandBuffer(vb.context, pool, true)
		if err != nil {
			return err
		}
		vb.commandBuffers = append(vb.commandBuffers, cb)
	}
	core.LogDebug("Vulkan command buffers created: %d", count)
	return nil
}

func (vb *VulkanBackend) BindSceneBuffers(camera memory.Buffer, cameraRange uint64, objects memory.Buffer, objectRange uint64) error {
	cameraHandle, err := bufferHandle(camera)
	if err != nil {
		return err
	}
	objectsHandle, err := bufferHandle(objects)
	if err != nil {
		return err
	}
	if cameraRange > camera.Size() || objectRange > objects.Size() {
		err := fmt.Errorf("%w: scene buffer range exceeds its buffer", core.ErrIndexOutOfRange)
		core.LogError(err.Error())
		return err
	}
	vb.descriptors.WriteBuffers(vb.context, cameraHandle, cameraRange, objectsHandle, objectRange)
	return nil
}

func (vb *VulkanBackend) commandBuffer(imageIndex uint32) (*VulkanCommandBuffer, error) {
	if int(imageIndex) >= len(vb.commandBuffers) {
		return nil, fmt.Errorf("%w: command buffer %d of %d", core.ErrIndexOutOfRange, imageIndex, len(vb.commandBuffers))
	}
	return vb.commandBuffers[imageIndex], nil
}

// RecordFrame re-records the command buffer of frame.ImageIndex from scratch.
func (vb *VulkanBackend) RecordFrame(frame *renderer.FrameCommands) error {
	cb, err := vb.commandBuffer(frame.ImageIndex)
	if err != nil {
		return err
	}
	framebuffer, err := vb.swapchain.Framebuffer(frame.ImageIndex)
	if err != nil {
		return err
	}

	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}

	vb.renderpass.RenderpassBegin(cb, framebuffer.Handle, frame.Width, frame.Height, frame.ClearColor)
	vb.pipeline.Bind(cb, vk.PipelineBindPointGraphics)
	vb.descriptors.Bind(cb, vb.pipeline.PipelineLayout, frame.CameraOffset, frame.ObjectOffset)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(frame.Width),
		Height:   float32(frame.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: frame.Width, Height: frame.Height},
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	if len(frame.Draws) > 0 && frame.Vertices.Buffer.Valid() && frame.Indices.Buffer.Valid() {
		vertexBuffer, err := bufferHandle(frame.Vertices.Buffer.Handle())
		if err != nil {
			return err
		}
		indexBuffer, err := bufferHandle(frame.Indices.Buffer.Handle())
		if err != nil {
			return err
		}
		vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vertexBuffer}, []vk.DeviceSize{vk.DeviceSize(frame.Vertices.Offset)})
		vk.CmdBindIndexBuffer(cb.Handle, indexBuffer, vk.DeviceSize(frame.Indices.Offset), vk.IndexTypeUint32)

		stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
		for _, draw := range frame.Draws {
			pc := metadata.PushConstants{ObjectIndex: draw.ObjectIndex}
			vk.CmdPushConstants(cb.Handle, vb.pipeline.PipelineLayout, stages, 0, metadata.PushConstantsSize, unsafe.Pointer(&pc))
			vk.CmdDrawIndexed(cb.Handle, draw.IndexCount, 1, draw.FirstIndex, 0, 0)
		}
	}

	vb.renderpass.RenderpassEnd(cb)
	return cb.End()
}

func (vb *VulkanBackend) Submit(imageIndex uint32, wait, signal renderer.Semaphore, fence renderer.Fence) error {
	cb, err := vb.commandBuffer(imageIndex)
	if err != nil {
		return err
	}
	waitHandle, err := semaphoreHandle(wait)
	if err != nil {
		return err
	}
	signalHandle, err := semaphoreHandle(signal)
	if err != nil {
		return err
	}
	vf, err := fenceHandle(fence)
	if err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{waitHandle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalHandle},
	}
	if res := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vf.Handle); res != vk.Success {
		return resultError("vkQueueSubmit", res)
	}
	// the fence is pending until the GPU finishes this submission
	vf.IsSignaled = false
	cb.UpdateSubmitted()
	vb.FrameNumber++
	return nil
}

// Shutdown destroys everything the backend created, in reverse order.
func (vb *VulkanBackend) Shutdown() {
	context := vb.context
	if context.Device != nil && context.Device.LogicalDevice != nil {
		if err := vb.WaitIdle(); err != nil {
			core.LogWarn("wait idle before shutdown: %s", err)
		}

		core.LogDebug("Freeing command buffers...")
		for _, cb := range vb.commandBuffers {
			cb.Free(context, context.Device.GraphicsCommandPool)
		}
		vb.commandBuffers = nil

		if vb.pipeline != nil {
			vb.pipeline.Destroy(context)
			vb.pipeline = nil
		}
		for _, s := range vb.shaders {
			s.Destroy(context)
		}
		vb.shaders = nil
		if vb.descriptors != nil {
			vb.descriptors.Destroy(context)
			vb.descriptors = nil
		}

		core.LogDebug("Destroying Vulkan swapchain...")
		if vb.swapchain != nil {
			vb.swapchain.SwapchainDestroy()
			vb.swapchain = nil
		}
		if vb.renderpass != nil {
			vb.renderpass.RenderpassDestroy(context)
			vb.renderpass = nil
		}

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(context)
	}
	destroyInstance(context)
	core.LogDebug("Vulkan backend shut down.")
}
