package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type RendererConfig struct {
	FramesInFlight  int
	MaxSceneObjects int
	ClearColor      [4]float32
}

/** @brief A range of the shared index buffer drawn with the transform of one scene node. */
type DrawRange struct {
	FirstIndex uint32
	IndexCount uint32
	Node       uint32
}

/**
 * @brief Drives one frame at a time: waits on the frame slot, acquires an
 * image, refreshes per-object data, records, submits and presents.
 * Frames in flight and swapchain images are tracked separately.
 *
 * The camera and object buffers hold one region per frame slot. A slot's
 * region is only written after that slot's fence wait, so no submission
 * still pending on the GPU reads what the CPU is rewriting.
 */
type Renderer struct {
	config    RendererConfig
	device    Device
	swapchain Swapchain
	window    Window
	mm        *memory.MemoryManager
	sync      *FrameSyncManager

	// fence of the frame slot that last rendered to each swapchain image
	imagesInFlight     []Fence
	currentFrame       int
	framebufferResized bool

	cameraBuffer *memory.AllocatedBuffer
	objectBuffer *memory.AllocatedBuffer
	cameraStride uint64
	objectStride uint64
	cameraData   metadata.CameraData
	objects      []metadata.ObjectData

	scene           SceneSource
	materials       MaterialSource
	defaultMaterial uint32
	defaultColor    [4]float32
	camera          CameraSource

	vertices memory.BufferSlice
	indices  memory.BufferSlice
	ranges   []DrawRange
	draws    []DrawCommand
	frame    FrameCommands
}

func NewRenderer(config RendererConfig, device Device, swapchain Swapchain, window Window, mm *memory.MemoryManager) (*Renderer, error) {
	if config.FramesInFlight < 1 || config.MaxSceneObjects < 1 {
		err := fmt.Errorf("%w: renderer needs at least one frame in flight and one scene object", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}

	imageCount := swapchain.ImageCount()
	sync, err := NewFrameSyncManager(device, config.FramesInFlight, imageCount)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		config:         config,
		device:         device,
		swapchain:      swapchain,
		window:         window,
		mm:             mm,
		sync:           sync,
		imagesInFlight: make([]Fence, imageCount),
		objects:        make([]metadata.ObjectData, 0, config.MaxSceneObjects),
		defaultColor:   [4]float32{1, 1, 1, 1},
	}

	if err := device.ResizeCommandBuffers(imageCount); err != nil {
		r.Destroy()
		return nil, err
	}

	// slot regions start on offsets valid for dynamic uniform and storage bindings
	slots := uint64(config.FramesInFlight)
	cameraSize := metadata.CameraDataSize
	objectSize := metadata.ObjectDataSize * uint64(config.MaxSceneObjects)
	r.cameraStride = lmath.AlignUp(cameraSize, lmath.UniformBufferAlignment)
	r.objectStride = lmath.AlignUp(objectSize, lmath.StorageBufferAlignment)

	flags := memory.AllocationSequentialWrite | memory.AllocationMapped
	r.cameraBuffer, err = mm.CreateBuffer(r.cameraStride*slots, memory.UsageUniform, memory.ResidencyHostVisible, flags)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	r.objectBuffer, err = mm.CreateBuffer(r.objectStride*slots, memory.UsageStorage, memory.ResidencyHostVisible, flags)
	if err != nil {
		r.Destroy()
		return nil, err
	}
	if err := device.BindSceneBuffers(r.cameraBuffer.Handle(), cameraSize, r.objectBuffer.Handle(), objectSize); err != nil {
		r.Destroy()
		return nil, err
	}

	core.LogDebug("renderer ready: %d frames in flight, %d swapchain images, %d objects max",
		config.FramesInFlight, imageCount, config.MaxSceneObjects)
	return r, nil
}

// SetScene chooses the graph and material table the object buffer is built from.
func (r *Renderer) SetScene(sc SceneSource, materials MaterialSource, defaultMaterial uint32, defaultColor [4]float32) {
	r.scene = sc
	r.materials = materials
	r.defaultMaterial = defaultMaterial
	r.defaultColor = defaultColor
}

// SetGeometry sets the vertex and index slices drawn every frame.
func (r *Renderer) SetGeometry(vertices, indices memory.BufferSlice, ranges []DrawRange) {
	r.vertices = vertices
	r.indices = indices
	r.ranges = append(r.ranges[:0], ranges...)
}

func (r *Renderer) SetCamera(camera CameraSource) error {
	r.camera = camera
	return r.UpdateCamera()
}

// UpdateCamera recomputes the camera's view projection for the current
// swapchain aspect. It reaches the GPU with the next frame.
func (r *Renderer) UpdateCamera() error {
	if r.camera == nil {
		return nil
	}
	width, height := r.swapchain.Extent()
	if width == 0 || height == 0 {
		return nil
	}
	r.cameraData = metadata.CameraData{ViewProj: r.camera.ViewProjection(float32(width) / float32(height))}
	return nil
}

// slotOffsets returns where the camera and object regions of a frame slot start.
func (r *Renderer) slotOffsets(slot int) (camera, objects uint64) {
	return uint64(slot) * r.cameraStride, uint64(slot) * r.objectStride
}

// FramebufferResized requests a swapchain rebuild after the next present.
func (r *Renderer) FramebufferResized() {
	r.framebufferResized = true
}

func (r *Renderer) CurrentFrame() int {
	return r.currentFrame
}

// DrawFrame renders and presents one frame. An out of date swapchain is rebuilt
// and the frame skipped; this is not an error.
func (r *Renderer) DrawFrame() error {
	slot := r.currentFrame
	if err := r.sync.WaitForFrame(slot); err != nil {
		return fmt.Errorf("wait for frame %d: %w", slot, err)
	}

	imageAvailable := r.sync.ImageAvailable(slot)
	imageIndex, status, err := r.swapchain.AcquireNextImage(core.InfiniteTimeout, imageAvailable)
	if err != nil {
		return fmt.Errorf("acquire swapchain image: %w", err)
	}
	if status == AcquireOutOfDate {
		return r.RecreateSwapchain()
	}
	if int(imageIndex) >= len(r.imagesInFlight) {
		return fmt.Errorf("%w: swapchain returned image %d of %d", core.ErrIndexOutOfRange, imageIndex, len(r.imagesInFlight))
	}

	// a previous slot may still be rendering into this image
	if fence := r.imagesInFlight[imageIndex]; fence != nil {
		if err := fence.Wait(core.InfiniteTimeout); err != nil {
			return fmt.Errorf("wait for image %d: %w", imageIndex, err)
		}
	}
	inFlight := r.sync.InFlightFence(slot)
	r.imagesInFlight[imageIndex] = inFlight

	renderFinished, err := r.sync.RenderFinishedForImage(imageIndex)
	if err != nil {
		return err
	}

	if err := r.sync.ResetFence(slot); err != nil {
		return fmt.Errorf("reset fence %d: %w", slot, err)
	}
	if err := r.writeFrameData(slot); err != nil {
		return err
	}
	if err := r.device.RecordFrame(r.buildFrame(slot, imageIndex)); err != nil {
		return fmt.Errorf("record image %d: %w", imageIndex, err)
	}
	if err := r.device.Submit(imageIndex, imageAvailable, renderFinished, inFlight); err != nil {
		return fmt.Errorf("submit image %d: %w", imageIndex, err)
	}

	presentStatus, err := r.swapchain.Present(imageIndex, renderFinished)
	if err != nil {
		return fmt.Errorf("present image %d: %w", imageIndex, err)
	}
	if presentStatus != AcquireSuccess || r.framebufferResized {
		r.framebufferResized = false
		if err := r.RecreateSwapchain(); err != nil {
			return err
		}
	}

	r.currentFrame = (slot + 1) % r.config.FramesInFlight
	return nil
}

// writeFrameData rebuilds the per-object records and writes them, with the
// camera, into the regions of slot. The slot's fence must have been waited on.
func (r *Renderer) writeFrameData(slot int) error {
	cameraOffset, objectOffset := r.slotOffsets(slot)
	if err := r.mm.Write(r.cameraBuffer, cameraOffset, r.cameraData.Bytes()); err != nil {
		return err
	}

	r.objects = r.objects[:0]
	if r.scene != nil {
		r.objects = BuildObjectData(r.objects, r.scene, r.materials, r.defaultMaterial, r.defaultColor, r.config.MaxSceneObjects)
	}
	if len(r.objects) == 0 {
		return nil
	}
	return r.mm.Write(r.objectBuffer, objectOffset, metadata.ObjectDataBytes(r.objects))
}

// buildFrame resolves draw ranges to object indices. Ranges whose node is not
// among the uploaded objects are skipped.
func (r *Renderer) buildFrame(slot int, imageIndex uint32) *FrameCommands {
	r.draws = r.draws[:0]
	var renderables []uint32
	if r.scene != nil {
		renderables = r.scene.RenderableNodes()
	}
	for _, rg := range r.ranges {
		for i := 0; i < len(r.objects) && i < len(renderables); i++ {
			if renderables[i] == rg.Node {
				r.draws = append(r.draws, DrawCommand{FirstIndex: rg.FirstIndex, IndexCount: rg.IndexCount, ObjectIndex: uint32(i)})
				break
			}
		}
	}

	width, height := r.swapchain.Extent()
	cameraOffset, objectOffset := r.slotOffsets(slot)
	r.frame = FrameCommands{
		ImageIndex:   imageIndex,
		Width:        width,
		Height:       height,
		ClearColor:   r.config.ClearColor,
		CameraOffset: cameraOffset,
		ObjectOffset: objectOffset,
		Vertices:     r.vertices,
		Indices:      r.indices,
		Draws:        r.draws,
	}
	return &r.frame
}

// RecreateSwapchain rebuilds everything that depends on the swapchain images.
// While the window is minimised it blocks on window events.
func (r *Renderer) RecreateSwapchain() error {
	width, height := r.window.FramebufferSize()
	for width == 0 || height == 0 {
		r.window.WaitEvents()
		width, height = r.window.FramebufferSize()
	}

	if err := r.device.WaitIdle(); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}
	if err := r.swapchain.Recreate(uint32(width), uint32(height)); err != nil {
		return fmt.Errorf("recreate swapchain: %w", err)
	}

	imageCount := r.swapchain.ImageCount()
	if err := r.device.ResizeCommandBuffers(imageCount); err != nil {
		return fmt.Errorf("recreate command buffers: %w", err)
	}
	if err := r.sync.RecreateRenderFinishedSemaphores(imageCount); err != nil {
		return err
	}
	r.imagesInFlight = make([]Fence, imageCount)

	core.LogDebug("swapchain recreated: %dx%d, %d images", width, height, imageCount)
	return r.UpdateCamera()
}

// Wait blocks until the device has finished all submitted work.
func (r *Renderer) Wait() error {
	return r.device.WaitIdle()
}

// Destroy frees the renderer's buffers and sync objects. Call Wait first.
func (r *Renderer) Destroy() {
	if r.sync != nil {
		r.sync.Destroy()
		r.sync = nil
	}
	r.mm.DestroyBuffer(r.objectBuffer)
	r.mm.DestroyBuffer(r.cameraBuffer)
	r.imagesInFlight = nil
}
