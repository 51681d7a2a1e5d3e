package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// Fence is a GPU to CPU signal.
type Fence interface {
	// Wait blocks until the fence is signaled or timeout (nanoseconds) expires.
	Wait(timeout uint64) error
	Reset() error
	Destroy()
}

// Semaphore is a GPU to GPU signal.
type Semaphore interface {
	Destroy()
}

type SyncDevice interface {
	CreateSemaphore() (Semaphore, error)
	CreateFence(signaled bool) (Fence, error)
}

// AcquireStatus reports whether the swapchain still matches the surface.
type AcquireStatus uint8

const (
	AcquireSuccess AcquireStatus = iota
	// The image is usable but the swapchain should be recreated.
	AcquireSuboptimal
	// The swapchain can no longer be used and must be recreated.
	AcquireOutOfDate
)

func (s AcquireStatus) String() string {
	switch s {
	case AcquireSuccess:
		return "success"
	case AcquireSuboptimal:
		return "suboptimal"
	case AcquireOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// Swapchain owns the presentable images and the framebuffers built on them.
type Swapchain interface {
	ImageCount() int
	Extent() (width, height uint32)
	AcquireNextImage(timeout uint64, signal Semaphore) (uint32, AcquireStatus, error)
	Present(imageIndex uint32, wait Semaphore) (AcquireStatus, error)
	// Recreate rebuilds the swapchain, its image views and framebuffers for the given size.
	Recreate(width, height uint32) error
}

/** @brief One indexed draw over the shared geometry, reading ObjectData[ObjectIndex]. */
type DrawCommand struct {
	FirstIndex  uint32
	IndexCount  uint32
	ObjectIndex uint32
}

/** @brief Everything the backend needs to record the command buffer of one swapchain image. */
type FrameCommands struct {
	ImageIndex uint32
	Width      uint32
	Height     uint32
	ClearColor [4]float32
	// dynamic offsets of the frame slot's camera and object regions
	CameraOffset uint64
	ObjectOffset uint64
	Vertices     memory.BufferSlice
	Indices      memory.BufferSlice
	Draws        []DrawCommand
}

// Device is the part of the graphics backend the frame loop drives.
type Device interface {
	SyncDevice
	WaitIdle() error
	// ResizeCommandBuffers makes one primary command buffer available per swapchain image.
	ResizeCommandBuffers(count int) error
	// BindSceneBuffers points the descriptor set at the camera uniform and
	// object storage buffers. Each binding covers one frame slot's region of
	// the given size; RecordFrame selects the region with dynamic offsets.
	BindSceneBuffers(camera memory.Buffer, cameraRange uint64, objects memory.Buffer, objectRange uint64) error
	RecordFrame(frame *FrameCommands) error
	// Submit queues the command buffer of imageIndex. It waits on wait at the
	// colour output stage and signals signal and fence on completion.
	Submit(imageIndex uint32, wait, signal Semaphore, fence Fence) error
}

// Window exposes what swapchain recreation needs from the platform.
type Window interface {
	FramebufferSize() (width, height int)
	// WaitEvents blocks until the window receives an event.
	WaitEvents()
}

type SceneSource interface {
	RenderableNodes() []uint32
	Node(index uint32) *scene.Node
	UpdateWorldTransforms()
}

type MaterialSource interface {
	Get(index uint32) *metadata.Material
}

type CameraSource interface {
	ViewProjection(aspect float32) mgl32.Mat4
}
