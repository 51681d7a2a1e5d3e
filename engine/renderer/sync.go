package renderer

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Owns the semaphores and fences of the frame loop.
 * Frame slots (frames in flight) get an image-available semaphore and an
 * in-flight fence each. Swapchain images get a render-finished semaphore each,
 * since presentation of an image may still be pending when its slot comes round again.
 */
type FrameSyncManager struct {
	device         SyncDevice
	imageAvailable []Semaphore
	inFlight       []Fence
	renderFinished []Semaphore
}

func NewFrameSyncManager(device SyncDevice, framesInFlight, imageCount int) (*FrameSyncManager, error) {
	if framesInFlight < 1 {
		return nil, fmt.Errorf("%w: frames in flight must be at least 1", core.ErrSyncObjectCreation)
	}
	fsm := &FrameSyncManager{
		device:         device,
		imageAvailable: make([]Semaphore, 0, framesInFlight),
		inFlight:       make([]Fence, 0, framesInFlight),
	}

	for i := 0; i < framesInFlight; i++ {
		sem, err := device.CreateSemaphore()
		if err != nil {
			fsm.Destroy()
			err = fmt.Errorf("%w: image available semaphore %d: %w", core.ErrSyncObjectCreation, i, err)
			core.LogError(err.Error())
			return nil, err
		}
		fsm.imageAvailable = append(fsm.imageAvailable, sem)

		// create the fence in a signaled state so the first wait on each slot returns at once
		fence, err := device.CreateFence(true)
		if err != nil {
			fsm.Destroy()
			err = fmt.Errorf("%w: in flight fence %d: %w", core.ErrSyncObjectCreation, i, err)
			core.LogError(err.Error())
			return nil, err
		}
		fsm.inFlight = append(fsm.inFlight, fence)
	}

	if err := fsm.RecreateRenderFinishedSemaphores(imageCount); err != nil {
		fsm.Destroy()
		return nil, err
	}
	return fsm, nil
}

func (fsm *FrameSyncManager) FramesInFlight() int {
	return len(fsm.inFlight)
}

func (fsm *FrameSyncManager) ImageCount() int {
	return len(fsm.renderFinished)
}

// WaitForFrame blocks until the GPU has finished the last submission of slot.
func (fsm *FrameSyncManager) WaitForFrame(slot int) error {
	return fsm.inFlight[slot].Wait(core.InfiniteTimeout)
}

func (fsm *FrameSyncManager) ResetFence(slot int) error {
	return fsm.inFlight[slot].Reset()
}

func (fsm *FrameSyncManager) ImageAvailable(slot int) Semaphore {
	return fsm.imageAvailable[slot]
}

func (fsm *FrameSyncManager) InFlightFence(slot int) Fence {
	return fsm.inFlight[slot]
}

func (fsm *FrameSyncManager) RenderFinishedForImage(imageIndex uint32) (Semaphore, error) {
	if int(imageIndex) >= len(fsm.renderFinished) {
		return nil, fmt.Errorf("%w: render finished semaphore for image %d of %d", core.ErrIndexOutOfRange, imageIndex, len(fsm.renderFinished))
	}
	return fsm.renderFinished[imageIndex], nil
}

// RecreateRenderFinishedSemaphores replaces the per-image semaphores after the
// swapchain changed its image count. Per-frame objects are left alone.
func (fsm *FrameSyncManager) RecreateRenderFinishedSemaphores(imageCount int) error {
	for _, sem := range fsm.renderFinished {
		sem.Destroy()
	}
	fsm.renderFinished = make([]Semaphore, 0, imageCount)

	for i := 0; i < imageCount; i++ {
		sem, err := fsm.device.CreateSemaphore()
		if err != nil {
			err = fmt.Errorf("%w: render finished semaphore %d: %w", core.ErrSyncObjectCreation, i, err)
			core.LogError(err.Error())
			return err
		}
		fsm.renderFinished = append(fsm.renderFinished, sem)
	}
	return nil
}

// Destroy releases every object. The device must be idle.
func (fsm *FrameSyncManager) Destroy() {
	for _, sem := range fsm.imageAvailable {
		sem.Destroy()
	}
	for _, fence := range fsm.inFlight {
		fence.Destroy()
	}
	for _, sem := range fsm.renderFinished {
		sem.Destroy()
	}
	fsm.imageAvailable = nil
	fsm.inFlight = nil
	fsm.renderFinished = nil
}
