package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type fakeCamera struct {
	position   mgl32.Vec3
	yaw, pitch float32
}

func (c *fakeCamera) Front() mgl32.Vec3                     { return mgl32.Vec3{1, 0, 0} }
func (c *fakeCamera) Up(front mgl32.Vec3) mgl32.Vec3        { return mgl32.Vec3{0, 0, 1} }
func (c *fakeCamera) Right(front, up mgl32.Vec3) mgl32.Vec3 { return front.Cross(up) }
func (c *fakeCamera) Move(d mgl32.Vec3, dist float32)       { c.position = c.position.Add(d.Mul(dist)) }
func (c *fakeCamera) AddYawPitch(y, p float32)              { c.yaw += y; c.pitch += p }

func TestInputUpdateWithoutCamera(t *testing.T) {
	im := NewInputManager(3.5, 0.15)
	im.ProcessKey(KEY_W, true)
	if im.Update(1) {
		t.Errorf("update without camera: expected false")
	}
	if !im.IsKeyDown(KEY_W) {
		t.Errorf("key state should still be tracked without a camera")
	}
}

func TestInputKeyboardMovesCamera(t *testing.T) {
	cam := &fakeCamera{}
	im := NewInputManager(2, 0.15)
	im.SetCamera(cam)

	im.ProcessKey(KEY_W, true)
	if !im.Update(0.5) {
		t.Errorf("update with W held: expected true")
	}
	if !cam.position.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("position after W: expected (1,0,0), got %v", cam.position)
	}

	im.ProcessKey(KEY_W, false)
	im.ProcessKey(KEY_E, true)
	im.Update(1)
	if !cam.position.ApproxEqual(mgl32.Vec3{1, 0, 2}) {
		t.Errorf("position after E: expected (1,0,2), got %v", cam.position)
	}

	im.ProcessKey(KEY_E, false)
	if im.Update(1) {
		t.Errorf("update with no keys held and no mouse delta: expected false")
	}
}

func TestInputAnyHeldKeyReportsChange(t *testing.T) {
	cam := &fakeCamera{}
	im := NewInputManager(1, 1)
	im.SetCamera(cam)
	im.ProcessKey(KEY_SPACE, true)
	if !im.Update(1) {
		t.Errorf("held key: expected true")
	}
	if cam.position != (mgl32.Vec3{}) {
		t.Errorf("unbound key moved the camera to %v", cam.position)
	}
}

func TestInputMouseLookRequiresRightButton(t *testing.T) {
	cam := &fakeCamera{}
	im := NewInputManager(1, 0.5)
	im.SetCamera(cam)

	// first sample only records the cursor
	im.ProcessMouseMove(100, 100)
	im.ProcessMouseMove(110, 90)
	if im.Update(0.016) {
		t.Errorf("mouse move without right button: expected false")
	}
	if cam.yaw != 0 || cam.pitch != 0 {
		t.Errorf("camera rotated without right button: yaw %v pitch %v", cam.yaw, cam.pitch)
	}

	im.ProcessButton(BUTTON_RIGHT, true)
	im.ProcessMouseMove(120, 80)
	if !im.Update(0.016) {
		t.Errorf("mouse drag: expected true")
	}
	if cam.yaw != 5 || cam.pitch != 5 {
		t.Errorf("drag: expected yaw 5 pitch 5, got yaw %v pitch %v", cam.yaw, cam.pitch)
	}

	if im.Update(0.016) {
		t.Errorf("update after delta consumed: expected false")
	}
}

func TestInputQueueOverflowDropsEvents(t *testing.T) {
	im := NewInputManager(1, 1)
	for i := 0; i < inputQueueSize+10; i++ {
		im.ProcessMouseMove(float64(i), 0)
	}
	im.ProcessKey(KEY_W, true)
	im.Update(0)
	if im.IsKeyDown(KEY_W) {
		t.Errorf("key event past a full queue should have been dropped")
	}
}
