package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-4

func TestCameraPitchIsClamped(t *testing.T) {
	c := NewPerspectiveCamera()
	c.SetYawPitch(10, 120)
	if _, pitch := c.YawPitch(); pitch != 89 {
		t.Errorf("pitch: expected 89, got %v", pitch)
	}
	c.AddYawPitch(0, -500)
	if _, pitch := c.YawPitch(); pitch != -89 {
		t.Errorf("pitch: expected -89, got %v", pitch)
	}
}

func TestCameraFrontFollowsYawPitch(t *testing.T) {
	c := NewPerspectiveCamera()
	c.SetYawPitch(0, 0)
	front := c.Front()
	if !front.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, eps) {
		t.Errorf("front at yaw 0: expected +X, got %v", front)
	}
	c.SetYawPitch(90, 0)
	front = c.Front()
	if !front.ApproxEqualThreshold(mgl32.Vec3{0, 1, 0}, eps) {
		t.Errorf("front at yaw 90: expected +Y, got %v", front)
	}
	up := c.Up(front)
	if !up.ApproxEqualThreshold(mgl32.Vec3{0, 0, 1}, eps) {
		t.Errorf("up: expected +Z, got %v", up)
	}
}

func TestCameraMoveInvalidatesView(t *testing.T) {
	c := NewPerspectiveCamera()
	before := c.View()
	c.Move(mgl32.Vec3{1, 0, 0}, 2)
	if !c.Position().ApproxEqual(mgl32.Vec3{2, 0, 0}) {
		t.Errorf("position: expected (2,0,0), got %v", c.Position())
	}
	if c.View().ApproxEqual(before) {
		t.Errorf("view matrix was not rebuilt after Move")
	}
}

func TestViewProjectionFlipsY(t *testing.T) {
	for _, c := range []*Camera{NewPerspectiveCamera(), NewOrthographicCamera()} {
		proj := c.ProjectionMatrix(1.5)
		vp := c.ViewProjection(1.5)
		flipped := proj
		flipped.Set(1, 1, -proj.At(1, 1))
		expected := flipped.Mul4(c.View())
		if !vp.ApproxEqualThreshold(expected, eps) {
			t.Errorf("%s: view projection mismatch", c.Kind)
		}
		if proj.At(1, 1) <= 0 {
			t.Errorf("%s: expected positive projection Y scale, got %v", c.Kind, proj.At(1, 1))
		}
	}
}

func TestOrthographicWidthFollowsAspect(t *testing.T) {
	c := NewOrthographicCamera()
	proj := c.ProjectionMatrix(2)
	// halfHeight = 5, halfWidth = 10 → x scale 1/10, y scale 1/5
	if got := proj.At(0, 0); got < 0.1-eps || got > 0.1+eps {
		t.Errorf("ortho x scale: expected 0.1, got %v", got)
	}
	if got := proj.At(1, 1); got < 0.2-eps || got > 0.2+eps {
		t.Errorf("ortho y scale: expected 0.2, got %v", got)
	}
}
