package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/math"
)

type ProjectionKind uint8

const (
	ProjectionPerspective ProjectionKind = iota
	ProjectionOrthographic
)

func (k ProjectionKind) String() string {
	switch k {
	case ProjectionPerspective:
		return "perspective"
	case ProjectionOrthographic:
		return "orthographic"
	}
	return "unknown"
}

/** @brief Vertical field of view perspective parameters. */
type PerspectiveParams struct {
	FovYDegrees float32
	Near        float32
	Far         float32
}

/** @brief Parameters of an orthographic box whose width follows the aspect ratio. */
type OrthographicParams struct {
	ViewHeight float32
	Near       float32
	Far        float32
}

const (
	minPitch float32 = -89.0
	maxPitch float32 = 89.0
)

/**
 * @brief A free-flying camera. The pose (position, yaw, pitch) is shared by
 * both projection kinds; Kind selects which parameter block is used.
 */
type Camera struct {
	/** @brief Which projection ProjectionMatrix builds. */
	Kind         ProjectionKind
	Perspective  PerspectiveParams
	Orthographic OrthographicParams

	position     mgl32.Vec3
	worldUp      mgl32.Vec3
	yawDegrees   float32
	pitchDegrees float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	isDirty    bool
	viewMatrix mgl32.Mat4
}

// NewPerspectiveCamera returns a camera at the origin looking down the default
// yaw/pitch with +Z as world up.
func NewPerspectiveCamera() *Camera {
	c := &Camera{Kind: ProjectionPerspective}
	c.Reset()
	return c
}

func NewOrthographicCamera() *Camera {
	c := &Camera{Kind: ProjectionOrthographic}
	c.Reset()
	return c
}

// Reset restores the pose and both parameter blocks to their defaults. Kind is kept.
func (c *Camera) Reset() {
	c.Perspective = PerspectiveParams{FovYDegrees: 60, Near: 0.1, Far: 100}
	c.Orthographic = OrthographicParams{ViewHeight: 10, Near: 0.1, Far: 100}
	c.position = mgl32.Vec3{}
	c.worldUp = mgl32.Vec3{0, 0, 1}
	c.yawDegrees = -135
	c.pitchDegrees = -35
	c.isDirty = true
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.isDirty = true
}

func (c *Camera) YawPitch() (float32, float32) {
	return c.yawDegrees, c.pitchDegrees
}

// SetYawPitch sets both angles in degrees. Pitch is clamped to [-89, 89].
func (c *Camera) SetYawPitch(yawDegrees, pitchDegrees float32) {
	c.yawDegrees = yawDegrees
	c.pitchDegrees = math.Clamp(pitchDegrees, minPitch, maxPitch)
	c.isDirty = true
}

func (c *Camera) AddYawPitch(yawOffset, pitchOffset float32) {
	c.SetYawPitch(c.yawDegrees+yawOffset, c.pitchDegrees+pitchOffset)
}

// Move translates the camera along direction by distance.
func (c *Camera) Move(direction mgl32.Vec3, distance float32) {
	c.position = c.position.Add(direction.Mul(distance))
	c.isDirty = true
}

func (c *Camera) Front() mgl32.Vec3 {
	yaw := mgl32.DegToRad(c.yawDegrees)
	pitch := mgl32.DegToRad(c.pitchDegrees)
	front := mgl32.Vec3{
		math.Cos(yaw) * math.Cos(pitch),
		math.Sin(yaw) * math.Cos(pitch),
		math.Sin(pitch),
	}
	return front.Normalize()
}

func (c *Camera) Up(front mgl32.Vec3) mgl32.Vec3 {
	right := front.Cross(c.worldUp).Normalize()
	return right.Cross(front).Normalize()
}

func (c *Camera) Right(front, up mgl32.Vec3) mgl32.Vec3 {
	return front.Cross(up).Normalize()
}

func (c *Camera) View() mgl32.Mat4 {
	if c.isDirty {
		front := c.Front()
		c.viewMatrix = mgl32.LookAtV(c.position, c.position.Add(front), c.Up(front))
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	switch c.Kind {
	case ProjectionOrthographic:
		o := c.Orthographic
		halfHeight := 0.5 * o.ViewHeight
		halfWidth := halfHeight * aspect
		return mgl32.Ortho(-halfWidth, halfWidth, -halfHeight, halfHeight, o.Near, o.Far)
	default:
		p := c.Perspective
		return mgl32.Perspective(mgl32.DegToRad(p.FovYDegrees), aspect, p.Near, p.Far)
	}
}

// ViewProjection returns projection * view with clip-space Y flipped for Vulkan.
func (c *Camera) ViewProjection(aspect float32) mgl32.Mat4 {
	proj := c.ProjectionMatrix(aspect)
	proj.Set(1, 1, -proj.At(1, 1))
	return proj.Mul4(c.View())
}
