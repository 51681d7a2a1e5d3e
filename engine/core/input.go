package core

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/containers"
)

// InputHandler receives raw window input. The platform layer calls it from
// its GLFW callbacks, which run on the main thread inside PollEvents.
type InputHandler interface {
	ProcessKey(key KeyCode, pressed bool)
	ProcessButton(button Button, pressed bool)
	ProcessMouseMove(x, y float64)
}

// CameraController is the part of a camera the input manager drives.
type CameraController interface {
	Front() mgl32.Vec3
	Up(front mgl32.Vec3) mgl32.Vec3
	Right(front, up mgl32.Vec3) mgl32.Vec3
	Move(direction mgl32.Vec3, distance float32)
	AddYawPitch(yawOffset, pitchOffset float32)
}

type inputEventKind uint8

const (
	inputEventKey inputEventKind = iota
	inputEventButton
	inputEventMouseMove
)

type inputEvent struct {
	kind    inputEventKind
	key     KeyCode
	button  Button
	pressed bool
	x, y    float64
}

const inputQueueSize = 512

// Keyboard state structure
type KeyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

// Mouse state structure
type MouseState struct {
	X       float64
	Y       float64
	Buttons [BUTTON_MAX_BUTTONS]bool
}

/**
 * @brief Turns queued window input into camera motion. Keys move the camera
 * along its local axes, dragging with the right mouse button rotates it.
 */
type InputManager struct {
	camera CameraController
	events *containers.RingQueue[inputEvent]

	keyboard     KeyboardState
	mouse        MouseState
	pressedCount int

	firstMouseUpdate bool
	pendingDeltaX    float64
	pendingDeltaY    float64

	MoveSpeed        float32
	MouseSensitivity float32
}

func NewInputManager(moveSpeed, mouseSensitivity float32) *InputManager {
	return &InputManager{
		events:           containers.NewRingQueue[inputEvent](inputQueueSize),
		firstMouseUpdate: true,
		MoveSpeed:        moveSpeed,
		MouseSensitivity: mouseSensitivity,
	}
}

func (im *InputManager) SetCamera(camera CameraController) {
	im.camera = camera
}

func (im *InputManager) ProcessKey(key KeyCode, pressed bool) {
	im.enqueue(inputEvent{kind: inputEventKey, key: key, pressed: pressed})
}

func (im *InputManager) ProcessButton(button Button, pressed bool) {
	im.enqueue(inputEvent{kind: inputEventButton, button: button, pressed: pressed})
}

func (im *InputManager) ProcessMouseMove(x, y float64) {
	im.enqueue(inputEvent{kind: inputEventMouseMove, x: x, y: y})
}

func (im *InputManager) enqueue(ev inputEvent) {
	if err := im.events.Enqueue(ev); err != nil {
		LogWarn("input queue: dropping event: %s", err)
	}
}

func (im *InputManager) IsKeyDown(key KeyCode) bool {
	if key >= KEYS_MAX_KEYS {
		return false
	}
	return im.keyboard.Keys[key]
}

func (im *InputManager) IsButtonDown(button Button) bool {
	if button >= BUTTON_MAX_BUTTONS {
		return false
	}
	return im.mouse.Buttons[button]
}

// Update drains the queued events and applies them to the camera. It reports
// whether the camera changed, i.e. a key was held or the mouse dragged it.
func (im *InputManager) Update(deltaTime float32) bool {
	im.drain()
	if im.camera == nil {
		return false
	}

	hadMouseDelta := im.pendingDeltaX != 0 || im.pendingDeltaY != 0
	im.applyMouse()
	im.applyKeyboard(deltaTime)

	return im.pressedCount > 0 || hadMouseDelta
}

func (im *InputManager) drain() {
	for !im.events.IsEmpty() {
		ev, err := im.events.Dequeue()
		if err != nil {
			return
		}
		switch ev.kind {
		case inputEventKey:
			im.handleKey(ev.key, ev.pressed)
		case inputEventButton:
			if ev.button < BUTTON_MAX_BUTTONS {
				im.mouse.Buttons[ev.button] = ev.pressed
			}
		case inputEventMouseMove:
			im.handleMouseMove(ev.x, ev.y)
		}
	}
}

func (im *InputManager) handleKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS || im.keyboard.Keys[key] == pressed {
		return
	}
	im.keyboard.Keys[key] = pressed
	if pressed {
		im.pressedCount++
	} else {
		im.pressedCount--
	}
}

func (im *InputManager) handleMouseMove(x, y float64) {
	if im.firstMouseUpdate {
		im.mouse.X, im.mouse.Y = x, y
		im.firstMouseUpdate = false
		return
	}

	xoffset := x - im.mouse.X
	// screen y grows downwards
	yoffset := im.mouse.Y - y
	im.mouse.X, im.mouse.Y = x, y

	if !im.mouse.Buttons[BUTTON_RIGHT] {
		return
	}
	im.pendingDeltaX += xoffset
	im.pendingDeltaY += yoffset
}

func (im *InputManager) applyMouse() {
	if !im.mouse.Buttons[BUTTON_RIGHT] {
		im.pendingDeltaX, im.pendingDeltaY = 0, 0
		return
	}
	if im.pendingDeltaX == 0 && im.pendingDeltaY == 0 {
		return
	}
	im.camera.AddYawPitch(
		float32(im.pendingDeltaX)*im.MouseSensitivity,
		float32(im.pendingDeltaY)*im.MouseSensitivity,
	)
	im.pendingDeltaX, im.pendingDeltaY = 0, 0
}

func (im *InputManager) applyKeyboard(deltaTime float32) {
	if im.pressedCount == 0 {
		return
	}

	front := im.camera.Front()
	up := im.camera.Up(front)
	right := im.camera.Right(front, up)
	velocity := im.MoveSpeed * deltaTime

	if im.keyboard.Keys[KEY_W] {
		im.camera.Move(front, velocity)
	}
	if im.keyboard.Keys[KEY_S] {
		im.camera.Move(front.Mul(-1), velocity)
	}
	if im.keyboard.Keys[KEY_A] {
		im.camera.Move(right.Mul(-1), velocity)
	}
	if im.keyboard.Keys[KEY_D] {
		im.camera.Move(right, velocity)
	}
	if im.keyboard.Keys[KEY_E] {
		im.camera.Move(up, velocity)
	}
	if im.keyboard.Keys[KEY_Q] {
		im.camera.Move(up.Mul(-1), velocity)
	}
}
