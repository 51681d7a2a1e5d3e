package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

/**
 * @brief The application window. Input is forwarded to an InputHandler from
 * the GLFW callbacks, which only run inside PollEvents and WaitEvents.
 */
type Platform struct {
	Window *glfw.Window

	input    core.InputHandler
	onResize func(width, height int)
}

func New(input core.InputHandler) *Platform {
	return &Platform{input: input}
}

func (p *Platform) Startup(config core.WindowConfig) error {
	if err := glfw.Init(); err != nil {
		err = fmt.Errorf("failed to initialize glfw: %w", err)
		core.LogError(err.Error())
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		err := fmt.Errorf("glfw reports no Vulkan loader")
		core.LogError(err.Error())
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(config.Width), int(config.Height), config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		err = fmt.Errorf("failed to create window: %w", err)
		core.LogError(err.Error())
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(int(config.X), int(config.Y))
	p.Window.Show()

	core.LogInfo("window created: %s (%dx%d)", config.Title, config.Width, config.Height)
	return nil
}

// OnResize registers fn to be called with the new framebuffer size.
func (p *Platform) OnResize(fn func(width, height int)) {
	p.onResize = fn
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

func (p *Platform) FramebufferSize() (int, int) {
	return p.Window.GetFramebufferSize()
}

func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surface, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat || p.input == nil {
		return
	}
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}
	if code := translateKey(key); code != core.KEY_UNKNOWN {
		p.input.ProcessKey(code, action == glfw.Press)
	}
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if p.input == nil {
		return
	}
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	p.input.ProcessButton(b, action == glfw.Press)
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	if p.input != nil {
		p.input.ProcessMouseMove(xpos, ypos)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.onResize != nil {
		p.onResize(width, height)
	}
}

// translateKey maps GLFW key codes onto the engine's. Letters share their ASCII value.
func translateKey(key glfw.Key) core.KeyCode {
	switch {
	case key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KeyCode(key)
	case key >= glfw.KeyF1 && key <= glfw.KeyF12:
		return core.KEY_F1 + core.KeyCode(key-glfw.KeyF1)
	}
	switch key {
	case glfw.KeySpace:
		return core.KEY_SPACE
	case glfw.KeyEscape:
		return core.KEY_ESCAPE
	case glfw.KeyEnter:
		return core.KEY_ENTER
	case glfw.KeyTab:
		return core.KEY_TAB
	case glfw.KeyBackspace:
		return core.KEY_BACKSPACE
	case glfw.KeyLeft:
		return core.KEY_LEFT
	case glfw.KeyRight:
		return core.KEY_RIGHT
	case glfw.KeyUp:
		return core.KEY_UP
	case glfw.KeyDown:
		return core.KEY_DOWN
	case glfw.KeyLeftShift:
		return core.KEY_LSHIFT
	case glfw.KeyRightShift:
		return core.KEY_RSHIFT
	case glfw.KeyLeftControl:
		return core.KEY_LCONTROL
	case glfw.KeyRightControl:
		return core.KEY_RCONTROL
	}
	return core.KEY_UNKNOWN
}
