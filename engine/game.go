package engine

/**
 * @brief Hooks an application plugs into the engine loop. Every hook is
 * optional and runs on the main thread.
 */
type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Initialize runs once the renderer and the first scene are ready.
type Initialize func(e *Engine) error

// Update runs every frame before the frame is drawn. deltaTime is in seconds.
type Update func(e *Engine, deltaTime float32) error

type OnResize func(width uint32, height uint32) error

// Shutdown runs after the device went idle, before any resource is released.
type Shutdown func() error
