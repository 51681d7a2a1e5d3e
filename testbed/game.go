package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine"
	"github.com/spaghettifunk/lumen/engine/core"
)

// Radians per second the scene turns around the world up axis.
const spinSpeed float32 = 0.5

type TestGame struct {
	*engine.Game
}

type gameState struct {
	angle float32

	// local transforms of the root nodes as loaded, per scene generation
	generation uint64
	roots      []uint32
	base       []mgl32.Mat4

	width  uint32
	height uint32
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	state := g.State.(*gameState)
	state.capture(e)
	cfg := e.Config()
	state.width, state.height = cfg.Window.Width, cfg.Window.Height
	core.LogInfo("testbed ready: %d root nodes", len(state.roots))
	return nil
}

// Update spins every root of the scene. The roots are captured again whenever
// the engine reloads the scene.
func (g *TestGame) Update(e *engine.Engine, deltaTime float32) error {
	state := g.State.(*gameState)
	if state.generation != e.SceneGeneration() {
		state.capture(e)
	}

	state.angle += spinSpeed * deltaTime
	if state.angle > 2*math.Pi {
		state.angle -= 2 * math.Pi
	}
	rotation := mgl32.HomogRotate3DZ(state.angle)

	graph := e.Scene()
	for i, root := range state.roots {
		graph.SetLocalTransform(root, rotation.Mul4(state.base[i]))
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("shutting down testbed")
	return nil
}

func (s *gameState) capture(e *engine.Engine) {
	graph := e.Scene()
	s.generation = e.SceneGeneration()
	s.roots = append(s.roots[:0], graph.Roots()...)
	s.base = s.base[:0]
	for _, root := range s.roots {
		s.base = append(s.base, graph.Node(root).Local)
	}
}
