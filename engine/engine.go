package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/platform"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/renderer/vulkan"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const maxMaterialCount uint32 = 1024

type Engine struct {
	currentStage Stage
	config       *core.Config
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool

	platform *platform.Platform
	input    *core.InputManager
	assets   *assets.AssetManager
	clock    *core.Clock
	metrics  *core.Metrics

	backend     *vulkan.VulkanBackend
	memory      *memory.MemoryManager
	vertexArena *memory.BufferArena
	indexArena  *memory.BufferArena
	renderer    *renderer.Renderer

	materials       *systems.MaterialSystem
	textures        *systems.TextureSystem
	graph           *scene.Graph
	sceneGeneration uint64
	camera          *components.Camera
}

func New(config *core.Config, g *Game) (*Engine, error) {
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if level, ok := core.ParseLogLevel(config.LogLevel); ok {
		core.SetLogLevel(level)
	}

	input := core.NewInputManager(config.Camera.MoveSpeed, config.Camera.MouseSensitivity)

	ts, err := systems.NewTextureSystem(&systems.TextureSystemConfig{
		MaxTextureCount: uint32(config.Renderer.MaxSceneObjects),
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		gameInstance: g,
		platform:     platform.New(input),
		input:        input,
		assets:       assets.NewAssetManager(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		materials:    systems.NewMaterialSystem(&systems.MaterialSystemConfig{MaxMaterialCount: maxMaterialCount}, config.Scene.BaseColor),
		textures:     ts,
		graph:        scene.NewGraph(),
		camera:       newCamera(config.Camera),
	}, nil
}

func newCamera(config core.CameraConfig) *components.Camera {
	var c *components.Camera
	if config.Kind == components.ProjectionOrthographic.String() {
		c = components.NewOrthographicCamera()
	} else {
		c = components.NewPerspectiveCamera()
	}
	c.Perspective = components.PerspectiveParams{FovYDegrees: config.FovY, Near: config.Near, Far: config.Far}
	c.Orthographic = components.OrthographicParams{ViewHeight: config.OrthoHeight, Near: config.Near, Far: config.Far}
	c.SetPosition(mgl32.Vec3(config.Position))
	c.SetYawPitch(config.Yaw, config.Pitch)
	return c
}

// Initialize brings up the window, the Vulkan backend and the renderer, then
// loads the configured scene. On failure everything created so far is released.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	if err := e.initialize(); err != nil {
		e.Shutdown()
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) initialize() error {
	cfg := e.config

	if err := e.platform.Startup(cfg.Window); err != nil {
		return err
	}
	e.platform.OnResize(e.onResized)
	e.input.SetCamera(e.camera)

	if err := e.assets.Initialize(cfg.Assets.Dir, cfg.Assets.Watch); err != nil {
		// The engine still runs with the procedural cube.
		core.LogWarn("asset directory %s unavailable: %s", cfg.Assets.Dir, err)
	}

	width, height := e.platform.FramebufferSize()
	backend, err := vulkan.NewBackend(vulkan.BackendConfig{
		ApplicationName:  cfg.Window.Title,
		Validation:       cfg.Renderer.Validation,
		ValidationLayers: cfg.Renderer.ValidationLayers,
		DeviceExtensions: cfg.Renderer.DeviceExtensions,
		ShaderDir:        cfg.Renderer.ShaderDir,
		MaxTextures:      uint32(cfg.Renderer.MaxSceneObjects),
		Width:            uint32(width),
		Height:           uint32(height),
	}, e.platform)
	if err != nil {
		return err
	}
	e.backend = backend

	mm, err := memory.NewMemoryManager(backend.Allocator())
	if err != nil {
		return err
	}
	e.memory = mm

	e.vertexArena, err = memory.NewBufferArena(mm, cfg.Renderer.VertexArenaSize, memory.UsageVertex|memory.UsageTransferDst, memory.ResidencyDeviceLocal, 0)
	if err != nil {
		return err
	}
	e.indexArena, err = memory.NewBufferArena(mm, cfg.Renderer.IndexArenaSize, memory.UsageIndex|memory.UsageTransferDst, memory.ResidencyDeviceLocal, 0)
	if err != nil {
		return err
	}

	e.renderer, err = renderer.NewRenderer(renderer.RendererConfig{
		FramesInFlight:  cfg.Renderer.MaxFramesInFlight,
		MaxSceneObjects: cfg.Renderer.MaxSceneObjects,
		ClearColor:      cfg.Renderer.ClearColor,
	}, backend, backend.Swapchain(), e.platform, mm)
	if err != nil {
		return err
	}

	if err := e.loadScene(); err != nil {
		return err
	}
	if err := e.renderer.SetCamera(e.camera); err != nil {
		return err
	}

	if e.gameInstance != nil && e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	return nil
}

// loadModel returns the configured glTF scene, or the cube when there is none.
func (e *Engine) loadModel() *loaders.GLTFResult {
	path := e.config.Scene.ModelPath
	if path == "" {
		return cubeScene()
	}
	result, err := e.assets.LoadModel(path)
	if err != nil {
		core.LogWarn("falling back to the cube: %s", err)
		return cubeScene()
	}
	core.LogInfo("loaded %s: %d meshes, %d materials, %d textures", path, len(result.Model.Meshes), len(result.Materials), len(result.Textures))
	return result
}

// loadScene (re)builds the scene graph, materials, textures and geometry. The
// device must be idle.
func (e *Engine) loadScene() error {
	result := e.loadModel()

	e.releaseTextures()
	e.materials.Truncate()
	graph := scene.NewGraph()

	ranges, err := buildScene(result, e.materials, e.textures, graph)
	if err != nil {
		return err
	}

	failed := make(map[uint32]bool)
	for i, tex := range e.textures.Textures() {
		if err := e.backend.UploadTexture(e.memory, tex); err != nil {
			core.LogWarn("texture %q not uploaded: %s", tex.Name, err)
			failed[uint32(i)] = true
		}
	}
	dropTextureSlots(e.materials, failed)
	if err := e.backend.SetTextures(e.textures.Textures()); err != nil {
		return err
	}

	vertices, indices := result.Model.Flatten()
	e.vertexArena.Reset()
	e.indexArena.Reset()
	vertexSlice, err := memory.UploadToArena(e.memory, e.vertexArena, e.backend.Transfer(), metadata.VertexBytes(vertices), lmath.VertexBufferAlignment)
	if err != nil {
		return fmt.Errorf("vertex upload: %w", err)
	}
	indexSlice, err := memory.UploadToArena(e.memory, e.indexArena, e.backend.Transfer(), metadata.IndexBytes(indices), lmath.IndexBufferAlignment)
	if err != nil {
		return fmt.Errorf("index upload: %w", err)
	}

	if n := len(graph.RenderableNodes()); n > e.config.Renderer.MaxSceneObjects {
		core.LogWarn("scene has %d renderable nodes, only the first %d are drawn", n, e.config.Renderer.MaxSceneObjects)
	}

	e.graph = graph
	e.sceneGeneration++
	e.renderer.SetScene(graph, e.materials, e.materials.DefaultIndex(), e.config.Scene.BaseColor)
	e.renderer.SetGeometry(vertexSlice, indexSlice, ranges)
	core.LogDebug("scene built: %d nodes, %d draws, %d vertices, %d indices", graph.NodeCount(), len(ranges), len(vertices), len(indices))
	return nil
}

func (e *Engine) releaseTextures() {
	if e.backend != nil {
		for _, tex := range e.textures.Textures() {
			e.backend.DestroyTexture(tex)
		}
	}
	e.textures.Clear()
}

// handleReloads rebuilds the scene when a model or texture under the asset
// directory changed. Shader changes need a restart.
func (e *Engine) handleReloads() error {
	reload := false
	for _, ev := range e.assets.Poll() {
		switch ev.Type {
		case assets.AssetTypeModel, assets.AssetTypeTexture:
			core.LogInfo("%s changed: %s", ev.Type, ev.Path)
			reload = true
		case assets.AssetTypeShader:
			core.LogWarn("shader %s changed, restart to apply", ev.Path)
		}
	}
	if !reload {
		return nil
	}
	if err := e.renderer.Wait(); err != nil {
		return err
	}
	return e.loadScene()
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			e.platform.WaitEvents()
			e.clock.Tick()
			continue
		}

		e.clock.Update()
		delta := e.clock.Tick()
		frameStartTime := platform.GetAbsoluteTime()

		if e.input.Update(delta) {
			if err := e.renderer.UpdateCamera(); err != nil {
				return err
			}
		}

		if e.gameInstance != nil && e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}

		if err := e.handleReloads(); err != nil {
			core.LogError("asset reload failed: %s", err)
			return err
		}

		if err := e.renderer.DrawFrame(); err != nil {
			core.LogError("draw frame failed: %s", err)
			return err
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		if e.metrics.Update(frameElapsedTime) {
			core.LogDebug("%.0f fps, %.2f ms/frame", e.metrics.FPS(), e.metrics.FrameTime())
		}
	}
	return nil
}

// Stop asks the main loop to exit after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases everything in reverse creation order. It tolerates a
// partially initialized engine.
func (e *Engine) Shutdown() {
	if e.currentStage == EngineStageShuttingDown || e.currentStage == EngineStageUninitialized {
		return
	}
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()

	if e.renderer != nil {
		if err := e.renderer.Wait(); err != nil {
			core.LogError("wait idle on shutdown: %s", err)
		}
	}
	if e.gameInstance != nil && e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	if e.renderer != nil {
		e.renderer.Destroy()
		e.renderer = nil
	}
	if e.indexArena != nil {
		e.indexArena.Destroy()
	}
	if e.vertexArena != nil {
		e.vertexArena.Destroy()
	}
	e.releaseTextures()
	if e.memory != nil {
		e.memory.Close()
	}
	if e.backend != nil {
		e.backend.Shutdown()
		e.backend = nil
	}
	e.assets.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	core.LogInfo("engine shut down")
}

func (e *Engine) onResized(width, height int) {
	if width == 0 || height == 0 {
		if !e.isSuspended {
			core.LogInfo("window minimized, suspending")
		}
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("window restored, resuming")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.FramebufferResized()
	}
	if e.gameInstance != nil && e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(uint32(width), uint32(height)); err != nil {
			core.LogError(err.Error())
		}
	}
}

func (e *Engine) Config() *core.Config {
	return e.config
}

// Scene is the current graph. It is replaced whenever the scene is reloaded;
// SceneGeneration changes with it.
func (e *Engine) Scene() *scene.Graph {
	return e.graph
}

func (e *Engine) SceneGeneration() uint64 {
	return e.sceneGeneration
}

func (e *Engine) Camera() *components.Camera {
	return e.camera
}
