package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	/** @brief Number of frames the CPU may record ahead of the GPU. */
	MaxFramesInFlight int `toml:"max_frames_in_flight"`
	/** @brief Capacity of the per-object storage buffer and of the bindless texture array. */
	MaxSceneObjects int `toml:"max_scene_objects"`
	/** @brief Size in bytes of the device-local vertex arena. */
	VertexArenaSize uint64 `toml:"vertex_arena_size"`
	/** @brief Size in bytes of the device-local index arena. */
	IndexArenaSize   uint64     `toml:"index_arena_size"`
	Validation       bool       `toml:"validation"`
	ValidationLayers []string   `toml:"validation_layers"`
	DeviceExtensions []string   `toml:"device_extensions"`
	ClearColor       [4]float32 `toml:"clear_color"`
	ShaderDir        string     `toml:"shader_dir"`
}

type SceneConfig struct {
	// ModelPath is a glTF file; the procedural cube is used when it is empty or fails to load.
	ModelPath string     `toml:"model_path"`
	BaseColor [4]float32 `toml:"base_color"`
}

type CameraConfig struct {
	Kind             string     `toml:"kind"`
	FovY             float32    `toml:"fov"`
	OrthoHeight      float32    `toml:"ortho_height"`
	Near             float32    `toml:"near"`
	Far              float32    `toml:"far"`
	Position         [3]float32 `toml:"position"`
	Yaw              float32    `toml:"yaw"`
	Pitch            float32    `toml:"pitch"`
	MoveSpeed        float32    `toml:"move_speed"`
	MouseSensitivity float32    `toml:"mouse_sensitivity"`
}

type AssetsConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// Config is the whole runtime configuration, read from a TOML file.
type Config struct {
	LogLevel string         `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Scene    SceneConfig    `toml:"scene"`
	Camera   CameraConfig   `toml:"camera"`
	Assets   AssetsConfig   `toml:"assets"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: string(LogLevelInfo),
		Window: WindowConfig{
			Title:  "Lumen",
			X:      100,
			Y:      100,
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			MaxFramesInFlight: 2,
			MaxSceneObjects:   16,
			VertexArenaSize:   4 * 1024 * 1024,
			IndexArenaSize:    2 * 1024 * 1024,
			Validation:        true,
			ValidationLayers:  []string{"VK_LAYER_KHRONOS_validation"},
			DeviceExtensions: []string{
				"VK_KHR_swapchain",
				"VK_KHR_buffer_device_address",
				"VK_EXT_descriptor_indexing",
			},
			ClearColor: [4]float32{0, 0, 0, 1},
			ShaderDir:  "assets/shaders",
		},
		Scene: SceneConfig{
			BaseColor: [4]float32{1, 1, 1, 1},
		},
		Camera: CameraConfig{
			Kind:             "perspective",
			FovY:             60,
			OrthoHeight:      10,
			Near:             0.1,
			Far:              100,
			Position:         [3]float32{2, 2, 2},
			Yaw:              -135,
			Pitch:            -35,
			MoveSpeed:        3.5,
			MouseSensitivity: 0.15,
		},
		Assets: AssetsConfig{
			Dir:   "assets",
			Watch: true,
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := DecodeConfig(f, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig overlays the TOML document in r onto cfg and validates the result.
func DecodeConfig(r io.Reader, cfg *Config) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if _, ok := ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size must be non-zero", ErrInvalidConfig)
	}
	if c.Renderer.MaxFramesInFlight < 1 {
		return fmt.Errorf("%w: max_frames_in_flight must be at least 1", ErrInvalidConfig)
	}
	if c.Renderer.MaxSceneObjects < 1 {
		return fmt.Errorf("%w: max_scene_objects must be at least 1", ErrInvalidConfig)
	}
	if c.Renderer.VertexArenaSize == 0 || c.Renderer.IndexArenaSize == 0 {
		return fmt.Errorf("%w: arena sizes must be non-zero", ErrInvalidConfig)
	}
	switch c.Camera.Kind {
	case "perspective", "orthographic":
	default:
		return fmt.Errorf("%w: camera kind %q", ErrInvalidConfig, c.Camera.Kind)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("%w: camera clip planes near=%v far=%v", ErrInvalidConfig, c.Camera.Near, c.Camera.Far)
	}
	return nil
}
