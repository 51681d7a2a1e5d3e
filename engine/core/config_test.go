package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: unexpected error %v", err)
	}
	if cfg.Renderer.MaxFramesInFlight != 2 {
		t.Errorf("frames in flight: expected 2, got %d", cfg.Renderer.MaxFramesInFlight)
	}
	if cfg.Renderer.VertexArenaSize != 4<<20 {
		t.Errorf("vertex arena: expected %d, got %d", 4<<20, cfg.Renderer.VertexArenaSize)
	}
	if cfg.Renderer.IndexArenaSize != 2<<20 {
		t.Errorf("index arena: expected %d, got %d", 2<<20, cfg.Renderer.IndexArenaSize)
	}
}

func TestDecodeConfigOverlaysDefaults(t *testing.T) {
	doc := `
log_level = "debug"

[window]
width = 1280

[renderer]
max_frames_in_flight = 3

[camera]
kind = "orthographic"
`
	cfg := DefaultConfig()
	if err := DecodeConfig(strings.NewReader(doc), cfg); err != nil {
		t.Fatalf("decode: unexpected error %v", err)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("width: expected 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 600 {
		t.Errorf("height: expected default 600, got %d", cfg.Window.Height)
	}
	if cfg.Renderer.MaxFramesInFlight != 3 {
		t.Errorf("frames in flight: expected 3, got %d", cfg.Renderer.MaxFramesInFlight)
	}
	if cfg.Camera.Kind != "orthographic" {
		t.Errorf("camera kind: expected orthographic, got %s", cfg.Camera.Kind)
	}
}

func TestDecodeConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "[renderer]\nbogus = 1\n"},
		{"zero frames", "[renderer]\nmax_frames_in_flight = 0\n"},
		{"bad camera", "[camera]\nkind = \"fisheye\"\n"},
		{"bad level", "log_level = \"loud\"\n"},
		{"bad clip", "[camera]\nnear = 5.0\nfar = 1.0\n"},
	}
	for _, tt := range tests {
		err := DecodeConfig(strings.NewReader(tt.doc), DefaultConfig())
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: unexpected error %v", err)
	}
	if cfg.Window.Width != 800 {
		t.Errorf("width: expected 800, got %d", cfg.Window.Width)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.toml")
	if err := os.WriteFile(path, []byte("[scene]\nmodel_path = \"box.gltf\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: unexpected error %v", err)
	}
	if cfg.Scene.ModelPath != "box.gltf" {
		t.Errorf("model path: expected box.gltf, got %q", cfg.Scene.ModelPath)
	}
}
