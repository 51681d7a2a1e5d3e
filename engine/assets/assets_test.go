package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]AssetType{
		"models/box.gltf":         AssetTypeModel,
		"models/box.GLB":          AssetTypeModel,
		"shaders/object.vert":     AssetTypeNone,
		"shaders/object.vert.spv": AssetTypeShader,
		"textures/wall.png":       AssetTypeTexture,
		"readme.md":               AssetTypeNone,
	}
	for path, expected := range cases {
		if got := determineAssetType(path); got != expected {
			t.Errorf("determineAssetType(%s): expected %s, got %s", path, expected, got)
		}
	}
}

func TestInitializeIndexesWithoutWatching(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "models", "box.gltf")
	if err := os.MkdirAll(filepath.Dir(model), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(model, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	am := NewAssetManager()
	if err := am.Initialize(dir, false); err != nil {
		t.Fatalf("Initialize: unexpected error %v", err)
	}
	defer am.Shutdown()

	info, ok := am.Lookup(model)
	if !ok || info.Type != AssetTypeModel {
		t.Errorf("Lookup(%s): expected model, got %v (found %v)", model, info.Type, ok)
	}
	if _, ok := am.Lookup(filepath.Join(dir, "notes.txt")); ok {
		t.Errorf("Lookup: unknown file types should not be indexed")
	}
	if events := am.Poll(); len(events) != 0 {
		t.Errorf("Poll without watcher: expected no events, got %v", events)
	}
}

func TestWatcherReportsModifiedModel(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "box.gltf")
	if err := os.WriteFile(model, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	am := NewAssetManager()
	if err := am.Initialize(dir, true); err != nil {
		t.Fatalf("Initialize: unexpected error %v", err)
	}
	defer am.Shutdown()

	if err := os.WriteFile(model, []byte(`{"asset":{"version":"2.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range am.Poll() {
			if ev.Path == filepath.Clean(model) {
				if ev.Type != AssetTypeModel {
					t.Errorf("event type: expected model, got %s", ev.Type)
				}
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("no reload event for %s", model)
}

func TestShutdownIsIdempotent(t *testing.T) {
	am := NewAssetManager()
	if err := am.Initialize(t.TempDir(), true); err != nil {
		t.Fatalf("Initialize: unexpected error %v", err)
	}
	am.Shutdown()
	am.Shutdown()
}
