package systems

import (
	"testing"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func TestMaterialSystemDefaultAndCRUD(t *testing.T) {
	ms := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 3}, [4]float32{0.5, 0.5, 0.5, 1})
	def := ms.Get(ms.DefaultIndex())
	if def == nil || def.BaseColor != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Fatalf("default material: expected configured base colour, got %+v", def)
	}
	if def.BaseColorTexture != metadata.NoTexture {
		t.Errorf("default material should not reference a texture")
	}

	red := metadata.NewMaterial("red")
	red.BaseColor = [4]float32{1, 0, 0, 1}
	idx, err := ms.Create(red)
	if err != nil || idx != 1 {
		t.Fatalf("create: expected index 1, got %d (%v)", idx, err)
	}
	if ms.Count() != 2 {
		t.Errorf("count: expected 2, got %d", ms.Count())
	}

	red.Roughness = 0.25
	if !ms.Update(idx, red) {
		t.Errorf("update existing: expected true")
	}
	if got := ms.Get(idx); got.Roughness != 0.25 || got.Generation != 1 {
		t.Errorf("update: expected roughness 0.25 generation 1, got %v %d", got.Roughness, got.Generation)
	}
	if ms.Update(9, red) {
		t.Errorf("update unknown: expected false")
	}
	if ms.Get(9) != nil {
		t.Errorf("get unknown: expected nil")
	}

	_, _ = ms.Create(metadata.NewMaterial("third"))
	if _, err := ms.Create(metadata.NewMaterial("fourth")); err == nil {
		t.Errorf("create past capacity: expected error")
	}

	ms.Truncate()
	if ms.Count() != 1 {
		t.Errorf("truncate: expected only the default material, got %d", ms.Count())
	}
}

func TestTextureSystemDedupByName(t *testing.T) {
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 2})
	if err != nil {
		t.Fatal(err)
	}

	a := &metadata.Texture{Name: "albedo.png"}
	i1, _ := ts.Register(a)
	i2, _ := ts.Register(&metadata.Texture{Name: "albedo.png"})
	if i1 != i2 || ts.Count() != 1 {
		t.Errorf("dedup: expected same slot and one texture, got %d %d count %d", i1, i2, ts.Count())
	}
	if a.ID == uuid.Nil {
		t.Errorf("register should assign an id")
	}

	anon, _ := ts.Register(&metadata.Texture{})
	if anon != 1 {
		t.Errorf("anonymous texture: expected slot 1, got %d", anon)
	}
	if _, err := ts.Register(&metadata.Texture{}); err == nil {
		t.Errorf("register past capacity: expected error")
	}

	if idx, ok := ts.Find("albedo.png"); !ok || idx != 0 {
		t.Errorf("find: expected slot 0, got %d %v", idx, ok)
	}
	if _, ok := ts.Find(""); ok {
		t.Errorf("find empty name: expected miss")
	}
	if ts.Get(5) != nil {
		t.Errorf("get unknown: expected nil")
	}

	ts.Clear()
	if ts.Count() != 0 {
		t.Errorf("clear: expected empty system")
	}
	if _, ok := ts.Find("albedo.png"); ok {
		t.Errorf("clear: name lookup survived")
	}
}

func TestNewTextureSystemRejectsZeroCapacity(t *testing.T) {
	if _, err := NewTextureSystem(&TextureSystemConfig{}); err == nil {
		t.Errorf("zero capacity: expected error")
	}
}
