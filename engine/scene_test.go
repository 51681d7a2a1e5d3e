package engine

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/spaghettifunk/lumen/engine/systems"
)

func newSystems(t *testing.T, maxTextures uint32) (*systems.MaterialSystem, *systems.TextureSystem) {
	t.Helper()
	ts, err := systems.NewTextureSystem(&systems.TextureSystemConfig{MaxTextureCount: maxTextures})
	if err != nil {
		t.Fatal(err)
	}
	return systems.NewMaterialSystem(&systems.MaterialSystemConfig{}, [4]float32{0.5, 0.5, 0.5, 1}), ts
}

func triangle(material uint32) metadata.Mesh {
	return metadata.Mesh{
		Vertices:      make([]metadata.Vertex, 3),
		Indices:       []uint32{0, 1, 2},
		MaterialIndex: material,
	}
}

func TestBuildSceneCube(t *testing.T) {
	ms, ts := newSystems(t, 4)
	g := scene.NewGraph()

	ranges, err := buildScene(cubeScene(), ms, ts, g)
	if err != nil {
		t.Fatalf("buildScene: unexpected error %v", err)
	}
	if len(ranges) != 1 {
		t.Fatalf("ranges: expected 1, got %d", len(ranges))
	}
	if ranges[0].FirstIndex != 0 || ranges[0].IndexCount != 36 {
		t.Errorf("cube range: expected 0+36, got %d+%d", ranges[0].FirstIndex, ranges[0].IndexCount)
	}
	node := g.Node(ranges[0].Node)
	if node == nil || !node.Renderable {
		t.Fatalf("draw node should be renderable")
	}
	if node.MaterialIndex != ms.DefaultIndex() {
		t.Errorf("cube material: expected default, got %d", node.MaterialIndex)
	}
	if ts.Count() != 0 || ms.Count() != 1 {
		t.Errorf("cube should add no textures or materials, got %d and %d", ts.Count(), ms.Count()-1)
	}
}

func TestBuildSceneRemapsMaterialsAndTextures(t *testing.T) {
	ms, ts := newSystems(t, 4)
	g := scene.NewGraph()

	plain := metadata.NewMaterial("plain")
	textured := metadata.NewMaterial("textured")
	textured.BaseColorTexture = 1
	textured.EmissiveTexture = 0 // not decoded
	textured.NormalTexture = 7   // out of range

	result := &loaders.GLTFResult{
		Model: &metadata.Model{Meshes: []metadata.Mesh{
			triangle(0),
			triangle(1),
			triangle(loaders.NoMaterial),
		}},
		Materials: []metadata.Material{plain, textured},
		Textures:  []*metadata.Texture{nil, {Name: "albedo", Width: 1, Height: 1, Pixels: make([]byte, 4)}},
		Nodes: []loaders.GLTFNode{
			{Name: "root", Local: mgl32.Translate3D(0, 0, 1), Meshes: []int{0}, Children: []int{1}},
			{Name: "child", Local: mgl32.Translate3D(2, 0, 0), Meshes: []int{1, 2}},
		},
		Roots: []int{0},
	}

	ranges, err := buildScene(result, ms, ts, g)
	if err != nil {
		t.Fatalf("buildScene: unexpected error %v", err)
	}

	expected := []uint32{0, 3, 6}
	if len(ranges) != len(expected) {
		t.Fatalf("ranges: expected %d, got %d", len(expected), len(ranges))
	}
	for i, rg := range ranges {
		if rg.FirstIndex != expected[i] || rg.IndexCount != 3 {
			t.Errorf("range %d: expected %d+3, got %d+%d", i, expected[i], rg.FirstIndex, rg.IndexCount)
		}
	}

	if ts.Count() != 1 {
		t.Fatalf("textures: expected 1 registered, got %d", ts.Count())
	}
	m := ms.Get(g.Node(ranges[1].Node).MaterialIndex)
	if m == nil || m.Name != "textured" {
		t.Fatalf("second mesh: expected textured material, got %+v", m)
	}
	if m.BaseColorTexture != 0 {
		t.Errorf("base colour texture: expected slot 0, got %d", m.BaseColorTexture)
	}
	if m.EmissiveTexture != metadata.NoTexture || m.NormalTexture != metadata.NoTexture {
		t.Errorf("missing textures: expected NoTexture, got %d and %d", m.EmissiveTexture, m.NormalTexture)
	}
	if g.Node(ranges[2].Node).MaterialIndex != ms.DefaultIndex() {
		t.Errorf("mesh without material: expected default material")
	}

	if !slices.Equal(g.Roots(), []uint32{0}) {
		t.Errorf("roots: expected [0], got %v", g.Roots())
	}
	// child node -> its mesh instance: translated by both ancestors
	world := g.Node(ranges[1].Node).World
	if !world.ApproxEqual(mgl32.Translate3D(2, 0, 1)) {
		t.Errorf("nested world transform: expected translation (2,0,1), got %v", world)
	}
}

func TestBuildSceneSkipsBadReferences(t *testing.T) {
	ms, ts := newSystems(t, 1)
	g := scene.NewGraph()

	result := &loaders.GLTFResult{
		Model: &metadata.Model{Meshes: []metadata.Mesh{triangle(0), {}}},
		Textures: []*metadata.Texture{
			{Name: "a"},
			{Name: "b"}, // over capacity
		},
		Nodes: []loaders.GLTFNode{
			{Name: "n", Local: mgl32.Ident4(), Meshes: []int{0, 1, 5}, Children: []int{9}},
		},
	}

	ranges, err := buildScene(result, ms, ts, g)
	if err != nil {
		t.Fatalf("buildScene: unexpected error %v", err)
	}
	if len(ranges) != 1 {
		t.Errorf("ranges: expected only the non-empty mesh, got %d", len(ranges))
	}
	if ts.Count() != 1 {
		t.Errorf("textures: expected 1 within capacity, got %d", ts.Count())
	}
}

func TestBuildSceneSkipsCyclicChildren(t *testing.T) {
	ms, ts := newSystems(t, 1)
	g := scene.NewGraph()

	result := &loaders.GLTFResult{
		Model: &metadata.Model{Meshes: []metadata.Mesh{triangle(0)}},
		Nodes: []loaders.GLTFNode{
			{Name: "a", Local: mgl32.Translate3D(1, 0, 0), Meshes: []int{0}, Children: []int{1}},
			{Name: "b", Local: mgl32.Translate3D(0, 1, 0), Children: []int{2}},
			{Name: "c", Local: mgl32.Translate3D(0, 0, 1), Children: []int{0, 2}},
		},
		Roots: []int{0},
	}

	ranges, err := buildScene(result, ms, ts, g)
	if err != nil {
		t.Fatalf("buildScene: cyclic children should be skipped, got %v", err)
	}
	if len(ranges) != 1 {
		t.Fatalf("ranges: expected 1, got %d", len(ranges))
	}

	// a -> b -> c survives, c -> a and c -> c are dropped
	roots := g.Roots()
	if len(roots) != 1 {
		t.Fatalf("roots: expected a single root, got %v", roots)
	}
	if g.Node(roots[0]).Local != mgl32.Translate3D(1, 0, 0) {
		t.Errorf("root: expected node a, got %v", g.Node(roots[0]).Local)
	}
	for _, root := range roots {
		seen := map[uint32]bool{}
		stack := []uint32{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[n] {
				t.Fatalf("node %d reached twice from root %d", n, root)
			}
			seen[n] = true
			stack = append(stack, g.Node(n).Children...)
		}
		if len(seen) != 4 {
			t.Errorf("reachable nodes: expected 4 (three nodes and the mesh), got %d", len(seen))
		}
	}
}

func TestDropTextureSlots(t *testing.T) {
	ms, _ := newSystems(t, 1)
	m := metadata.NewMaterial("m")
	m.BaseColorTexture = 2
	m.NormalTexture = 3
	idx, _ := ms.Create(m)

	dropTextureSlots(ms, map[uint32]bool{2: true})

	got := ms.Get(idx)
	if got.BaseColorTexture != metadata.NoTexture {
		t.Errorf("failed slot: expected NoTexture, got %d", got.BaseColorTexture)
	}
	if got.NormalTexture != 3 {
		t.Errorf("uploaded slot: expected 3, got %d", got.NormalTexture)
	}
	if got.Generation != 1 {
		t.Errorf("generation: expected 1 after the update, got %d", got.Generation)
	}
	if ms.Get(ms.DefaultIndex()).Generation != 0 {
		t.Errorf("untouched default material should keep generation 0")
	}
}

func TestBuildSceneRejectsNil(t *testing.T) {
	ms, ts := newSystems(t, 1)
	if _, err := buildScene(nil, ms, ts, scene.NewGraph()); err == nil {
		t.Errorf("nil result: expected error")
	}
}

func TestNewCameraFromConfig(t *testing.T) {
	cfg := core.DefaultConfig().Camera
	cfg.Kind = "orthographic"
	cfg.Position = [3]float32{1, 2, 3}

	c := newCamera(cfg)
	if c.Position() != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("position: expected (1,2,3), got %v", c.Position())
	}
	if c.Kind.String() != "orthographic" {
		t.Errorf("kind: expected orthographic, got %s", c.Kind)
	}
	if c.Orthographic.Near != cfg.Near || c.Orthographic.Far != cfg.Far {
		t.Errorf("clip planes: expected %v/%v, got %v/%v", cfg.Near, cfg.Far, c.Orthographic.Near, c.Orthographic.Far)
	}

	var _ renderer.CameraSource = c
}
