package loaders

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// 2x1 RGBA PNG: opaque red, then blue at half alpha.
const testPNG = "iVBORw0KGgoAAAANSUhEUgAAAAIAAAABCAYAAAD0In+KAAAADklEQVR4nGP4z8AAQg0AD3oDfnfpf5cAAAAASUVORK5CYII="

// One triangle: 3 float positions, 3 normalized RGBA8 colours, 3 UVs and
// 3 uint16 indices padded to 4 bytes.
const testTriangle = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "root", "translation": [1, 2, 3], "children": [1]},
    {"name": "tri", "mesh": 0, "scale": [2, 2, 2]}
  ],
  "meshes": [{"name": "triangle", "primitives": [{
    "attributes": {"POSITION": 0, "COLOR_0": 1, "TEXCOORD_0": 2},
    "indices": 3,
    "material": 0
  }]}],
  "materials": [{
    "name": "red",
    "pbrMetallicRoughness": {
      "baseColorFactor": [0.5, 0.25, 1, 1],
      "metallicFactor": 0.2,
      "roughnessFactor": 0.7,
      "baseColorTexture": {"index": 0}
    }
  }],
  "textures": [{"source": 0}],
  "images": [{"uri": "data:image/png;base64,` + testPNG + `"}],
  "buffers": [{"byteLength": 80, "uri": "data:application/octet-stream;base64,AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA/wAA/wD/AP8AAP//AAAAAAAAAAAAAIA/AAAAAAAAAAAAAIA/AAABAAIAAAA="}],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 12},
    {"buffer": 0, "byteOffset": 48, "byteLength": 24},
    {"buffer": 0, "byteOffset": 72, "byteLength": 6}
  ],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5121, "normalized": true, "count": 3, "type": "VEC4"},
    {"bufferView": 2, "componentType": 5126, "count": 3, "type": "VEC2"},
    {"bufferView": 3, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestGLTFLoaderTriangle(t *testing.T) {
	path := writeFile(t, "triangle.gltf", testTriangle)

	result, err := (&GLTFLoader{}).Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error %v", err)
	}

	if len(result.Model.Meshes) != 1 {
		t.Fatalf("meshes: expected 1, got %d", len(result.Model.Meshes))
	}
	mesh := result.Model.Meshes[0]
	if len(mesh.Vertices) != 3 || len(mesh.Indices) != 3 {
		t.Fatalf("mesh: expected 3 vertices and 3 indices, got %d and %d", len(mesh.Vertices), len(mesh.Indices))
	}
	if mesh.Vertices[1].Position != [3]float32{1, 0, 0} {
		t.Errorf("position 1: expected [1 0 0], got %v", mesh.Vertices[1].Position)
	}
	if mesh.Vertices[0].Color != [3]float32{1, 0, 0} || mesh.Vertices[2].Color != [3]float32{0, 0, 1} {
		t.Errorf("normalized colours: got %v and %v", mesh.Vertices[0].Color, mesh.Vertices[2].Color)
	}
	if mesh.Vertices[2].TexCoord != [2]float32{0, 1} {
		t.Errorf("texcoord 2: expected [0 1], got %v", mesh.Vertices[2].TexCoord)
	}
	for i, idx := range mesh.Indices {
		if idx != uint32(i) {
			t.Errorf("index %d: expected %d, got %d", i, i, idx)
		}
	}
	if mesh.MaterialIndex != 0 {
		t.Errorf("material index: expected 0, got %d", mesh.MaterialIndex)
	}

	if len(result.Materials) != 1 {
		t.Fatalf("materials: expected 1, got %d", len(result.Materials))
	}
	m := result.Materials[0]
	if m.BaseColor != [4]float32{0.5, 0.25, 1, 1} {
		t.Errorf("base colour: expected [0.5 0.25 1 1], got %v", m.BaseColor)
	}
	if m.BaseColorTexture != 0 || m.NormalTexture != metadata.NoTexture {
		t.Errorf("texture slots: expected 0 and NoTexture, got %d and %d", m.BaseColorTexture, m.NormalTexture)
	}

	if len(result.Textures) != 1 || result.Textures[0] == nil {
		t.Fatalf("textures: expected one decoded texture, got %v", result.Textures)
	}
	if tex := result.Textures[0]; tex.Width != 2 || tex.Height != 1 {
		t.Errorf("texture size: expected 2x1, got %dx%d", tex.Width, tex.Height)
	}

	if len(result.Roots) != 1 || result.Roots[0] != 0 {
		t.Fatalf("roots: expected [0], got %v", result.Roots)
	}
	root := result.Nodes[0]
	if len(root.Children) != 1 || root.Children[0] != 1 {
		t.Errorf("root children: expected [1], got %v", root.Children)
	}
	if !root.Local.ApproxEqual(mgl32.Translate3D(1, 2, 3)) {
		t.Errorf("root transform: expected translation (1,2,3), got %v", root.Local)
	}
	child := result.Nodes[1]
	if len(child.Meshes) != 1 || child.Meshes[0] != 0 {
		t.Errorf("child meshes: expected [0], got %v", child.Meshes)
	}
	if !child.Local.ApproxEqual(mgl32.Scale3D(2, 2, 2)) {
		t.Errorf("child transform: expected scale 2, got %v", child.Local)
	}
}

func TestGLTFLoaderRejectsMissingFile(t *testing.T) {
	if _, err := (&GLTFLoader{}).Load(filepath.Join(t.TempDir(), "missing.gltf")); err == nil {
		t.Errorf("Load: expected error for missing file")
	}
}

func TestGLTFLoaderRejectsEmptyModel(t *testing.T) {
	path := writeFile(t, "empty.gltf", `{"asset": {"version": "2.0"}}`)
	if _, err := (&GLTFLoader{}).Load(path); err == nil {
		t.Errorf("Load: expected error for a file without primitives")
	}
}

func TestDecodeTextureStraightAlpha(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(testPNG)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	tex, err := DecodeTexture("pixels", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeTexture: unexpected error %v", err)
	}
	expected := []byte{255, 0, 0, 255, 0, 0, 255, 128}
	if !bytes.Equal(tex.Pixels, expected) {
		t.Errorf("pixels: expected %v, got %v", expected, tex.Pixels)
	}
	if tex.ChannelCount != 4 {
		t.Errorf("channel count: expected 4, got %d", tex.ChannelCount)
	}
}

func TestTextureLoaderNamesAfterFile(t *testing.T) {
	data, _ := base64.StdEncoding.DecodeString(testPNG)
	path := writeFile(t, "bricks.png", string(data))

	tex, err := (&TextureLoader{}).Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error %v", err)
	}
	if tex.Name != "bricks" {
		t.Errorf("name: expected bricks, got %s", tex.Name)
	}
}

func TestIsTextureFile(t *testing.T) {
	cases := map[string]bool{
		"a.png":   true,
		"b.JPG":   true,
		"c.webp":  true,
		"d.gltf":  false,
		"noext":   false,
		"e.tiff":  true,
		"f.shade": false,
	}
	for path, expected := range cases {
		if got := IsTextureFile(path); got != expected {
			t.Errorf("IsTextureFile(%s): expected %v, got %v", path, expected, got)
		}
	}
}
