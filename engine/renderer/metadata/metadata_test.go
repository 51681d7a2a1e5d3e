package metadata

import (
	"testing"
	"unsafe"
)

func TestObjectDataLayout(t *testing.T) {
	var o ObjectData
	if ObjectDataSize != 128 {
		t.Fatalf("ObjectData size: expected 128, got %d", ObjectDataSize)
	}
	offsets := []struct {
		name     string
		got      uintptr
		expected uintptr
	}{
		{"Model", unsafe.Offsetof(o.Model), 0},
		{"Color", unsafe.Offsetof(o.Color), 64},
		{"EmissiveColor", unsafe.Offsetof(o.EmissiveColor), 80},
		{"EmissiveStrength", unsafe.Offsetof(o.EmissiveStrength), 92},
		{"MetallicRoughness", unsafe.Offsetof(o.MetallicRoughness), 96},
		{"BaseColorTexture", unsafe.Offsetof(o.BaseColorTexture), 104},
		{"NormalTexture", unsafe.Offsetof(o.NormalTexture), 108},
		{"OcclusionTexture", unsafe.Offsetof(o.OcclusionTexture), 112},
		{"EmissiveTexture", unsafe.Offsetof(o.EmissiveTexture), 116},
		{"MetallicRoughnessTexture", unsafe.Offsetof(o.MetallicRoughnessTexture), 120},
	}
	for _, tt := range offsets {
		if tt.got != tt.expected {
			t.Errorf("%s offset: expected %d, got %d", tt.name, tt.expected, tt.got)
		}
	}
}

func TestSmallRecordSizes(t *testing.T) {
	if CameraDataSize != 64 {
		t.Errorf("CameraData size: expected 64, got %d", CameraDataSize)
	}
	if PushConstantsSize != 4 {
		t.Errorf("PushConstants size: expected 4, got %d", PushConstantsSize)
	}
	if VertexStride != 32 {
		t.Errorf("Vertex stride: expected 32, got %d", VertexStride)
	}
}

func TestNewObjectDataDefaults(t *testing.T) {
	o := NewObjectData()
	if o.EmissiveStrength != 1 || o.MetallicRoughness != [2]float32{1, 1} {
		t.Errorf("defaults: expected emissive strength 1 and MR (1,1), got %v %v", o.EmissiveStrength, o.MetallicRoughness)
	}
	if o.BaseColorTexture != NoTexture || o.MetallicRoughnessTexture != NoTexture {
		t.Errorf("defaults: texture slots should be NoTexture")
	}
	if o.Model[0] != 1 || o.Model[15] != 1 || o.Model[12] != 0 {
		t.Errorf("defaults: model should be identity, got %v", o.Model)
	}
}

func TestObjectDataBytesAliasesSlice(t *testing.T) {
	objs := []ObjectData{NewObjectData(), NewObjectData()}
	b := ObjectDataBytes(objs)
	if len(b) != 256 {
		t.Fatalf("byte view length: expected 256, got %d", len(b))
	}
	objs[1].Color[0] = 0.5
	if *(*float32)(unsafe.Pointer(&b[128+64])) != 0.5 {
		t.Errorf("byte view does not alias the second record's color")
	}
	if ObjectDataBytes(nil) != nil {
		t.Errorf("empty slice: expected nil view")
	}
}

func TestCubeModel(t *testing.T) {
	cube := NewCubeModel()
	vertices, indices := cube.Flatten()
	if len(vertices) != 8 || len(indices) != 36 {
		t.Fatalf("cube: expected 8 vertices and 36 indices, got %d and %d", len(vertices), len(indices))
	}
	for i, idx := range indices {
		if idx >= 8 {
			t.Errorf("index %d out of range: %d", i, idx)
		}
	}
	if cube.Empty() {
		t.Errorf("cube reported empty")
	}
}

func TestFlattenRebasesIndices(t *testing.T) {
	m := Model{Meshes: []Mesh{
		{Vertices: make([]Vertex, 3), Indices: []uint32{0, 1, 2}},
		{Vertices: make([]Vertex, 4), Indices: []uint32{0, 2, 3}},
	}}
	vertices, indices := m.Flatten()
	if len(vertices) != 7 {
		t.Errorf("vertices: expected 7, got %d", len(vertices))
	}
	expected := []uint32{0, 1, 2, 3, 5, 6}
	for i := range expected {
		if indices[i] != expected[i] {
			t.Errorf("index %d: expected %d, got %d", i, expected[i], indices[i])
		}
	}
	if (&Model{}).Empty() != true {
		t.Errorf("model without meshes should be empty")
	}
}
