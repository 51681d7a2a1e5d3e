package metadata

import "unsafe"

/**
 * @brief Interleaved vertex as consumed by the object shader.
 * location 0 = Position, 1 = Color, 2 = TexCoord.
 */
type Vertex struct {
	Position [3]float32
	Color    [3]float32
	TexCoord [2]float32
}

const VertexStride = uint32(unsafe.Sizeof(Vertex{}))

// Mesh is one indexed triangle list with a material slot.
type Mesh struct {
	Name          string
	Vertices      []Vertex
	Indices       []uint32
	MaterialIndex uint32
}

// Model groups the meshes of one asset.
type Model struct {
	Name   string
	Meshes []Mesh
}

func (m *Model) Empty() bool {
	for i := range m.Meshes {
		if len(m.Meshes[i].Vertices) > 0 && len(m.Meshes[i].Indices) > 0 {
			return false
		}
	}
	return true
}

// Flatten concatenates every mesh into one vertex and one index list, rebasing
// each mesh's indices onto its position in the combined vertex list.
func (m *Model) Flatten() ([]Vertex, []uint32) {
	var vcount, icount int
	for i := range m.Meshes {
		vcount += len(m.Meshes[i].Vertices)
		icount += len(m.Meshes[i].Indices)
	}
	vertices := make([]Vertex, 0, vcount)
	indices := make([]uint32, 0, icount)
	for i := range m.Meshes {
		base := uint32(len(vertices))
		vertices = append(vertices, m.Meshes[i].Vertices...)
		for _, idx := range m.Meshes[i].Indices {
			indices = append(indices, base+idx)
		}
	}
	return vertices, indices
}

// NewCubeModel builds the unit cube used when no asset could be loaded.
func NewCubeModel() *Model {
	vertices := []Vertex{
		{Position: [3]float32{-0.5, -0.5, -0.5}, Color: [3]float32{1, 0, 0}, TexCoord: [2]float32{0, 0}},
		{Position: [3]float32{0.5, -0.5, -0.5}, Color: [3]float32{0, 1, 0}, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{0.5, 0.5, -0.5}, Color: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{-0.5, 0.5, -0.5}, Color: [3]float32{1, 1, 0}, TexCoord: [2]float32{0, 1}},
		{Position: [3]float32{-0.5, -0.5, 0.5}, Color: [3]float32{1, 0, 1}, TexCoord: [2]float32{0, 0}},
		{Position: [3]float32{0.5, -0.5, 0.5}, Color: [3]float32{0, 1, 1}, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{0.5, 0.5, 0.5}, Color: [3]float32{1, 0.5, 0.2}, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{-0.5, 0.5, 0.5}, Color: [3]float32{0.2, 0.8, 0.5}, TexCoord: [2]float32{0, 1}},
	}
	indices := []uint32{
		4, 5, 6, 6, 7, 4, // +z
		0, 3, 2, 2, 1, 0, // -z
		0, 4, 7, 7, 3, 0, // -x
		5, 1, 2, 2, 6, 5, // +x
		3, 7, 6, 6, 2, 3, // +y
		0, 1, 5, 5, 4, 0, // -y
	}
	return &Model{
		Name:   "cube",
		Meshes: []Mesh{{Name: "cube", Vertices: vertices, Indices: indices}},
	}
}

// VertexBytes views vertices as raw bytes without copying.
func VertexBytes(vertices []Vertex) []byte {
	return sliceBytes(vertices)
}

// IndexBytes views indices as raw bytes without copying.
func IndexBytes(indices []uint32) []byte {
	return sliceBytes(indices)
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
