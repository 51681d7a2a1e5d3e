package loaders

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// NoMaterial marks a primitive without a glTF material.
const NoMaterial uint32 = math.MaxUint32

/** @brief One glTF node. Meshes index GLTFResult.Model.Meshes. */
type GLTFNode struct {
	Name     string
	Local    mgl32.Mat4
	Meshes   []int
	Children []int
}

/**
 * @brief Everything read from a glTF file. Model holds one mesh per primitive,
 * with MaterialIndex pointing into Materials (or NoMaterial). Texture fields of
 * the materials index Textures, whose entries are nil when the image could not
 * be decoded.
 */
type GLTFResult struct {
	Model     *metadata.Model
	Materials []metadata.Material
	Textures  []*metadata.Texture
	Nodes     []GLTFNode
	Roots     []int
}

type GLTFLoader struct{}

// Load reads a .gltf or .glb file. A file without any usable primitive is an error.
func (gl *GLTFLoader) Load(path string) (*GLTFResult, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	dir := filepath.Dir(path)

	result := &GLTFResult{
		Model: &metadata.Model{Name: filepath.Base(path)},
	}
	result.Textures = loadTextures(doc, dir)
	result.Materials = loadMaterials(doc, len(result.Textures))

	// meshPrimitives[i] lists the Model.Meshes entries built from doc.Meshes[i].
	meshPrimitives := make([][]int, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			mesh, err := loadPrimitive(doc, prim)
			if err != nil {
				return nil, fmt.Errorf("gltf %q mesh %d primitive %d: %w", path, mi, pi, err)
			}
			mesh.Name = fmt.Sprintf("%s_%d", gm.Name, pi)
			mesh.MaterialIndex = NoMaterial
			if prim.Material != nil && *prim.Material < len(result.Materials) {
				mesh.MaterialIndex = uint32(*prim.Material)
			}
			meshPrimitives[mi] = append(meshPrimitives[mi], len(result.Model.Meshes))
			result.Model.Meshes = append(result.Model.Meshes, *mesh)
		}
	}
	if result.Model.Empty() {
		return nil, fmt.Errorf("gltf %q: no renderable primitives", path)
	}

	result.Nodes = make([]GLTFNode, len(doc.Nodes))
	hasParent := make([]bool, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		node := GLTFNode{Name: gn.Name, Local: nodeTransform(gn)}
		if gn.Mesh != nil && *gn.Mesh < len(meshPrimitives) {
			node.Meshes = meshPrimitives[*gn.Mesh]
		}
		for _, c := range gn.Children {
			if c >= 0 && c < len(doc.Nodes) && c != i {
				node.Children = append(node.Children, c)
				hasParent[c] = true
			}
		}
		result.Nodes[i] = node
	}

	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, root := range doc.Scenes[*doc.Scene].Nodes {
			if root >= 0 && root < len(result.Nodes) {
				result.Roots = append(result.Roots, root)
			}
		}
	} else {
		for i := range result.Nodes {
			if !hasParent[i] {
				result.Roots = append(result.Roots, i)
			}
		}
	}

	// A file with meshes but no nodes still gets drawn, one root per mesh.
	if len(result.Nodes) == 0 {
		for i := range result.Model.Meshes {
			result.Nodes = append(result.Nodes, GLTFNode{Local: mgl32.Ident4(), Meshes: []int{i}})
			result.Roots = append(result.Roots, i)
		}
	}

	core.LogDebug("gltf loaded: %s (%d meshes, %d materials, %d textures, %d nodes)",
		path, len(result.Model.Meshes), len(result.Materials), len(result.Textures), len(result.Nodes))
	return result, nil
}

func loadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*metadata.Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("missing POSITION attribute")
	}
	posAccessor := doc.Accessors[posIdx]
	if posAccessor.Type != gltf.AccessorVec3 || posAccessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("POSITION must be a VEC3 float attribute")
	}
	positions, err := modeler.ReadPosition(doc, posAccessor, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	vertices := make([]metadata.Vertex, len(positions))
	for i, p := range positions {
		vertices[i].Position = p
		vertices[i].Color = [3]float32{1, 1, 1}
	}

	if idx, ok := prim.Attributes[gltf.COLOR_0]; ok {
		colors, err := readColors(doc, doc.Accessors[idx])
		if err != nil {
			return nil, fmt.Errorf("COLOR_0: %w", err)
		}
		if len(colors) < len(vertices) {
			return nil, fmt.Errorf("COLOR_0 has %d entries for %d positions", len(colors), len(vertices))
		}
		for i := range vertices {
			vertices[i].Color = colors[i]
		}
	}

	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acr := doc.Accessors[idx]
		if acr.Type != gltf.AccessorVec2 || acr.ComponentType != gltf.ComponentFloat {
			return nil, fmt.Errorf("TEXCOORD_0 must be a VEC2 float attribute")
		}
		uvs, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("TEXCOORD_0: %w", err)
		}
		if len(uvs) < len(vertices) {
			return nil, fmt.Errorf("TEXCOORD_0 has %d entries for %d positions", len(uvs), len(vertices))
		}
		for i := range vertices {
			vertices[i].TexCoord = uvs[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr := doc.Accessors[*prim.Indices]
		if acr.Type != gltf.AccessorScalar {
			return nil, fmt.Errorf("indices accessor must be scalar")
		}
		indices, err = modeler.ReadIndices(doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	return &metadata.Mesh{Vertices: vertices, Indices: indices}, nil
}

// readColors accepts float vectors and normalized unsigned byte or short vectors,
// keeping only RGB.
func readColors(doc *gltf.Document, acr *gltf.Accessor) ([][3]float32, error) {
	if acr.ComponentType != gltf.ComponentFloat && !acr.Normalized {
		return nil, fmt.Errorf("integer colours must be normalized")
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, err
	}

	var out [][3]float32
	switch v := data.(type) {
	case [][3]float32:
		out = v
	case [][4]float32:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{c[0], c[1], c[2]}
		}
	case [][3]uint8:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][4]uint8:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
	case [][3]uint16:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	case [][4]uint16:
		out = make([][3]float32, len(v))
		for i, c := range v {
			out[i] = [3]float32{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535}
		}
	default:
		return nil, fmt.Errorf("unsupported colour accessor %s/%s", acr.Type, acr.ComponentType)
	}
	return out, nil
}

// nodeTransform prefers an explicit matrix and falls back to translation, rotation and scale.
func nodeTransform(gn *gltf.Node) mgl32.Mat4 {
	if m := gn.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i := range m {
			out[i] = float32(m[i])
		}
		return out
	}
	t := gn.TranslationOrDefault()
	r := gn.RotationOrDefault() // x, y, z, w
	s := gn.ScaleOrDefault()

	translation := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))
	rotation := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize().Mat4()
	scale := mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2]))
	return translation.Mul4(rotation).Mul4(scale)
}

func loadMaterials(doc *gltf.Document, textureCount int) []metadata.Material {
	texture := func(index int) uint32 {
		if index < 0 || index >= textureCount {
			return metadata.NoTexture
		}
		return uint32(index)
	}

	materials := make([]metadata.Material, 0, len(doc.Materials))
	for i, gm := range doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		m := metadata.NewMaterial(name)

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			m.BaseColor = [4]float32{float32(cf[0]), float32(cf[1]), float32(cf[2]), float32(cf[3])}
			m.Metallic = float32(pbr.MetallicFactorOrDefault())
			m.Roughness = float32(pbr.RoughnessFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				m.BaseColorTexture = texture(pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				m.MetallicRoughnessTexture = texture(pbr.MetallicRoughnessTexture.Index)
			}
		}
		m.Emissive = [3]float32{float32(gm.EmissiveFactor[0]), float32(gm.EmissiveFactor[1]), float32(gm.EmissiveFactor[2])}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			m.NormalTexture = texture(*gm.NormalTexture.Index)
		}
		if gm.OcclusionTexture != nil && gm.OcclusionTexture.Index != nil {
			m.OcclusionTexture = texture(*gm.OcclusionTexture.Index)
		}
		if gm.EmissiveTexture != nil {
			m.EmissiveTexture = texture(gm.EmissiveTexture.Index)
		}
		materials = append(materials, m)
	}
	return materials
}

// loadTextures decodes the image of every glTF texture. Failures are logged
// and leave a nil entry so texture indices stay valid.
func loadTextures(doc *gltf.Document, dir string) []*metadata.Texture {
	textures := make([]*metadata.Texture, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil || *gt.Source >= len(doc.Images) {
			continue
		}
		img := doc.Images[*gt.Source]
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", *gt.Source)
		}

		var err error
		var tex *metadata.Texture
		if img.BufferView == nil && !img.IsEmbeddedResource() && img.URI != "" {
			tex, err = (&TextureLoader{}).Load(filepath.Join(dir, img.URI))
		} else {
			var data []byte
			if data, err = imageData(doc, img); err == nil {
				tex, err = decodeTextureBytes(name, data)
			}
		}
		if err != nil {
			core.LogWarn("gltf image %d: %s", *gt.Source, err)
			continue
		}
		tex.Name = name
		textures[i] = tex
	}
	return textures
}

func imageData(doc *gltf.Document, img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		return modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	}
	return nil, fmt.Errorf("image has neither buffer view nor uri")
}
