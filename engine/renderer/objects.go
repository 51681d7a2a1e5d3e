package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// BuildObjectData refreshes world transforms and projects up to maxObjects
// renderable nodes, in registration order, into dst. Entry i belongs to the
// i-th renderable node. Material lookups that miss fall back to defaultColor
// with no textures.
func BuildObjectData(dst []metadata.ObjectData, sc SceneSource, materials MaterialSource, defaultMaterial uint32, defaultColor [4]float32, maxObjects int) []metadata.ObjectData {
	sc.UpdateWorldTransforms()
	renderables := sc.RenderableNodes()
	count := min(len(renderables), maxObjects)

	dst = dst[:0]
	for i := 0; i < count; i++ {
		model := mgl32.Ident4()
		materialIndex := defaultMaterial
		if node := sc.Node(renderables[i]); node != nil {
			model = node.World
			materialIndex = node.MaterialIndex
		}

		obj := metadata.NewObjectData()
		obj.Model = model
		applyMaterial(&obj, materials, materialIndex, defaultColor)
		dst = append(dst, obj)
	}
	return dst
}

func applyMaterial(obj *metadata.ObjectData, materials MaterialSource, index uint32, defaultColor [4]float32) {
	var m *metadata.Material
	if materials != nil {
		m = materials.Get(index)
	}
	if m == nil {
		obj.Color = defaultColor
		return
	}
	obj.Color = m.BaseColor
	obj.EmissiveColor = m.Emissive
	obj.MetallicRoughness = [2]float32{m.Metallic, m.Roughness}
	obj.BaseColorTexture = m.BaseColorTexture
	obj.NormalTexture = m.NormalTexture
	obj.OcclusionTexture = m.OcclusionTexture
	obj.EmissiveTexture = m.EmissiveTexture
	obj.MetallicRoughnessTexture = m.MetallicRoughnessTexture
}
