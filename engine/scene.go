package engine

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// cubeScene wraps the procedural cube so it goes through the same path as a loaded file.
func cubeScene() *loaders.GLTFResult {
	return &loaders.GLTFResult{
		Model: metadata.NewCubeModel(),
		Nodes: []loaders.GLTFNode{{Name: "cube", Local: mgl32.Ident4(), Meshes: []int{0}}},
		Roots: []int{0},
	}
}

/**
 * @brief Moves a loaded model into the engine systems. Textures are registered
 * first so material texture fields can be rewritten to bindless slots, then
 * materials, then one graph node per glTF node with a renderable child per mesh.
 * Returns one draw range per mesh instance, matching the index layout of
 * Model.Flatten.
 */
func buildScene(result *loaders.GLTFResult, materials *systems.MaterialSystem, textures *systems.TextureSystem, graph *scene.Graph) ([]renderer.DrawRange, error) {
	if result == nil || result.Model == nil {
		return nil, fmt.Errorf("scene: nothing to build")
	}

	textureSlots := make([]uint32, len(result.Textures))
	for i, tex := range result.Textures {
		textureSlots[i] = metadata.NoTexture
		if tex == nil {
			continue
		}
		slot, err := textures.Register(tex)
		if err != nil {
			core.LogWarn("texture %q dropped: %s", tex.Name, err)
			continue
		}
		textureSlots[i] = slot
	}
	remap := func(index uint32) uint32 {
		if int(index) >= len(textureSlots) {
			return metadata.NoTexture
		}
		return textureSlots[index]
	}

	materialSlots := make([]uint32, len(result.Materials))
	for i, m := range result.Materials {
		m.BaseColorTexture = remap(m.BaseColorTexture)
		m.NormalTexture = remap(m.NormalTexture)
		m.OcclusionTexture = remap(m.OcclusionTexture)
		m.EmissiveTexture = remap(m.EmissiveTexture)
		m.MetallicRoughnessTexture = remap(m.MetallicRoughnessTexture)
		slot, err := materials.Create(m)
		if err != nil {
			return nil, err
		}
		materialSlots[i] = slot
	}

	meshes := result.Model.Meshes
	firstIndex := make([]uint32, len(meshes))
	var running uint32
	for i := range meshes {
		firstIndex[i] = running
		running += uint32(len(meshes[i].Indices))
	}

	nodeIndex := make([]uint32, len(result.Nodes))
	var ranges []renderer.DrawRange
	for i, n := range result.Nodes {
		nodeIndex[i] = graph.CreateNode(n.Local, materials.DefaultIndex(), false)
		for _, mi := range n.Meshes {
			if mi < 0 || mi >= len(meshes) || len(meshes[mi].Indices) == 0 {
				continue
			}
			material := materials.DefaultIndex()
			if idx := meshes[mi].MaterialIndex; int(idx) < len(materialSlots) {
				material = materialSlots[idx]
			}
			child := graph.CreateNode(mgl32.Ident4(), material, true)
			if err := graph.SetParent(child, nodeIndex[i]); err != nil {
				return nil, err
			}
			ranges = append(ranges, renderer.DrawRange{
				FirstIndex: firstIndex[mi],
				IndexCount: uint32(len(meshes[mi].Indices)),
				Node:       child,
			})
		}
	}

	for i, n := range result.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(nodeIndex) {
				core.LogWarn("node %q references missing child %d", n.Name, c)
				continue
			}
			if err := graph.SetParent(nodeIndex[c], nodeIndex[i]); err != nil {
				if !errors.Is(err, core.ErrSceneGraphCycle) {
					return nil, err
				}
				// the node stays where it is; the link that closes the loop is dropped
				core.LogWarn("node %q: skipping child %d: %s", n.Name, c, err)
			}
		}
	}

	graph.UpdateWorldTransforms()
	return ranges, nil
}

// dropTextureSlots points every material reference to a slot in failed at
// NoTexture, so the shaders never sample an unbound array element.
func dropTextureSlots(materials *systems.MaterialSystem, failed map[uint32]bool) {
	if len(failed) == 0 {
		return
	}
	drop := func(slot *uint32) bool {
		if *slot != metadata.NoTexture && failed[*slot] {
			*slot = metadata.NoTexture
			return true
		}
		return false
	}
	for i := 0; i < materials.Count(); i++ {
		m := *materials.Get(uint32(i))
		changed := drop(&m.BaseColorTexture)
		changed = drop(&m.NormalTexture) || changed
		changed = drop(&m.OcclusionTexture) || changed
		changed = drop(&m.EmissiveTexture) || changed
		changed = drop(&m.MetallicRoughnessTexture) || changed
		if changed {
			materials.Update(uint32(i), m)
		}
	}
}
