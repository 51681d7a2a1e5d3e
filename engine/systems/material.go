package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be created. 0 means unbounded. */
	MaxMaterialCount uint32
}

/**
 * @brief Owns every material of the scene. Index 0 is the default material,
 * created with the configured base colour.
 */
type MaterialSystem struct {
	Config    *MaterialSystemConfig
	materials []metadata.Material
}

func NewMaterialSystem(config *MaterialSystemConfig, defaultBaseColor [4]float32) *MaterialSystem {
	ms := &MaterialSystem{Config: config}
	def := metadata.NewMaterial(metadata.DefaultMaterialName)
	def.BaseColor = defaultBaseColor
	ms.materials = append(ms.materials, def)
	return ms
}

// DefaultIndex is the slot of the default material.
func (ms *MaterialSystem) DefaultIndex() uint32 {
	return 0
}

func (ms *MaterialSystem) Default() *metadata.Material {
	return &ms.materials[0]
}

func (ms *MaterialSystem) Create(material metadata.Material) (uint32, error) {
	if ms.Config.MaxMaterialCount > 0 && uint32(len(ms.materials)) >= ms.Config.MaxMaterialCount {
		err := fmt.Errorf("material system full (%d materials), cannot create %q", ms.Config.MaxMaterialCount, material.Name)
		core.LogError(err.Error())
		return 0, err
	}
	ms.materials = append(ms.materials, material)
	return uint32(len(ms.materials) - 1), nil
}

// Update replaces the material at index. It returns false when index is unknown.
func (ms *MaterialSystem) Update(index uint32, material metadata.Material) bool {
	if int(index) >= len(ms.materials) {
		return false
	}
	material.Generation = ms.materials[index].Generation + 1
	ms.materials[index] = material
	return true
}

// Get returns nil when index is unknown.
func (ms *MaterialSystem) Get(index uint32) *metadata.Material {
	if int(index) >= len(ms.materials) {
		return nil
	}
	return &ms.materials[index]
}

func (ms *MaterialSystem) Count() int {
	return len(ms.materials)
}

// Truncate drops every material after the default one. Used before an asset reload.
func (ms *MaterialSystem) Truncate() {
	ms.materials = ms.materials[:1]
}
