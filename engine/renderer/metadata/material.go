package metadata

import "github.com/google/uuid"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief A metallic-roughness surface description. Texture fields index the
 * bindless texture array, NoTexture when unused.
 */
type Material struct {
	Name string
	/** @brief Linear RGBA base colour factor. */
	BaseColor [4]float32
	Emissive  [3]float32
	Metallic  float32
	Roughness float32

	BaseColorTexture         uint32
	NormalTexture            uint32
	OcclusionTexture         uint32
	EmissiveTexture          uint32
	MetallicRoughnessTexture uint32

	/** @brief Incremented every time the material is changed. */
	Generation uint32
}

func NewMaterial(name string) Material {
	return Material{
		Name:                     name,
		BaseColor:                [4]float32{1, 1, 1, 1},
		Metallic:                 1,
		Roughness:                1,
		BaseColorTexture:         NoTexture,
		NormalTexture:            NoTexture,
		OcclusionTexture:         NoTexture,
		EmissiveTexture:          NoTexture,
		MetallicRoughnessTexture: NoTexture,
	}
}

/**
 * @brief A decoded 2D texture. Pixels are tightly packed RGBA8 rows.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uuid.UUID
	/** @brief The texture Name. Empty for anonymous textures. */
	Name         string
	Width        uint32
	Height       uint32
	ChannelCount uint8
	Pixels       []byte
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief Backend resources (image, view) once uploaded. */
	InternalData interface{}
}
