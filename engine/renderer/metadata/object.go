package metadata

import (
	"math"
	"unsafe"
)

// NoTexture marks an unused texture slot in ObjectData.
const NoTexture uint32 = math.MaxUint32

/**
 * @brief Per-object record in the object storage buffer. The layout follows
 * std430 and must match ObjectData in object.vert / object.frag (128 bytes).
 */
type ObjectData struct {
	/** @brief Column-major model matrix. */
	Model            [16]float32
	Color            [4]float32
	EmissiveColor    [3]float32
	EmissiveStrength float32
	/** @brief x = metallic, y = roughness. */
	MetallicRoughness        [2]float32
	BaseColorTexture         uint32
	NormalTexture            uint32
	OcclusionTexture         uint32
	EmissiveTexture          uint32
	MetallicRoughnessTexture uint32
	_                        uint32
}

const ObjectDataSize = uint64(unsafe.Sizeof(ObjectData{}))

// NewObjectData returns a record with identity transform, white color and no textures.
func NewObjectData() ObjectData {
	return ObjectData{
		Model:                    [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		Color:                    [4]float32{1, 1, 1, 1},
		EmissiveStrength:         1,
		MetallicRoughness:        [2]float32{1, 1},
		BaseColorTexture:         NoTexture,
		NormalTexture:            NoTexture,
		OcclusionTexture:         NoTexture,
		EmissiveTexture:          NoTexture,
		MetallicRoughnessTexture: NoTexture,
	}
}

// CameraData is the camera uniform buffer (binding 0).
type CameraData struct {
	ViewProj [16]float32
}

const CameraDataSize = uint64(unsafe.Sizeof(CameraData{}))

// PushConstants selects the ObjectData entry a draw reads.
type PushConstants struct {
	ObjectIndex uint32
}

const PushConstantsSize = uint32(unsafe.Sizeof(PushConstants{}))

func ObjectDataBytes(objects []ObjectData) []byte {
	return sliceBytes(objects)
}

func (c *CameraData) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(c)), CameraDataSize)
}

func (p *PushConstants) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), PushConstantsSize)
}
