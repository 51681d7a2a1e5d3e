package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	lmath "github.com/spaghettifunk/lumen/engine/math"
)

// Bindings of the scene descriptor set, shared with the object shaders.
const (
	BindingCamera   uint32 = 0
	BindingObjects  uint32 = 1
	BindingSampler  uint32 = 2
	BindingTextures uint32 = 3
)

/**
 * @brief The single descriptor set of the scene: camera uniform buffer,
 * object storage buffer, one sampler and a partially bound array of
 * sampled images indexed by the texture fields of each object.
 * Both buffers are dynamic bindings so each frame slot can point them at
 * its own region when the set is bound.
 */
type SceneDescriptors struct {
	Layout  vk.DescriptorSetLayout
	Pool    vk.DescriptorPool
	Set     vk.DescriptorSet
	Sampler vk.Sampler

	/** @brief Capacity of the texture array. */
	MaxTextures uint32
}

func NewSceneDescriptors(context *VulkanContext, maxTextures uint32) (*SceneDescriptors, error) {
	if maxTextures == 0 {
		err := fmt.Errorf("%w: texture array needs at least one slot", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	sd := &SceneDescriptors{MaxTextures: maxTextures}
	if err := sd.createLayout(context); err != nil {
		return nil, err
	}
	if err := sd.createSet(context); err != nil {
		sd.Destroy(context)
		return nil, err
	}
	if err := sd.createSampler(context); err != nil {
		sd.Destroy(context)
		return nil, err
	}
	return sd, nil
}

func (sd *SceneDescriptors) createLayout(context *VulkanContext) error {
	vertexAndFragment := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: BindingCamera, DescriptorType: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit)},
		{Binding: BindingObjects, DescriptorType: vk.DescriptorTypeStorageBufferDynamic, DescriptorCount: 1, StageFlags: vertexAndFragment},
		{Binding: BindingSampler, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: 1, StageFlags: fragment},
		{Binding: BindingTextures, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: sd.MaxTextures, StageFlags: fragment},
	}

	// Only the texture array may be left partially written, and as the last
	// binding it may be allocated with a variable count.
	bindingFlags := []vk.DescriptorBindingFlags{
		0, 0, 0,
		vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit) | vk.DescriptorBindingFlags(vk.DescriptorBindingVariableDescriptorCountBit),
	}
	flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}
	cFlagsInfo, _ := flagsInfo.PassRef()

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafe.Pointer(cFlagsInfo),
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(context.logicalDevice(), &layoutInfo, context.Allocator, &sd.Layout); res != vk.Success {
		return resultError("vkCreateDescriptorSetLayout", res)
	}
	return nil
}

func (sd *SceneDescriptors) createSet(context *VulkanContext) error {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1},
		{Type: vk.DescriptorTypeStorageBufferDynamic, DescriptorCount: 1},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: 1},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: sd.MaxTextures},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	device := context.logicalDevice()
	if res := vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &sd.Pool); res != vk.Success {
		return resultError("vkCreateDescriptorPool", res)
	}

	countInfo := vk.DescriptorSetVariableDescriptorCountAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetVariableDescriptorCountAllocateInfo,
		DescriptorSetCount: 1,
		PDescriptorCounts:  []uint32{sd.MaxTextures},
	}
	cCountInfo, _ := countInfo.PassRef()

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		PNext:              unsafe.Pointer(cCountInfo),
		DescriptorPool:     sd.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{sd.Layout},
	}
	if res := vk.AllocateDescriptorSets(device, &allocInfo, &sd.Set); res != vk.Success {
		return resultError("vkAllocateDescriptorSets", res)
	}
	return nil
}

func (sd *SceneDescriptors) createSampler(context *VulkanContext) error {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}
	device := context.Device
	if device.Features.SamplerAnisotropy == vk.True {
		device.Properties.Limits.Deref()
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = lmath.Clamp(16.0, 1.0, device.Properties.Limits.MaxSamplerAnisotropy)
	}
	if res := vk.CreateSampler(device.LogicalDevice, &samplerInfo, context.Allocator, &sd.Sampler); res != vk.Success {
		return resultError("vkCreateSampler", res)
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          sd.Set,
		DstBinding:      BindingSampler,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sd.Sampler}},
	}
	vk.UpdateDescriptorSets(device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// WriteBuffers points the camera and object bindings at the given buffers. The
// ranges are the size of one frame slot's region.
func (sd *SceneDescriptors) WriteBuffers(context *VulkanContext, camera vk.Buffer, cameraRange uint64, objects vk.Buffer, objectsRange uint64) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sd.Set,
			DstBinding:      BindingCamera,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{{Buffer: camera, Offset: 0, Range: vk.DeviceSize(cameraRange)}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sd.Set,
			DstBinding:      BindingObjects,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBufferDynamic,
			PBufferInfo:     []vk.DescriptorBufferInfo{{Buffer: objects, Offset: 0, Range: vk.DeviceSize(objectsRange)}},
		},
	}
	vk.UpdateDescriptorSets(context.logicalDevice(), uint32(len(writes)), writes, 0, nil)
}

/**
 * @brief Writes views into the texture array, element i taking views[i].
 * Null views leave their element untouched. The set must not be in use by the GPU.
 */
func (sd *SceneDescriptors) WriteTextures(context *VulkanContext, views []vk.ImageView) error {
	if uint32(len(views)) > sd.MaxTextures {
		err := fmt.Errorf("%w: %d textures for %d slots", core.ErrIndexOutOfRange, len(views), sd.MaxTextures)
		core.LogError(err.Error())
		return err
	}

	writes := make([]vk.WriteDescriptorSet, 0, len(views))
	for i, view := range views {
		if view == vk.NullImageView {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sd.Set,
			DstBinding:      BindingTextures,
			DstArrayElement: uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   view,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		})
	}
	if len(writes) == 0 {
		return nil
	}
	vk.UpdateDescriptorSets(context.logicalDevice(), uint32(len(writes)), writes, 0, nil)
	return nil
}

// Bind binds the set with the camera and object regions starting at the given
// offsets, in binding order.
func (sd *SceneDescriptors) Bind(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout, cameraOffset, objectOffset uint64) {
	offsets := []uint32{uint32(cameraOffset), uint32(objectOffset)}
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, layout, 0, 1, []vk.DescriptorSet{sd.Set}, uint32(len(offsets)), offsets)
}

func (sd *SceneDescriptors) Destroy(context *VulkanContext) {
	device := context.logicalDevice()
	if sd.Sampler != vk.NullSampler {
		vk.DestroySampler(device, sd.Sampler, context.Allocator)
		sd.Sampler = vk.NullSampler
	}
	// Destroying the pool frees the set.
	if sd.Pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, sd.Pool, context.Allocator)
		sd.Pool = vk.NullDescriptorPool
		sd.Set = vk.NullDescriptorSet
	}
	if sd.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, sd.Layout, context.Allocator)
		sd.Layout = vk.NullDescriptorSetLayout
	}
}
