package vulkan

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// spirvWords reinterprets SPIR-V bytes as the 32-bit words Vulkan expects.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V size %d is not a positive multiple of 4", len(code))
	}
	words := unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4)
	if words[0] != 0x07230203 {
		return nil, fmt.Errorf("missing SPIR-V magic number")
	}
	return words, nil
}

/**
 * @brief Loads <dir>/<name>.<stage>.spv and wraps it in a shader module.
 * @param stage The file suffix, "vert" or "frag".
 */
func NewShaderStage(context *VulkanContext, dir, name, stage string, stageFlag vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	fileName := filepath.Join(dir, fmt.Sprintf("%s.%s.spv", name, stage))
	code, err := os.ReadFile(fileName)
	if err != nil {
		err = fmt.Errorf("unable to read shader module %s: %w", fileName, err)
		core.LogError(err.Error())
		return nil, err
	}
	words, err := spirvWords(code)
	if err != nil {
		err = fmt.Errorf("shader module %s: %w", fileName, err)
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}

	shaderStage := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(context.logicalDevice(), &createInfo, context.Allocator, &shaderStage.Handle); res != vk.Success {
		return nil, resultError("vkCreateShaderModule", res)
	}

	shaderStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: shaderStage.Handle,
		PName:  VulkanSafeString("main"),
	}
	core.LogDebug("shader stage loaded: %s", fileName)
	return shaderStage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.logicalDevice(), s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
