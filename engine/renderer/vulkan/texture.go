package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// textureFormat matches the RGBA8 pixels produced by the texture loader.
const textureFormat = vk.FormatR8g8b8a8Srgb

/**
 * @brief Uploads the pixels of texture into a sampled device-local image and
 * stores the image in texture.InternalData. A texture already uploaded is
 * replaced.
 */
func (vb *VulkanBackend) UploadTexture(mm *memory.MemoryManager, texture *metadata.Texture) error {
	size := uint64(texture.Width) * uint64(texture.Height) * 4
	if size == 0 || uint64(len(texture.Pixels)) != size {
		err := fmt.Errorf("texture %q: expected %d bytes of RGBA8 pixels, got %d", texture.Name, size, len(texture.Pixels))
		core.LogError(err.Error())
		return err
	}

	image, err := ImageCreate(
		vb.context,
		texture.Width,
		texture.Height,
		textureFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return fmt.Errorf("texture %q: %w", texture.Name, err)
	}

	err = memory.WithStagingBuffer(mm, size, func(staging *memory.StagingBuffer) error {
		if err := staging.Upload(texture.Pixels); err != nil {
			return err
		}
		return vb.transfer.CopyBufferToImage(staging.Buffer().Handle(), 0, image)
	})
	if err != nil {
		image.ImageDestroy(vb.context)
		return fmt.Errorf("texture %q: %w", texture.Name, err)
	}

	vb.DestroyTexture(texture)
	texture.InternalData = image
	texture.Generation++
	core.LogDebug("texture uploaded: %s (%dx%d)", texture.Name, texture.Width, texture.Height)
	return nil
}

// DestroyTexture frees the image of texture, if any. The device must be idle.
func (vb *VulkanBackend) DestroyTexture(texture *metadata.Texture) {
	image, ok := texture.InternalData.(*VulkanImage)
	if !ok || image == nil {
		return
	}
	image.ImageDestroy(vb.context)
	texture.InternalData = nil
}

/**
 * @brief Binds textures to the texture array, element i taking textures[i].
 * Textures that were never uploaded leave their slot unwritten, so shaders
 * must not sample them. The device must be idle.
 */
func (vb *VulkanBackend) SetTextures(textures []*metadata.Texture) error {
	views := make([]vk.ImageView, len(textures))
	for i, texture := range textures {
		image, ok := texture.InternalData.(*VulkanImage)
		if !ok || image == nil {
			core.LogWarn("texture %d (%s) has no image, slot left unbound", i, texture.Name)
			continue
		}
		views[i] = image.View
	}
	return vb.descriptors.WriteTextures(vb.context, views)
}
