package vulkan

import (
	"encoding/binary"
	"slices"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/memory"
)

func TestVulkanSafeString(t *testing.T) {
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("VulkanSafeString: expected %q, got %q", "main\x00", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("VulkanSafeString on terminated string: expected %q, got %q", "main\x00", got)
	}

	in := []string{"VK_KHR_surface", "VK_KHR_swapchain\x00"}
	out := VulkanSafeStrings(in)
	if in[0] != "VK_KHR_surface" {
		t.Errorf("VulkanSafeStrings modified its input: %q", in[0])
	}
	for i, s := range out {
		if s[len(s)-1] != 0 {
			t.Errorf("VulkanSafeStrings[%d]: expected null terminator, got %q", i, s)
		}
	}
}

func TestContainsName(t *testing.T) {
	names := []string{"VK_LAYER_KHRONOS_validation", "VK_KHR_portability_subset"}
	if !containsName(names, "VK_LAYER_KHRONOS_validation\x00") {
		t.Errorf("containsName: expected terminated name to match")
	}
	if containsName(names, "VK_KHR_swapchain") {
		t.Errorf("containsName: expected no match for missing name")
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("VulkanResultString: expected VK_ERROR_OUT_OF_DATE_KHR, got %s", got)
	}
	if got := VulkanResultString(vk.Result(12345)); got != "VkResult(12345)" {
		t.Errorf("VulkanResultString unknown: expected VkResult(12345), got %s", got)
	}
	if !VulkanResultIsSuccess(vk.Suboptimal) {
		t.Errorf("suboptimal should not count as an error")
	}
	if VulkanResultIsSuccess(vk.ErrorDeviceLost) {
		t.Errorf("device lost should count as an error")
	}
}

func TestSpirvWords(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code[0:], 0x07230203)
	binary.LittleEndian.PutUint32(code[4:], 0x00010500)

	words, err := spirvWords(code)
	if err != nil {
		t.Fatalf("spirvWords: unexpected error %v", err)
	}
	if len(words) != 2 {
		t.Errorf("spirvWords: expected 2 words, got %d", len(words))
	}

	if _, err := spirvWords(code[:6]); err == nil {
		t.Errorf("spirvWords: expected error for truncated code")
	}
	if _, err := spirvWords(nil); err == nil {
		t.Errorf("spirvWords: expected error for empty code")
	}
	bad := make([]byte, 4)
	if _, err := spirvWords(bad); err == nil {
		t.Errorf("spirvWords: expected error for missing magic number")
	}
}

func TestBufferUsageFlags(t *testing.T) {
	got := bufferUsageFlags(memory.UsageVertex | memory.UsageTransferDst)
	expected := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit)
	if got != expected {
		t.Errorf("bufferUsageFlags: expected %#x, got %#x", expected, got)
	}
	if got := bufferUsageFlags(0); got != 0 {
		t.Errorf("bufferUsageFlags(0): expected 0, got %#x", got)
	}
}

func TestMemoryPropertyFlags(t *testing.T) {
	host := memoryPropertyFlags(memory.ResidencyHostVisible)
	if host&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) == 0 {
		t.Errorf("host visible memory should be coherent, got %#x", host)
	}
	device := memoryPropertyFlags(memory.ResidencyDeviceLocal)
	if device != vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) {
		t.Errorf("device local flags: expected %#x, got %#x", vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), device)
	}
}

func TestRetireSwapchain(t *testing.T) {
	tests := []struct {
		name      string
		old       uint64
		current   uint64
		destroyed []uint64
	}{
		{name: "replaced", old: 1, current: 2, destroyed: []uint64{1}},
		{name: "creation failed", old: 1, current: 1},
		{name: "first swapchain", old: 0, current: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var destroyed []uint64
			retireSwapchain(tt.old, tt.current, 0, func(h uint64) { destroyed = append(destroyed, h) })
			if !slices.Equal(destroyed, tt.destroyed) {
				t.Errorf("destroyed: expected %v, got %v", tt.destroyed, destroyed)
			}
		})
	}
}
