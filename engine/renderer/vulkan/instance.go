package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// validation layer messages, created once the engine log level is known
var vkLog *log.Logger

type InstanceConfig struct {
	ApplicationName string
	// Extensions required by the window system.
	Extensions       []string
	Validation       bool
	ValidationLayers []string
}

func createInstance(context *VulkanContext, config InstanceConfig) error {
	vkLog = core.Logger("vulkan")

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(config.ApplicationName),
		PEngineName:        VulkanSafeString("Lumen"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{"VK_KHR_surface"}, config.Extensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	layers := []string{}
	if config.Validation {
		available, err := availableLayers()
		if err != nil {
			return err
		}
		for _, layer := range config.ValidationLayers {
			if !containsName(available, layer) {
				core.LogWarn("validation layer %s is not installed, validation disabled", layer)
				layers = nil
				break
			}
			layers = append(layers, layer)
		}
	}
	context.validation = len(layers) > 0
	if context.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}

	core.LogDebug("instance extensions: %v", requiredExtensions)
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if context.validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			return resultError("vkCreateDebugReportCallback", res)
		}
		context.debugCallback = dbg
		core.LogDebug("Vulkan debug callback created.")
	}
	return nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, vk.ToString(properties[i].LayerName[:]))
	}
	return names, nil
}

func destroyInstance(context *VulkanContext) {
	if context.Instance == nil {
		return
	}
	if context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debug callback...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugCallback, context.Allocator)
		context.debugCallback = vk.NullDebugReportCallback
	}
	if context.Surface != vk.NullSurface {
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}
	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(context.Instance, context.Allocator)
	context.Instance = nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		vkLog.Error(pMessage, "layer", pLayerPrefix, "code", messageCode)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		vkLog.Warn(pMessage, "layer", pLayerPrefix, "code", messageCode)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		vkLog.Warn(pMessage, "layer", pLayerPrefix, "code", messageCode, "kind", "performance")
	default:
		vkLog.Debug(pMessage, "layer", pLayerPrefix, "code", messageCode)
	}
	return vk.Bool32(vk.False)
}
