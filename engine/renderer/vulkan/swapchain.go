package vulkan

import (
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
	emath "github.com/spaghettifunk/voxrt/engine/math"
)

// undefinedExtent is the surface sentinel meaning the swapchain picks its size.
const undefinedExtent = ^uint32(0)

type SwapchainPreferences struct {
	Format      vk.Format
	PresentMode vk.PresentMode
}

func DefaultSwapchainPreferences() SwapchainPreferences {
	return SwapchainPreferences{
		Format:      vk.FormatB8g8r8a8Unorm,
		PresentMode: vk.PresentModeMailbox,
	}
}

// Swapchain owns its images' views. Views[i] is always the view of Images[i].
type Swapchain struct {
	// ID tells swapchain generations apart in logs.
	ID          uuid.UUID
	Surface     Handle
	Format      SurfaceFormat
	Extent      Extent
	PresentMode vk.PresentMode
	Handle      Handle
	Images      []Handle
	Views       []Handle

	device *Device
}

// SelectSurfaceFormat returns the first format matching preferred, else the
// first reported format.
func SelectSurfaceFormat(formats []SurfaceFormat, preferred vk.Format) (SurfaceFormat, error) {
	if len(formats) == 0 {
		return SurfaceFormat{}, ErrEmptySurfaceFormats
	}
	for _, format := range formats {
		if format.Format == preferred {
			return format, nil
		}
	}
	return formats[0], nil
}

// SelectPresentMode returns preferred when supported, else FIFO, which every
// implementation must provide.
func SelectPresentMode(modes []vk.PresentMode, preferred vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == preferred {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface's current extent verbatim when it is
// defined, otherwise clamps the requested size into the supported range.
func ChooseExtent(caps SurfaceCapabilities, width, height uint32) Extent {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return Extent{
		Width:  emath.Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: emath.Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum, capped at the
// maximum. A maximum of zero means no limit.
func ChooseImageCount(caps SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// CreateSwapchain negotiates format, present mode, extent and image count
// from a fresh surface query and builds the swapchain with its views.
func CreateSwapchain(device *Device, surface *Surface, width, height uint32, prefs SwapchainPreferences) (*Swapchain, error) {
	driver := device.Driver

	support, err := driver.QuerySwapchainSupport(device.Physical.Handle, surface.Handle)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to query swapchain support: %w", err))
	}

	format, err := SelectSurfaceFormat(support.Formats, prefs.Format)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create swapchain: %w", err))
	}

	sc := &Swapchain{
		ID:          uuid.New(),
		Surface:     surface.Handle,
		Format:      format,
		Extent:      ChooseExtent(support.Capabilities, width, height),
		PresentMode: SelectPresentMode(support.PresentModes, prefs.PresentMode),
		device:      device,
	}
	if sc.Extent.Width == 0 || sc.Extent.Height == 0 {
		return nil, fmt.Errorf("surface extent is %dx%d: %w", sc.Extent.Width, sc.Extent.Height, core.ErrSwapchainBooting)
	}

	handle, err := driver.CreateSwapchain(device.Logical, SwapchainCreateInfo{
		Surface:          surface.Handle,
		MinImageCount:    ChooseImageCount(support.Capabilities),
		Format:           format,
		Extent:           sc.Extent,
		PresentMode:      sc.PresentMode,
		PreTransform:     support.Capabilities.CurrentTransform,
		QueueFamilyIndex: device.QueueFamilyIndex,
	})
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create swapchain: %w", err))
	}
	sc.Handle = handle

	if err := sc.CreateImages(); err != nil {
		driver.DestroySwapchain(device.Logical, handle)
		return nil, err
	}

	core.LogInfo("Swapchain %s created: %dx%d, %d images, format %d, present mode %d.",
		sc.ID, sc.Extent.Width, sc.Extent.Height, len(sc.Images), sc.Format.Format, sc.PresentMode)
	return sc, nil
}

// CreateImages retrieves the swapchain images and builds one 2D color view
// per image. Views built before a failure are destroyed.
func (sc *Swapchain) CreateImages() error {
	driver := sc.device.Driver

	images, err := driver.SwapchainImages(sc.device.Logical, sc.Handle)
	if err != nil {
		return logError(fmt.Errorf("failed to get swapchain images: %w", err))
	}

	var cleanup cleanupStack
	defer cleanup.run()

	views := make([]Handle, len(images))
	for i, image := range images {
		view, err := driver.CreateImageView(sc.device.Logical, image, sc.Format.Format)
		if err != nil {
			return logError(fmt.Errorf("failed to create image view %d: %w", i, err))
		}
		cleanup.push(func() { driver.DestroyImageView(sc.device.Logical, view) })
		views[i] = view
	}
	cleanup.release()

	sc.Images = images
	sc.Views = views
	return nil
}

// Destroy releases the views and the swapchain. The images belong to the
// swapchain and go with it.
func (sc *Swapchain) Destroy() {
	driver := sc.device.Driver
	for _, view := range sc.Views {
		driver.DestroyImageView(sc.device.Logical, view)
	}
	sc.Views = nil
	sc.Images = nil
	if sc.Handle != NullHandle {
		driver.DestroySwapchain(sc.device.Logical, sc.Handle)
		sc.Handle = NullHandle
	}
	core.LogDebug("Swapchain %s destroyed.", sc.ID)
}

var surfaceFormatNames = map[string]vk.Format{
	"B8G8R8A8_UNORM": vk.FormatB8g8r8a8Unorm,
	"B8G8R8A8_SRGB":  vk.FormatB8g8r8a8Srgb,
	"R8G8B8A8_UNORM": vk.FormatR8g8b8a8Unorm,
	"R8G8B8A8_SRGB":  vk.FormatR8g8b8a8Srgb,
}

var presentModeNames = map[string]vk.PresentMode{
	"MAILBOX":      vk.PresentModeMailbox,
	"FIFO":         vk.PresentModeFifo,
	"FIFO_RELAXED": vk.PresentModeFifoRelaxed,
	"IMMEDIATE":    vk.PresentModeImmediate,
}

// ParseSurfaceFormat maps a configuration format name to its Vulkan format.
func ParseSurfaceFormat(name string) (vk.Format, error) {
	f, ok := surfaceFormatNames[name]
	if !ok {
		return vk.FormatUndefined, fmt.Errorf("unknown surface format %q", name)
	}
	return f, nil
}

// ParsePresentMode maps a configuration present mode name to its Vulkan mode.
func ParsePresentMode(name string) (vk.PresentMode, error) {
	m, ok := presentModeNames[name]
	if !ok {
		return vk.PresentModeFifo, fmt.Errorf("unknown present mode %q", name)
	}
	return m, nil
}
