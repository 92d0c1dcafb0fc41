package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/voxrt/engine/core"
)

// Surface is the presentation target bound to the platform window.
type Surface struct {
	Handle Handle
	driver Driver
}

func CreateSurface(driver Driver, window Window) (*Surface, error) {
	core.LogDebug("Creating Vulkan surface...")
	h, err := driver.CreateSurface(window)
	if err != nil {
		return nil, logError(fmt.Errorf("vulkan surface creation failed: %w", err))
	}
	core.LogDebug("Vulkan surface created.")
	return &Surface{Handle: h, driver: driver}, nil
}

func (s *Surface) Destroy() {
	if s.Handle != NullHandle {
		core.LogDebug("Destroying Vulkan surface...")
		s.driver.DestroySurface(s.Handle)
		s.Handle = NullHandle
	}
}
