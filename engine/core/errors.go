package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrContextClosed    = errors.New("render context already shut down")
)
