package vulkan

import (
	"fmt"
)

// Fence tracks whether the host already observed the fence signaled, so a
// signaled fence is never waited on again before it is reset.
type Fence struct {
	Handle     Handle
	IsSignaled bool

	device *Device
}

func NewFence(device *Device, createSignaled bool) (*Fence, error) {
	h, err := device.Driver.CreateFence(device.Logical, createSignaled)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create fence: %w", err))
	}
	return &Fence{Handle: h, IsSignaled: createSignaled, device: device}, nil
}

func (f *Fence) Destroy() {
	if f.Handle != NullHandle {
		f.device.Driver.DestroyFence(f.device.Logical, f.Handle)
		f.Handle = NullHandle
	}
	f.IsSignaled = false
}

// Wait blocks until the fence is signaled. It returns at once when the fence
// is already known to be signaled.
func (f *Fence) Wait(timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	if err := f.device.Driver.WaitForFence(f.device.Logical, f.Handle, timeoutNs); err != nil {
		return logError(fmt.Errorf("fence wait failed: %w", err))
	}
	f.IsSignaled = true
	return nil
}

// Reset returns a signaled fence to the unsignaled state. Unsignaled fences
// are left alone.
func (f *Fence) Reset() error {
	if !f.IsSignaled {
		return nil
	}
	if err := f.device.Driver.ResetFence(f.device.Logical, f.Handle); err != nil {
		return logError(fmt.Errorf("failed to reset fence: %w", err))
	}
	f.IsSignaled = false
	return nil
}

type Semaphore struct {
	Handle Handle

	device *Device
}

func NewSemaphore(device *Device) (*Semaphore, error) {
	h, err := device.Driver.CreateSemaphore(device.Logical)
	if err != nil {
		return nil, logError(fmt.Errorf("failed to create semaphore: %w", err))
	}
	return &Semaphore{Handle: h, device: device}, nil
}

func (s *Semaphore) Destroy() {
	if s.Handle != NullHandle {
		s.device.Driver.DestroySemaphore(s.device.Logical, s.Handle)
		s.Handle = NullHandle
	}
}
