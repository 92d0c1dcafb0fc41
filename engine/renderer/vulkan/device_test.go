package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"golang.org/x/exp/slices"
)

func TestSelectPhysicalDevice(t *testing.T) {
	computeOnly := fakeDevice("Compute Only", allDeviceExtensions...)
	computeOnly.QueueFamilies = []QueueFamily{{Index: 0, Flags: vk.QueueFlags(vk.QueueComputeBit), Count: 4}}

	split := fakeDevice("Split Families", allDeviceExtensions...)
	split.QueueFamilies = []QueueFamily{
		{Index: 0, Flags: vk.QueueFlags(vk.QueueTransferBit), Count: 2},
		{Index: 1, Flags: vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit), Count: 16},
	}

	tests := []struct {
		name       string
		devices    []PhysicalDeviceInfo
		noPresent  map[uint32]bool
		rayTracing bool
		wantName   string
		wantFamily uint32
		wantErr    error
	}{
		{
			name:     "first match wins",
			devices:  []PhysicalDeviceInfo{fakeDevice("Integrated", allDeviceExtensions...), fakeDevice("Discrete", allDeviceExtensions...)},
			wantName: "Integrated",
		},
		{
			name:       "ray tracing extension required",
			devices:    []PhysicalDeviceInfo{fakeDevice("Raster Only", extensionSwapchain), fakeDevice("RTX", allDeviceExtensions...)},
			rayTracing: true,
			wantName:   "RTX",
		},
		{
			name:     "ray tracing not required",
			devices:  []PhysicalDeviceInfo{fakeDevice("Raster Only", extensionSwapchain), fakeDevice("RTX", allDeviceExtensions...)},
			wantName: "Raster Only",
		},
		{
			name:    "swapchain extension missing",
			devices: []PhysicalDeviceInfo{fakeDevice("Headless")},
			wantErr: ErrNoSuitableDevice,
		},
		{
			name:     "no graphics queue",
			devices:  []PhysicalDeviceInfo{computeOnly, fakeDevice("Graphics", extensionSwapchain)},
			wantName: "Graphics",
		},
		{
			name:       "family order",
			devices:    []PhysicalDeviceInfo{split},
			wantName:   "Split Families",
			wantFamily: 1,
		},
		{
			name:      "no present support",
			devices:   []PhysicalDeviceInfo{fakeDevice("Offscreen", allDeviceExtensions...)},
			noPresent: map[uint32]bool{0: true},
			wantErr:   ErrNoSuitableDevice,
		},
		{
			name:    "no devices",
			devices: nil,
			wantErr: ErrNoSuitableDevice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDriver()
			d.devices = tt.devices
			if tt.noPresent != nil {
				d.noPresent = tt.noPresent
			}
			surface := d.create("surface")

			info, family, err := SelectPhysicalDevice(d, surface, DefaultDeviceRequirements(tt.rayTracing))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if info.Name != tt.wantName {
				t.Errorf("selected %q, want %q", info.Name, tt.wantName)
			}
			if family != tt.wantFamily {
				t.Errorf("family = %d, want %d", family, tt.wantFamily)
			}
		})
	}
}

func TestSelectAndCreateDeviceExtensions(t *testing.T) {
	d := newFakeDriver()
	d.devices = []PhysicalDeviceInfo{fakeDevice("Portable RTX", append(allDeviceExtensions, extensionPortabilitySubset)...)}

	device, _, err := newTestDevice(d, true)
	if err != nil {
		t.Fatal(err)
	}

	for _, ext := range []string{extensionSwapchain, extensionRayTracingPipeline, extensionAccelerationStructure, extensionDeferredHostOperations, extensionPortabilitySubset} {
		if !slices.Contains(d.deviceExtensions, ext) {
			t.Errorf("extension %s not enabled", ext)
		}
	}
	if !device.SupportsRayTracing() {
		t.Error("device should support ray tracing")
	}
	if device.Queue == NullHandle {
		t.Error("queue not obtained")
	}

	device.Destroy()
	device.Destroy()
	if d.count("device") != 0 || len(d.violations) > 0 {
		t.Errorf("device not cleanly destroyed: %v", d.violations)
	}
}

func TestSelectAndCreateDeviceWithoutRayTracing(t *testing.T) {
	d := newFakeDriver()
	device, _, err := newTestDevice(d, false)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(d.deviceExtensions, []string{extensionSwapchain}) {
		t.Errorf("extensions = %v, want only the swapchain", d.deviceExtensions)
	}
	if device.SupportsRayTracing() {
		t.Error("ray tracing enabled without being requested")
	}
}

func TestQueueFlagsString(t *testing.T) {
	tests := []struct {
		flags vk.QueueFlags
		want  string
	}{
		{0, "NONE"},
		{vk.QueueFlags(vk.QueueGraphicsBit), "GRAPHICS"},
		{vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit) | vk.QueueFlags(vk.QueueTransferBit), "GRAPHICS|COMPUTE|TRANSFER"},
	}
	for _, tt := range tests {
		if got := queueFlagsString(tt.flags); got != tt.want {
			t.Errorf("queueFlagsString(%d) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
