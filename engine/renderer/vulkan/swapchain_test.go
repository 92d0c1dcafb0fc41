package vulkan

import (
	"errors"
	"fmt"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/core"
)

func TestSelectSurfaceFormat(t *testing.T) {
	srgb := SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name      string
		formats   []SurfaceFormat
		preferred vk.Format
		want      SurfaceFormat
		wantErr   error
	}{
		{"preferred present", []SurfaceFormat{srgb, unorm}, vk.FormatB8g8r8a8Unorm, unorm, nil},
		{"preferred first", []SurfaceFormat{unorm, srgb}, vk.FormatB8g8r8a8Unorm, unorm, nil},
		{"fallback to first", []SurfaceFormat{rgba, srgb}, vk.FormatB8g8r8a8Unorm, rgba, nil},
		{"single format", []SurfaceFormat{srgb}, vk.FormatB8g8r8a8Unorm, srgb, nil},
		{"empty", nil, vk.FormatB8g8r8a8Unorm, SurfaceFormat{}, ErrEmptySurfaceFormats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectSurfaceFormat(tt.formats, tt.preferred)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectPresentMode(t *testing.T) {
	tests := []struct {
		name      string
		modes     []vk.PresentMode
		preferred vk.PresentMode
		want      vk.PresentMode
	}{
		{"mailbox available", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox, vk.PresentModeMailbox},
		{"mailbox missing", []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}, vk.PresentModeMailbox, vk.PresentModeFifo},
		{"nothing reported", nil, vk.PresentModeImmediate, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectPresentMode(tt.modes, tt.preferred); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	undefined := Extent{Width: undefinedExtent, Height: undefinedExtent}
	tests := []struct {
		name          string
		current       Extent
		width, height uint32
		want          Extent
	}{
		{"defined wins over request", Extent{1920, 1080}, 800, 600, Extent{1920, 1080}},
		{"defined zero", Extent{0, 0}, 800, 600, Extent{0, 0}},
		{"undefined within range", undefined, 800, 600, Extent{800, 600}},
		{"undefined clamped up", undefined, 0, 0, Extent{16, 16}},
		{"undefined clamped down", undefined, 9000, 3000, Extent{4096, 3000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := SurfaceCapabilities{
				CurrentExtent:  tt.current,
				MinImageExtent: Extent{16, 16},
				MaxImageExtent: Extent{4096, 4096},
			}
			if got := ChooseExtent(caps, tt.width, tt.height); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	for min := uint32(1); min <= 8; min++ {
		for _, max := range []uint32{0, 2, min} {
			var want uint32
			switch {
			case max == 0:
				want = min + 1
			case max == min:
				want = min
			case min+1 <= 2:
				want = min + 1
			default:
				want = 2
			}
			t.Run(fmt.Sprintf("min=%d,max=%d", min, max), func(t *testing.T) {
				got := ChooseImageCount(SurfaceCapabilities{MinImageCount: min, MaxImageCount: max})
				if got != want {
					t.Errorf("got %d, want %d", got, want)
				}
				if max > 0 && got > max {
					t.Errorf("count %d above maximum %d", got, max)
				}
			})
		}
	}
}

func TestCreateSwapchain(t *testing.T) {
	d := newFakeDriver()
	device, surface, err := newTestDevice(d, false)
	if err != nil {
		t.Fatal(err)
	}

	sc, err := CreateSwapchain(device, surface, 1920, 1080, DefaultSwapchainPreferences())
	if err != nil {
		t.Fatal(err)
	}

	if sc.Extent != (Extent{1920, 1080}) {
		t.Errorf("extent = %+v, want 1920x1080", sc.Extent)
	}
	if sc.Format.Format != vk.FormatB8g8r8a8Unorm {
		t.Errorf("format = %d, want B8G8R8A8_UNORM", sc.Format.Format)
	}
	if sc.PresentMode != vk.PresentModeMailbox {
		t.Errorf("present mode = %d, want MAILBOX", sc.PresentMode)
	}
	if len(sc.Images) != 3 {
		t.Errorf("image count = %d, want 3", len(sc.Images))
	}
	if len(sc.Views) != len(sc.Images) {
		t.Fatalf("%d views for %d images", len(sc.Views), len(sc.Images))
	}
	for i, view := range sc.Views {
		if d.viewImage[view] != sc.Images[i] {
			t.Errorf("view %d is of image %d, want %d", i, d.viewImage[view], sc.Images[i])
		}
	}

	info := d.swapchainInfos[len(d.swapchainInfos)-1]
	if info.MinImageCount != 3 || info.QueueFamilyIndex != device.QueueFamilyIndex {
		t.Errorf("unexpected create info %+v", info)
	}

	sc.Destroy()
	for _, kind := range []string{"swapchain", "image", "view"} {
		if n := d.count(kind); n != 0 {
			t.Errorf("%d %s objects alive after destroy", n, kind)
		}
	}
	if len(d.violations) > 0 {
		t.Errorf("violations: %v", d.violations)
	}
}

func TestCreateSwapchainZeroExtent(t *testing.T) {
	d := newFakeDriver()
	device, surface, err := newTestDevice(d, false)
	if err != nil {
		t.Fatal(err)
	}
	d.swapchainSupport = fakeSupport(0, 0)

	_, err = CreateSwapchain(device, surface, 0, 0, DefaultSwapchainPreferences())
	if !errors.Is(err, core.ErrSwapchainBooting) {
		t.Fatalf("err = %v, want ErrSwapchainBooting", err)
	}
	if d.logged("CreateSwapchain") != 0 {
		t.Error("swapchain created for a zero extent")
	}
}

func TestCreateSwapchainViewFailureCleansUp(t *testing.T) {
	d := newFakeDriver()
	device, surface, err := newTestDevice(d, false)
	if err != nil {
		t.Fatal(err)
	}
	d.failOn["CreateImageView"] = errors.New("out of memory")

	if _, err := CreateSwapchain(device, surface, 1920, 1080, DefaultSwapchainPreferences()); err == nil {
		t.Fatal("expected an error")
	}
	for _, kind := range []string{"swapchain", "image", "view"} {
		if n := d.count(kind); n != 0 {
			t.Errorf("%d %s objects leaked", n, kind)
		}
	}
}

func TestParseNames(t *testing.T) {
	if f, err := ParseSurfaceFormat("R8G8B8A8_SRGB"); err != nil || f != vk.FormatR8g8b8a8Srgb {
		t.Errorf("ParseSurfaceFormat = %d, %v", f, err)
	}
	if _, err := ParseSurfaceFormat("D32_SFLOAT"); err == nil {
		t.Error("expected an error for an unknown format")
	}
	if m, err := ParsePresentMode("FIFO_RELAXED"); err != nil || m != vk.PresentModeFifoRelaxed {
		t.Errorf("ParsePresentMode = %d, %v", m, err)
	}
	if _, err := ParsePresentMode("VSYNC"); err == nil {
		t.Error("expected an error for an unknown present mode")
	}
}
