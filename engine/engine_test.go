package engine

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/voxrt/engine/config"
	"github.com/spaghettifunk/voxrt/engine/core"
)

func TestRendererConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.SurfaceFormat = "B8G8R8A8_SRGB"
	cfg.Renderer.PresentMode = "FIFO"
	cfg.Renderer.FramesInFlight = 2

	got, err := rendererConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got.SurfaceFormat != vk.FormatB8g8r8a8Srgb || got.PresentMode != vk.PresentModeFifo {
		t.Errorf("format/present mode = %d/%d", got.SurfaceFormat, got.PresentMode)
	}
	if got.FramesInFlight != 2 || got.ApplicationName != cfg.Application.Name || !got.RequireRayTracing {
		t.Errorf("unexpected config %+v", got)
	}

	cfg.Renderer.PresentMode = "VSYNC"
	if _, err := rendererConfig(cfg); err == nil {
		t.Error("expected an error for an unknown present mode")
	}
}

func TestEngineEvents(t *testing.T) {
	defer core.EventShutdown()

	e := New(config.Default())
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)

	resize := func(w, h uint32) {
		var ctx core.EventContext
		ctx.Data.U32[0] = w
		ctx.Data.U32[1] = h
		core.EventFire(core.EVENT_CODE_RESIZED, nil, ctx)
	}

	resize(0, 0)
	if !e.isSuspended {
		t.Error("minimized window did not suspend the engine")
	}
	resize(800, 600)
	if e.isSuspended {
		t.Error("restored window left the engine suspended")
	}
	if w, h := e.GetFramebufferSize(); w != 800 || h != 600 {
		t.Errorf("framebuffer size = %dx%d, want 800x600", w, h)
	}

	e.isRunning.Store(true)
	if !core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{}) {
		t.Error("quit event not handled")
	}
	if e.isRunning.Load() {
		t.Error("engine still running after quit")
	}
}

type recordingPump struct {
	polls    int
	waits    []float64
	shouldGo bool
}

func (p *recordingPump) PumpMessages() bool {
	p.polls++
	return p.shouldGo
}

func (p *recordingPump) WaitMessages(timeout float64) bool {
	p.waits = append(p.waits, timeout)
	return p.shouldGo
}

func TestPumpMessages(t *testing.T) {
	tests := []struct {
		name      string
		wait      bool
		open      bool
		wantPolls int
		wantWaits int
	}{
		{name: "frame drawn polls", wait: false, open: true, wantPolls: 1},
		{name: "frame skipped waits", wait: true, open: true, wantWaits: 1},
		{name: "closed window stops the loop", wait: true, open: false, wantWaits: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &recordingPump{shouldGo: tt.open}
			if got := pumpMessages(p, tt.wait); got != tt.open {
				t.Errorf("pumpMessages = %t, want %t", got, tt.open)
			}
			if p.polls != tt.wantPolls || len(p.waits) != tt.wantWaits {
				t.Fatalf("polls/waits = %d/%d, want %d/%d", p.polls, len(p.waits), tt.wantPolls, tt.wantWaits)
			}
			for _, timeout := range p.waits {
				if timeout != suspendedWait {
					t.Errorf("waited %v, want %v", timeout, suspendedWait)
				}
			}
		})
	}
}
