package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/voxrt/engine/assets"
	"github.com/spaghettifunk/voxrt/engine/core"
	"github.com/spaghettifunk/voxrt/engine/renderer/vulkan"
)

// ShaderNames are the compiled shader files the renderer builds its
// pipelines from, as named by the shader source.
type ShaderNames struct {
	Vertex     string
	Fragment   string
	RayGen     string
	Miss       string
	ClosestHit string
}

type Config struct {
	Shaders ShaderNames
	// UseRayTracing builds the ray tracing pipeline next to the graphics one.
	UseRayTracing bool
}

// Renderer owns the pipelines drawn every frame and keeps them in sync
// with the shader files they were built from.
type Renderer struct {
	backend RendererBackend
	shaders assets.ShaderSource
	config  Config

	graphics   *vulkan.Pipeline
	rayTracing *vulkan.Pipeline
}

// New loads the configured shaders and builds the pipelines on backend.
func New(backend RendererBackend, shaders assets.ShaderSource, config Config) (*Renderer, error) {
	r := &Renderer{
		backend: backend,
		shaders: shaders,
		config:  config,
	}

	graphicsShaders, err := r.loadGraphicsShaders()
	if err != nil {
		return nil, err
	}
	if r.graphics, err = backend.CreateGraphicsPipeline(graphicsShaders); err != nil {
		return nil, fmt.Errorf("failed to create graphics pipeline: %w", err)
	}

	if config.UseRayTracing {
		rtShaders, err := r.loadRayTracingShaders()
		if err != nil {
			backend.DestroyPipeline(r.graphics)
			return nil, err
		}
		if r.rayTracing, err = backend.CreateRayTracingPipeline(rtShaders); err != nil {
			backend.DestroyPipeline(r.graphics)
			return nil, fmt.Errorf("failed to create ray tracing pipeline: %w", err)
		}
	}
	core.LogInfo("Renderer ready (ray tracing pipeline: %t).", r.rayTracing != nil)
	return r, nil
}

func (r *Renderer) GraphicsPipeline() *vulkan.Pipeline   { return r.graphics }
func (r *Renderer) RayTracingPipeline() *vulkan.Pipeline { return r.rayTracing }
func (r *Renderer) FrameNumber() uint64                  { return r.backend.FrameNumber() }

func (r *Renderer) OnResize(width, height uint32) {
	r.backend.Resize(width, height)
}

// DrawFrame renders one frame. It reports false when the frame was skipped
// because the swapchain could not be used, which is not an error.
func (r *Renderer) DrawFrame() (bool, error) {
	err := r.backend.RenderFrame(r.graphics)
	if errors.Is(err, core.ErrSwapchainBooting) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReloadShader rebuilds every pipeline using the named shader. A shader
// that does not load or build leaves the running pipeline untouched.
func (r *Renderer) ReloadShader(name string) error {
	names := r.config.Shaders
	switch name {
	case names.Vertex, names.Fragment:
		shaders, err := r.loadGraphicsShaders()
		if err != nil {
			return err
		}
		if err := r.backend.RebuildGraphicsPipeline(r.graphics, shaders); err != nil {
			return fmt.Errorf("graphics pipeline kept, rebuild failed: %w", err)
		}
		core.LogInfo("Graphics pipeline reloaded after %s changed.", name)
	case names.RayGen, names.Miss, names.ClosestHit:
		if r.rayTracing == nil {
			return nil
		}
		shaders, err := r.loadRayTracingShaders()
		if err != nil {
			return err
		}
		next, err := r.backend.CreateRayTracingPipeline(shaders)
		if err != nil {
			return fmt.Errorf("ray tracing pipeline kept, rebuild failed: %w", err)
		}
		r.backend.DestroyPipeline(r.rayTracing)
		r.rayTracing = next
		core.LogInfo("Ray tracing pipeline reloaded after %s changed.", name)
	default:
		core.LogDebug("Shader %s is not used by any pipeline.", name)
	}
	return nil
}

// Shutdown releases the pipelines and then the backend.
func (r *Renderer) Shutdown() error {
	if r.rayTracing != nil {
		r.backend.DestroyPipeline(r.rayTracing)
		r.rayTracing = nil
	}
	if r.graphics != nil {
		r.backend.DestroyPipeline(r.graphics)
		r.graphics = nil
	}
	return r.backend.Shutdown()
}

func (r *Renderer) loadGraphicsShaders() (vulkan.GraphicsShaders, error) {
	vert, err := r.shaders.Shader(r.config.Shaders.Vertex)
	if err != nil {
		return vulkan.GraphicsShaders{}, err
	}
	frag, err := r.shaders.Shader(r.config.Shaders.Fragment)
	if err != nil {
		return vulkan.GraphicsShaders{}, err
	}
	return vulkan.GraphicsShaders{Vertex: vert, Fragment: frag}, nil
}

func (r *Renderer) loadRayTracingShaders() (vulkan.RayTracingShaders, error) {
	var shaders vulkan.RayTracingShaders
	for _, s := range []struct {
		name string
		dst  *[]byte
	}{
		{r.config.Shaders.RayGen, &shaders.RayGen},
		{r.config.Shaders.Miss, &shaders.Miss},
		{r.config.Shaders.ClosestHit, &shaders.ClosestHit},
	} {
		code, err := r.shaders.Shader(s.name)
		if err != nil {
			return vulkan.RayTracingShaders{}, err
		}
		*s.dst = code
	}
	return shaders, nil
}
