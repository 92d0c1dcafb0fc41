package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slices"
)

type ApplicationConfig struct {
	Name        string `toml:"name"`
	StartPosX   uint32 `toml:"start_pos_x"`
	StartPosY   uint32 `toml:"start_pos_y"`
	StartWidth  uint32 `toml:"start_width"`
	StartHeight uint32 `toml:"start_height"`
	LogLevel    string `toml:"log_level"`
}

type RendererConfig struct {
	// Debug enables the validation layer and the debug report callback.
	Debug             bool       `toml:"debug"`
	FramesInFlight    uint32     `toml:"frames_in_flight"`
	SurfaceFormat     string     `toml:"surface_format"`
	PresentMode       string     `toml:"present_mode"`
	ClearColor        [4]float32 `toml:"clear_color"`
	RequireRayTracing bool       `toml:"require_ray_tracing"`
}

type ShaderConfig struct {
	Directory   string `toml:"directory"`
	HotReload   bool   `toml:"hot_reload"`
	Vertex      string `toml:"vertex"`
	Fragment    string `toml:"fragment"`
	RayGen      string `toml:"raygen"`
	Miss        string `toml:"miss"`
	ClosestHit  string `toml:"closest_hit"`
	UseRayTrace bool   `toml:"use_ray_tracing"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Shaders     ShaderConfig      `toml:"shaders"`
}

var (
	surfaceFormats = []string{"B8G8R8A8_UNORM", "B8G8R8A8_SRGB", "R8G8B8A8_UNORM", "R8G8B8A8_SRGB"}
	presentModes   = []string{"MAILBOX", "FIFO", "FIFO_RELAXED", "IMMEDIATE"}
	logLevels      = []string{"debug", "info", "warn", "error", "fatal"}
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "VOXRT",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1920,
			StartHeight: 1080,
			LogLevel:    "info",
		},
		Renderer: RendererConfig{
			Debug:             false,
			FramesInFlight:    1,
			SurfaceFormat:     "B8G8R8A8_UNORM",
			PresentMode:       "MAILBOX",
			ClearColor:        [4]float32{0, 0, 0, 1},
			RequireRayTracing: true,
		},
		Shaders: ShaderConfig{
			Directory:  "assets/shaders",
			HotReload:  true,
			Vertex:     "shader.vert.spv",
			Fragment:   "shader.frag.spv",
			RayGen:     "raygen.rgen.spv",
			Miss:       "miss.rmiss.spv",
			ClosestHit: "closesthit.rchit.spv",
		},
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not an
// error: the defaults are returned as they are.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to parse config %s at %d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.StartWidth == 0 || c.Application.StartHeight == 0 {
		return fmt.Errorf("application window size must be nonzero, got %dx%d", c.Application.StartWidth, c.Application.StartHeight)
	}
	if !slices.Contains(logLevels, c.Application.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.Application.LogLevel)
	}
	if c.Renderer.FramesInFlight == 0 {
		return errors.New("renderer.frames_in_flight must be at least 1")
	}
	if !slices.Contains(surfaceFormats, c.Renderer.SurfaceFormat) {
		return fmt.Errorf("unknown surface format %q, expected one of %v", c.Renderer.SurfaceFormat, surfaceFormats)
	}
	if !slices.Contains(presentModes, c.Renderer.PresentMode) {
		return fmt.Errorf("unknown present mode %q, expected one of %v", c.Renderer.PresentMode, presentModes)
	}
	if c.Shaders.UseRayTrace && !c.Renderer.RequireRayTracing {
		return errors.New("shaders.use_ray_tracing needs renderer.require_ray_tracing")
	}
	return nil
}
