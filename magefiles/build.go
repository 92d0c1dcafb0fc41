//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const shaderDir = "assets/shaders"

// GLSL stages compiled to SPIR-V, by file extension.
var shaderExtensions = []string{".vert", ".frag", ".rgen", ".rmiss", ".rchit"}

type Build mg.Namespace

// Compiles every GLSL shader under assets/shaders to <name>.spv with glslc.
// Shaders whose binary is newer than the source are skipped.
func (Build) Shaders() error {
	var sources []string
	for _, ext := range shaderExtensions {
		matches, err := filepath.Glob(filepath.Join(shaderDir, "*"+ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources found in %s", shaderDir)
	}

	for _, src := range sources {
		out := src + ".spv"
		stale, err := target.Path(out, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs("--target-env=vulkan1.2", src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the engine binary into bin/.
func (Build) Engine() error {
	return buildEngine()
}

// Builds the engine with ray tracing pipelines. Needs cgo and the Vulkan headers.
func (Build) EngineRayTracing() error {
	return buildEngine("-tags", "raytracing")
}

func buildEngine(flags ...string) error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	args := append([]string{"build"}, flags...)
	args = append(args, "-o", filepath.Join("bin", "voxrt"), ".")
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}
