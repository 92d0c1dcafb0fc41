//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the engine.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the engine with the validation layers enabled.
func (Run) Debug() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("run", ".", "-debug"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the tests, then again with the ray tracing driver, which needs cgo
// and the Vulkan headers.
func (Run) Tests() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("test", "-tags", "raytracing", "./..."), withStream())
	return err
}
