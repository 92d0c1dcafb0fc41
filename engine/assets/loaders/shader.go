package loaders

import (
	"fmt"
	"os"
	"path/filepath"
)

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
)

// Resource is the raw content of a file read by a loader.
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     []byte
}

type ShaderLoader struct{}

// Load reads a compiled SPIR-V binary. Validation of the bytecode happens
// when the module is created.
func (sl *ShaderLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("shader %s is empty", path)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(r *Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}
