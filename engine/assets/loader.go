package assets

import "github.com/spaghettifunk/voxrt/engine/assets/loaders"

type Loader interface {
	Load(path string) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}

// ShaderSource hands out compiled SPIR-V by file name.
type ShaderSource interface {
	Shader(name string) ([]byte, error)
}
