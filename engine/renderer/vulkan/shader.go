package vulkan

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const spirvMagic uint32 = 0x07230203

// ParseSPIRV checks that code is a SPIR-V module and returns it as words.
// Modules written with the opposite byte order are swapped.
func ParseSPIRV(code []byte) ([]uint32, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty bytecode", ErrInvalidSPIRV)
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidSPIRV, len(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	switch words[0] {
	case spirvMagic:
	case bits.ReverseBytes32(spirvMagic):
		for i := range words {
			words[i] = bits.ReverseBytes32(words[i])
		}
	default:
		return nil, fmt.Errorf("%w: bad magic number 0x%08x", ErrInvalidSPIRV, words[0])
	}
	return words, nil
}

type shaderSource struct {
	stage ShaderStage
	name  string
	code  []byte
}

// createShaderStages builds one module per source, all with entry point
// "main". The returned release func destroys every module; builders call it
// once pipeline creation has returned.
func createShaderStages(device *Device, sources []shaderSource) ([]ShaderStageInfo, func(), error) {
	var cleanup cleanupStack
	defer cleanup.run()

	stages := make([]ShaderStageInfo, len(sources))
	for i, src := range sources {
		words, err := ParseSPIRV(src.code)
		if err != nil {
			return nil, nil, logError(fmt.Errorf("shader %s: %w", src.name, err))
		}
		module, err := device.Driver.CreateShaderModule(device.Logical, words)
		if err != nil {
			return nil, nil, logError(fmt.Errorf("failed to create shader module %s: %w", src.name, err))
		}
		cleanup.push(func() { device.Driver.DestroyShaderModule(device.Logical, module) })
		stages[i] = ShaderStageInfo{
			Stage:      src.stage,
			Module:     module,
			EntryPoint: "main",
		}
	}

	return stages, cleanup.detach(), nil
}
