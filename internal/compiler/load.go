package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/cangen/internal/ir"
)

// LoadDir builds the CUE package in dir into a single value.
// Every .cue file of the package is unified.
func LoadDir(dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("load %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError("load", inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError("build", err)
	}
	return value, nil
}

// CompileDir loads dir and compiles it into a Program.
func CompileDir(dir string) (*ir.Program, error) {
	v, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileModule(v)
}
