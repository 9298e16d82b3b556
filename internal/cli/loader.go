package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/cangen/internal/compiler"
	"github.com/roach88/cangen/internal/ir"
)

// LoadResult is a loaded interface directory.
type LoadResult struct {
	Program   *ir.Program
	Graph     *ir.Graph // nil when Issues is non-empty
	FileCount int

	// Issues are the validation errors of the program.
	Issues []compiler.ValidationError

	// Cycles are the legal recursive types, reported for information.
	Cycles []compiler.CycleWarning
}

// LoadError is a failure to load an interface at all.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadInterface compiles and validates the CUE package in dir.
//
// A *LoadError is returned when the directory cannot be read or the CUE does
// not compile. Semantic problems are collected in LoadResult.Issues instead;
// the graph is built only for a program without issues.
func LoadInterface(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("interface directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing interface directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	prog, err := compiler.CompileDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}

	result := &LoadResult{
		Program:   prog,
		FileCount: len(files),
		Issues:    compiler.Validate(prog),
	}
	for _, c := range compiler.AnalyzeCycles(prog) {
		if c.Level == compiler.LevelInfo {
			result.Cycles = append(result.Cycles, c)
		}
	}
	if len(result.Issues) > 0 {
		return result, nil
	}

	if result.Graph, err = ir.BuildGraph(prog); err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("building type graph: %v", err)}
	}
	return result, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not scanned.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func convertCompileError(err error) *LoadError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return &LoadError{Code: MapFieldToErrorCode(ce.Field), Message: ce.Message, Pos: ce.Pos}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants shared by all commands. Validation codes (E1xx)
// come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeGenerate    = "E008" // Code generation failed

	// Malformed declarations, by top-level field.
	ErrCodeBadType      = "E011"
	ErrCodeBadMethod    = "E012"
	ErrCodeBadGuard     = "E013"
	ErrCodeBadStableMap = "E014"
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	top, _, _ := strings.Cut(field, ".")
	if i := strings.IndexByte(top, '['); i >= 0 {
		top = top[:i]
	}
	switch top {
	case "load":
		return ErrCodeLoadFailed
	case "build":
		return ErrCodeBuildFailed
	case "types":
		return ErrCodeBadType
	case "methods":
		return ErrCodeBadMethod
	case "guards":
		return ErrCodeBadGuard
	case "stable_maps":
		return ErrCodeBadStableMap
	default:
		return ErrCodeGeneric
	}
}
