package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/lydata/internal/transform/builtin"
)

// LoadMappingFile reads and compiles a .cue, .yaml or .yml mapping file.
func LoadMappingFile(path string, reg *builtin.Registry) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Field: "file", Message: err.Error(), File: path}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return CompileMappingString(string(data), path, reg)
	case ".yaml", ".yml":
		return CompileMappingYAML(data, path, reg)
	default:
		return nil, &CompileError{Field: "file", Message: "unsupported mapping format " + filepath.Ext(path), File: path}
	}
}
