package buildpipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ilforge/internal/ast"
)

// Input formats recognised by extension.
const (
	ExtMsgpack = ".ilt"
	ExtJSON    = ".json"
)

// LoadProgram decodes the syntax tree stored at path.
func LoadProgram(path string) (*ast.Program, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- inputs are user-selected files
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()
	prog, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func decoderFor(path string) (func(io.Reader) (*ast.Program, error), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMsgpack:
		return ast.DecodeMsgpack, nil
	case ExtJSON:
		return ast.DecodeJSON, nil
	default:
		return nil, fmt.Errorf("%s: unsupported input (expected %s or %s)", path, ExtMsgpack, ExtJSON)
	}
}

// ModuleName derives a module name from an input path: its base name
// without the extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
