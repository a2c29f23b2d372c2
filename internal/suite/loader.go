package suite

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSuiteDir is the conventional location for suite definitions.
const DefaultSuiteDir = "suites"

// Parse decodes a suite definition from YAML or JSON bytes.
func Parse(data []byte) (Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Definition{}, fmt.Errorf("suite: definition payload is empty")
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("suite: decode definition: %w", err)
	}
	return def.Normalized()
}

// LoadReader reads a suite definition from r.
func LoadReader(r io.Reader) (Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Definition{}, fmt.Errorf("suite: read definition: %w", err)
	}
	return Parse(content)
}

// LoadFile loads a suite definition from path.
func LoadFile(path string) (Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("suite: read %s: %w", path, err)
	}
	def, parseErr := Parse(content)
	if parseErr != nil {
		return Definition{}, fmt.Errorf("suite: %s: %w", path, parseErr)
	}
	return def, nil
}

// LoadRelative loads name from baseDir, or DefaultSuiteDir when baseDir is
// empty. A name without an extension gets ".yaml".
func LoadRelative(baseDir, name string) (Definition, error) {
	if baseDir == "" {
		baseDir = DefaultSuiteDir
	}
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	return LoadFile(filepath.Join(baseDir, name))
}
