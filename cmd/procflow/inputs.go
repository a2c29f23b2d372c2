package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// buildInputs merges the configured preset, the --input file and --set
// assignments. Later layers win per top-level key; dotted --set keys write
// into nested objects.
func buildInputs(preset map[string]any, inputFile string, sets []string) (map[string]any, error) {
	out := maps.Clone(preset)
	if out == nil {
		out = map[string]any{}
	}
	if path := strings.TrimSpace(inputFile); path != "" {
		fromFile, err := readInputFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(out, fromFile)
	}
	for _, assignment := range sets {
		key, raw, err := splitAssignment(assignment)
		if err != nil {
			return nil, err
		}
		if err := assign(out, strings.Split(key, "."), decodeScalar(raw)); err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
	}
	return out, nil
}

func splitAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("--set expects key=value, got %q", s)
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return "", "", fmt.Errorf("--set has an invalid key in %q", s)
	}
	return key, value, nil
}

func assign(into map[string]any, path []string, value any) error {
	for _, segment := range path[:len(path)-1] {
		next, ok := into[segment].(map[string]any)
		if !ok {
			if _, exists := into[segment]; exists {
				return fmt.Errorf("%s is not an object", segment)
			}
			next = map[string]any{}
			into[segment] = next
		}
		into = next
	}
	into[path[len(path)-1]] = value
	return nil
}

// decodeScalar reads a --set value as YAML so numbers, booleans and flow
// lists keep their type. Values YAML rejects stay strings.
func decodeScalar(raw string) any {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	switch value.(type) {
	case string, bool, int, float64, []any, map[string]any:
		return value
	}
	return raw
}

var errEmptyInputFile = errors.New("input file is empty")

// readInputFile accepts YAML or JSON.
func readInputFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%s: %w", path, errEmptyInputFile)
	}
	var inputs map[string]any
	if err := yaml.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse input file %s: %w", path, err)
	}
	return inputs, nil
}
