package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// toJSON returns the config bytes as JSON. A .yaml/.yml file is decoded and
// re-encoded; anything else is assumed to be JSON already. Routing both
// formats through one strict JSON decode keeps DisallowUnknownFields
// working for YAML configs too.
func toJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	j, err := json.Marshal(stringifyKeys(v))
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return j, nil
}

// stringifyKeys rewrites map keys to strings; json.Marshal rejects
// map[any]any, which the yaml decoder can produce for nested mappings.
func stringifyKeys(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = stringifyKeys(val)
		}
		return m
	case map[string]any:
		for k, val := range x {
			x[k] = stringifyKeys(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = stringifyKeys(val)
		}
		return x
	default:
		return v
	}
}
