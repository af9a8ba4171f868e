// Package context assembles free-form metadata maps from the environment,
// files, JSON strings and key=value pairs. The same machinery backs record
// context as well as the webhook and upload configuration flags.
package context

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable prefixes read by the CLI.
const (
	PrefixContext      = "PULSE_CONTEXT"
	PrefixUploadConfig = "PULSE_UPLOAD_CONFIG"
	PrefixWebhook      = "PULSE_WEBHOOK"
)

// Environ returns KEY=VALUE pairs; os.Environ in production.
type Environ func() []string

// Sources lists the places a context value can come from. Later sources
// override earlier ones: env, then File, then JSON, then KV.
type Sources struct {
	EnvPrefix string
	JSON      string
	KV        []string
	File      string

	// Environ defaults to os.Environ when nil.
	Environ Environ
}

// Build merges every configured source. The result is nil when no source
// contributed anything, and may be a non-object value when only JSON or File
// supplied one.
func (s Sources) Build() (any, error) {
	var contexts []any

	if s.EnvPrefix != "" {
		environ := s.Environ
		if environ == nil {
			environ = os.Environ
		}
		if envCtx := ParseEnvWithPrefix(s.EnvPrefix, environ()); envCtx != nil {
			contexts = append(contexts, envCtx)
		}
	}

	if s.File != "" {
		fileCtx, err := ParseFile(s.File)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, fileCtx)
	}

	if s.JSON != "" {
		jsonCtx, err := ParseJSON(s.JSON)
		if err != nil {
			return nil, err
		}
		contexts = append(contexts, jsonCtx)
	}

	if len(s.KV) > 0 {
		kvCtx := make(map[string]any, len(s.KV))
		for _, kv := range s.KV {
			key, value, err := ParseKV(kv)
			if err != nil {
				return nil, err
			}
			kvCtx[key] = value
		}
		contexts = append(contexts, kvCtx)
	}

	return Merge(contexts...), nil
}

// BuildMap is Build for consumers that need an object. An empty map is
// returned when nothing was configured.
func (s Sources) BuildMap() (map[string]any, error) {
	result, err := s.Build()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	m, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configuration must be an object, got %T", result)
	}
	return m, nil
}

// ParseKV parses a key=value pair, inferring int, float and bool values.
func ParseKV(kvPair string) (string, any, error) {
	key, raw, ok := strings.Cut(kvPair, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid format, expected key=value: %s", kvPair)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil, fmt.Errorf("empty key in key=value pair")
	}

	return key, inferValue(strings.TrimSpace(raw)), nil
}

func inferValue(s string) any {
	// ints before bools so "1" stays a number
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// ParseJSON decodes a JSON document of any shape.
func ParseJSON(jsonStr string) (any, error) {
	var result any
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return result, nil
}

// ParseFile reads a JSON or YAML file. Files ending in .yaml or .yml are
// decoded as YAML; anything else as JSON.
func ParseFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var result any
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid YAML in file: %w", err)
		}
		return result, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid JSON in file: %w", err)
	}
	return result, nil
}

// ParseEnvWithPrefix collects PREFIX (a JSON object) and PREFIX_* variables
// from environ. PREFIX_* keys are lowercased and win over the JSON object.
func ParseEnvWithPrefix(prefix string, environ []string) map[string]any {
	result := make(map[string]any)
	vars := make(map[string]any)
	keyPrefix := prefix + "_"

	for _, env := range environ {
		name, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		switch {
		case name == prefix && value != "":
			if parsed, err := ParseJSON(value); err == nil {
				if m, ok := parsed.(map[string]any); ok {
					maps.Copy(result, m)
				}
			}
		case strings.HasPrefix(name, keyPrefix):
			key := strings.ToLower(strings.TrimPrefix(name, keyPrefix))
			if key != "" {
				vars[key] = inferValue(value)
			}
		}
	}
	maps.Copy(result, vars)

	if len(result) == 0 {
		return nil
	}
	return result
}

// Merge combines sources left to right with later keys winning. A leading
// non-object value is returned as-is; once an object has been seen,
// non-object values are ignored.
func Merge(contexts ...any) any {
	result := make(map[string]any)

	for _, ctx := range contexts {
		if ctx == nil {
			continue
		}

		switch v := ctx.(type) {
		case map[string]any:
			maps.Copy(result, v)
		default:
			if len(result) == 0 {
				return v
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
