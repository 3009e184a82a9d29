package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a request collection: named environments, requests and suites.
// Files may be YAML or JSON.
type Config struct {
	Environments map[string]Environment `yaml:"environments"`
	Requests     map[string]Request     `yaml:"requests"`
	Suites       map[string]Suite       `yaml:"suites,omitempty"`
	Schemas      map[string]any         `yaml:"schemas,omitempty"`
}

// Environment roots requests at a base URI and supplies variables.
type Environment struct {
	BaseURI string            `yaml:"baseUri"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Vars    map[string]string `yaml:"variables,omitempty"`
}

// Request describes one builder chain.
type Request struct {
	Method  string            `yaml:"method"`
	URI     string            `yaml:"uri"`
	Format  string            `yaml:"format,omitempty"`
	Body    any               `yaml:"body,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Options map[string]any    `yaml:"options,omitempty"`
	Debug   bool              `yaml:"debug,omitempty"`

	// Extract maps a variable name to a JSON path read from the response.
	Extract map[string]string `yaml:"extract,omitempty"`
	Expect  Expectation       `yaml:"expect,omitempty"`
}

// Expectation is checked against the response of a request.
type Expectation struct {
	Status   int    `yaml:"status,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
	Contains string `yaml:"contains,omitempty"`
}

// Suite runs requests in order, sharing extracted variables.
type Suite struct {
	Requests []string          `yaml:"requests"`
	Vars     map[string]string `yaml:"variables,omitempty"`
}

// LoadConfig loads a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes a YAML or JSON collection.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &config, nil
}

// ProcessEnvironment replaces {{name}} placeholders in input.
func ProcessEnvironment(input string, env map[string]string) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	result := input
	for key, value := range env {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

// ProcessEnvironmentInMap processes placeholders in every value of input.
func ProcessEnvironmentInMap(input map[string]string, env map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	result := make(map[string]string, len(input))
	for key, value := range input {
		result[key] = ProcessEnvironment(value, env)
	}
	return result
}

// ProcessEnvironmentInValue walks decoded YAML (maps, lists, strings) and
// processes placeholders in every string it finds.
func ProcessEnvironmentInValue(input any, env map[string]string) any {
	switch v := input.(type) {
	case string:
		return ProcessEnvironment(v, env)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[key] = ProcessEnvironmentInValue(inner, env)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = ProcessEnvironmentInValue(inner, env)
		}
		return out
	default:
		return v
	}
}

// MergeEnvironments merges two environments, with the second taking precedence
func MergeEnvironments(base, override map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range override {
		result[key] = value
	}
	return result
}

// Resolve returns a copy of r with placeholders substituted from vars.
func (r Request) Resolve(vars map[string]string) Request {
	out := r
	out.URI = ProcessEnvironment(r.URI, vars)
	out.Headers = ProcessEnvironmentInMap(r.Headers, vars)
	out.Body = ProcessEnvironmentInValue(r.Body, vars)
	out.Expect.Contains = ProcessEnvironment(r.Expect.Contains, vars)
	if r.Options != nil {
		out.Options = ProcessEnvironmentInValue(r.Options, vars).(map[string]any)
	}
	return out
}
