package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCollection = `
environments:
  dev:
    baseUri: https://api-dev.example.com
    headers:
      Accept: application/json
    variables:
      userId: "1"
requests:
  getUser:
    method: GET
    uri: /users/{{userId}}
    extract:
      name: $.name
    expect:
      status: 200
      schema: user
  createUser:
    method: post
    uri: /users
    format: json
    body:
      name: "{{name}}"
      tags: ["{{userId}}", static]
    headers:
      X-Trace: "{{userId}}"
    options:
      timeout: 5s
suites:
  userFlow:
    requests: [getUser, createUser]
    variables:
      userId: "2"
schemas:
  user:
    type: object
    required: [name]
`

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "volley.yaml")
	if err := os.WriteFile(configPath, []byte(sampleCollection), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got := config.Environments["dev"].BaseURI; got != "https://api-dev.example.com" {
		t.Errorf("Expected dev baseUri, got %q", got)
	}
	if got := config.Environments["dev"].Vars["userId"]; got != "1" {
		t.Errorf("Expected userId 1, got %q", got)
	}

	create := config.Requests["createUser"]
	if create.Format != "json" {
		t.Errorf("Expected json format, got %q", create.Format)
	}
	body, ok := create.Body.(map[string]any)
	if !ok {
		t.Fatalf("Expected mapping body, got %T", create.Body)
	}
	if body["name"] != "{{name}}" {
		t.Errorf("Expected raw placeholder in body, got %v", body["name"])
	}
	if create.Options["timeout"] != "5s" {
		t.Errorf("Expected timeout option 5s, got %v", create.Options["timeout"])
	}

	if got := config.Requests["getUser"].Extract["name"]; got != "$.name" {
		t.Errorf("Expected extract path $.name, got %q", got)
	}
	if got := config.Suites["userFlow"].Requests; len(got) != 2 {
		t.Errorf("Expected 2 suite requests, got %v", got)
	}
	if _, ok := config.Schemas["user"]; !ok {
		t.Errorf("Expected user schema to be loaded")
	}

	if errs := ValidateConfig(config); len(errs) != 0 {
		t.Errorf("Expected valid config, got %v", errs)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	data := []byte(`{"environments":{"local":{"baseUri":"http://localhost"}},` +
		`"requests":{"ping":{"method":"GET","uri":"/ping"}}}`)

	config, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if config.Requests["ping"].URI != "/ping" {
		t.Errorf("Expected /ping, got %q", config.Requests["ping"].URI)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := ParseConfig([]byte("requests: [unterminated")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestProcessEnvironment(t *testing.T) {
	env := map[string]string{"host": "example.com", "id": "42"}

	tests := []struct {
		input    string
		expected string
	}{
		{"https://{{host}}/users/{{id}}", "https://example.com/users/42"},
		{"no placeholders", "no placeholders"},
		{"{{unknown}}", "{{unknown}}"},
	}

	for _, tt := range tests {
		if got := ProcessEnvironment(tt.input, env); got != tt.expected {
			t.Errorf("ProcessEnvironment(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRequestResolve(t *testing.T) {
	config, err := ParseConfig([]byte(sampleCollection))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	original := config.Requests["createUser"]
	resolved := original.Resolve(map[string]string{"userId": "7", "name": "ada"})

	body := resolved.Body.(map[string]any)
	if body["name"] != "ada" {
		t.Errorf("Expected name ada, got %v", body["name"])
	}
	tags := body["tags"].([]any)
	if tags[0] != "7" || tags[1] != "static" {
		t.Errorf("Unexpected tags %v", tags)
	}
	if resolved.Headers["X-Trace"] != "7" {
		t.Errorf("Expected header 7, got %q", resolved.Headers["X-Trace"])
	}

	if original.Body.(map[string]any)["name"] != "{{name}}" {
		t.Error("Resolve must not modify the original request")
	}
}

func TestMergeEnvironments(t *testing.T) {
	merged := MergeEnvironments(
		map[string]string{"a": "1", "b": "1"},
		map[string]string{"b": "2"},
	)
	if merged["a"] != "1" || merged["b"] != "2" {
		t.Errorf("Unexpected merge result %v", merged)
	}
}

func TestValidateConfig(t *testing.T) {
	config := &Config{
		Environments: map[string]Environment{"dev": {}},
		Requests: map[string]Request{
			"bad": {
				Method:  "OPTIONS",
				Format:  "xml",
				Body:    []any{1},
				Extract: map[string]string{"id": ""},
				Expect:  Expectation{Status: 42, Schema: "missing"},
			},
			"noMethod": {URI: "/"},
		},
		Suites: map[string]Suite{
			"empty":  {},
			"broken": {Requests: []string{"ghost"}},
		},
	}

	errs := ValidateConfig(config)
	paths := make(map[string]bool, len(errs))
	for _, e := range errs {
		paths[e.Path] = true
	}

	for _, want := range []string{
		"environments.dev.baseUri",
		"requests.bad.method",
		"requests.bad.format",
		"requests.bad.body",
		"requests.bad.extract.id",
		"requests.bad.expect.status",
		"requests.bad.expect.schema",
		"requests.noMethod.method",
		"suites.empty.requests",
		"suites.broken.requests[0]",
	} {
		if !paths[want] {
			t.Errorf("Expected validation error at %s, got %v", want, errs)
		}
	}

	if errs := ValidateConfig(&Config{}); len(errs) != 2 {
		t.Errorf("Expected 2 errors for empty config, got %v", errs)
	}
}

func TestValidateLookups(t *testing.T) {
	config, _ := ParseConfig([]byte(sampleCollection))

	if err := ValidateEnvironment(config, "dev"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := ValidateEnvironment(config, "prod"); err == nil {
		t.Error("Expected error for unknown environment")
	}
	if err := ValidateRequest(config, "nope"); err == nil {
		t.Error("Expected error for unknown request")
	}
	if err := ValidateSuite(config, "userFlow"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
