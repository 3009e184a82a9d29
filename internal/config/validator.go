package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	validMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	validFormats = []string{"json", "form_params", "body"}
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) []ValidationError {
	var errors []ValidationError

	if len(config.Environments) == 0 {
		errors = append(errors, ValidationError{
			Path:    "environments",
			Message: "at least one environment is required",
		})
	}

	for name, env := range config.Environments {
		if env.BaseURI == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("environments.%s.baseUri", name),
				Message: "baseUri is required",
			})
		}
	}

	if len(config.Requests) == 0 {
		errors = append(errors, ValidationError{
			Path:    "requests",
			Message: "at least one request is required",
		})
	}

	for name, req := range config.Requests {
		errors = append(errors, validateRequest(config, name, req)...)
	}

	for name, suite := range config.Suites {
		if len(suite.Requests) == 0 {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("suites.%s.requests", name),
				Message: "at least one request is required",
			})
		}

		for i, reqName := range suite.Requests {
			if _, ok := config.Requests[reqName]; !ok {
				errors = append(errors, ValidationError{
					Path:    fmt.Sprintf("suites.%s.requests[%d]", name, i),
					Message: fmt.Sprintf("request not found: %s", reqName),
				})
			}
		}
	}

	return errors
}

func validateRequest(config *Config, name string, req Request) []ValidationError {
	var errors []ValidationError

	if req.Method == "" {
		errors = append(errors, ValidationError{
			Path:    fmt.Sprintf("requests.%s.method", name),
			Message: "method is required",
		})
	} else if !slices.Contains(validMethods, strings.ToUpper(req.Method)) {
		errors = append(errors, ValidationError{
			Path:    fmt.Sprintf("requests.%s.method", name),
			Message: fmt.Sprintf("invalid method %q, must be one of: %s", req.Method, strings.Join(validMethods, ", ")),
		})
	}

	if req.Format != "" && !slices.Contains(validFormats, req.Format) {
		errors = append(errors, ValidationError{
			Path:    fmt.Sprintf("requests.%s.format", name),
			Message: fmt.Sprintf("invalid format %q, must be one of: %s", req.Format, strings.Join(validFormats, ", ")),
		})
	}

	switch req.Body.(type) {
	case nil, string, map[string]any:
	default:
		errors = append(errors, ValidationError{
			Path:    fmt.Sprintf("requests.%s.body", name),
			Message: "body must be a mapping or a string",
		})
	}

	for varName, path := range req.Extract {
		if path == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("requests.%s.extract.%s", name, varName),
				Message: "extract path cannot be empty",
			})
		}
	}

	if req.Expect.Status != 0 && (req.Expect.Status < 100 || req.Expect.Status > 599) {
		errors = append(errors, ValidationError{
			Path:    fmt.Sprintf("requests.%s.expect.status", name),
			Message: fmt.Sprintf("invalid status code: %d", req.Expect.Status),
		})
	}

	if req.Expect.Schema != "" {
		if _, ok := config.Schemas[req.Expect.Schema]; !ok {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("requests.%s.expect.schema", name),
				Message: fmt.Sprintf("schema not found: %s", req.Expect.Schema),
			})
		}
	}

	return errors
}

// ValidateEnvironment validates that an environment exists
func ValidateEnvironment(config *Config, envName string) error {
	if _, ok := config.Environments[envName]; !ok {
		return fmt.Errorf("environment not found: %s", envName)
	}
	return nil
}

// ValidateRequest validates that a request exists
func ValidateRequest(config *Config, reqName string) error {
	if _, ok := config.Requests[reqName]; !ok {
		return fmt.Errorf("request not found: %s", reqName)
	}
	return nil
}

// ValidateSuite validates that a suite exists
func ValidateSuite(config *Config, suiteName string) error {
	if _, ok := config.Suites[suiteName]; !ok {
		return fmt.Errorf("suite not found: %s", suiteName)
	}
	return nil
}
