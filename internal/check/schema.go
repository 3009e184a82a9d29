package check

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors collects every schema violation found in a document.
type ValidationErrors []error

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, err := range ve {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// CompileSchema compiles a schema given as JSON text or as a decoded
// document (for example a mapping read from a YAML collection).
func CompileSchema(schema any) (*jsonschema.Schema, error) {
	var text string
	switch s := schema.(type) {
	case string:
		text = s
	case []byte:
		text = string(s)
	default:
		encoded, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("invalid schema: %w", err)
		}
		text = string(encoded)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(text)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return compiled, nil
}

// ValidateSchema validates a JSON document against schema. It returns nil
// when the document conforms and ValidationErrors when it does not; any
// other error means the schema or the document could not be parsed.
func ValidateSchema(document string, schema any) error {
	compiled, err := CompileSchema(schema)
	if err != nil {
		return err
	}

	var data any
	if err := json.Unmarshal([]byte(document), &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := compiled.Validate(data); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return flatten(validationErr)
		}
		return ValidationErrors{err}
	}
	return nil
}

// flatten walks the cause tree, keeping the leaf messages.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("%s: %s", location, err.Message)}
	}
	var errs ValidationErrors
	for _, cause := range err.Causes {
		errs = append(errs, flatten(cause)...)
	}
	return errs
}
