// Package check reads values out of response bodies and validates them
// against expectations declared in a collection.
package check

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract reads the value at a JSONPath expression such as $.users[0].name.
// Strings are returned unquoted, other values as raw JSON, and a JSON null
// as "null".
func Extract(json, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.Valid(json) {
		return "", fmt.Errorf("invalid JSON")
	}

	result := gjson.Get(json, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractAll extracts every path in paths, keyed by variable name. Values
// that could be read are returned even when others fail.
func ExtractAll(json string, paths map[string]string) (map[string]string, error) {
	results := make(map[string]string, len(paths))
	var failures []string

	for name, path := range paths {
		value, err := Extract(json, path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = value
	}

	if len(failures) > 0 {
		return results, fmt.Errorf("extraction errors: %s", strings.Join(failures, "; "))
	}
	return results, nil
}

// toGjsonPath converts JSONPath to gjson syntax:
// $.users[0]['first.name'] becomes users.0.first\.name
func toGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}

	var segments []string
	for i := 0; i < len(path); {
		switch path[i] {
		case '.':
			i++
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				segments = append(segments, escapeSegment(path[i+1:]))
				i = len(path)
				continue
			}
			inner := strings.Trim(path[i+1:i+end], `'"`)
			segments = append(segments, escapeSegment(inner))
			i += end + 1
		default:
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, escapeSegment(path[i:i+end]))
			i += end
		}
	}
	return strings.Join(segments, ".")
}

func escapeSegment(s string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(s)
}
