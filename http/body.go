package http

import (
	"fmt"
	"maps"
)

// Format selects how a Builder's body is attached to the outgoing request.
// Its value doubles as the Parameters key the body is stored under.
type Format string

const (
	// FormatFormParams URL-form-encodes a Fields body.
	FormatFormParams Format = ParamFormParams
	// FormatJSON JSON-encodes the body.
	FormatJSON Format = ParamJSON
	// FormatBody sends the body verbatim. This is the default.
	FormatBody Format = ParamBody
)

type bodyKind int

const (
	fieldsBody bodyKind = iota
	rawBody
)

func (k bodyKind) String() string {
	if k == rawBody {
		return "raw"
	}
	return "fields"
}

// Body is a request payload: either a mapping of fields (for structured
// encodings) or a raw string. The zero value is an empty Fields body.
type Body struct {
	kind   bodyKind
	fields map[string]any
	raw    string
}

// Fields returns a mapping-shaped body. The map is copied.
func Fields(fields map[string]any) Body {
	return Body{kind: fieldsBody, fields: maps.Clone(fields)}
}

// Raw returns a string-shaped body.
func Raw(s string) Body {
	return Body{kind: rawBody, raw: s}
}

// IsRaw reports whether the body holds a raw string.
func (b Body) IsRaw() bool {
	return b.kind == rawBody
}

// Fields returns a copy of the field mapping, or nil for a raw body.
func (b Body) Fields() map[string]any {
	if b.kind == rawBody {
		return nil
	}
	out := make(map[string]any, len(b.fields))
	maps.Copy(out, b.fields)
	return out
}

// Raw returns the raw string, or "" for a fields body.
func (b Body) Raw() string {
	return b.raw
}

// Len is the number of fields, or the byte length of a raw body.
func (b Body) Len() int {
	if b.kind == rawBody {
		return len(b.raw)
	}
	return len(b.fields)
}

// Value is the body as handed to a Transport: a map[string]any or a string.
func (b Body) Value() any {
	if b.kind == rawBody {
		return b.raw
	}
	return b.Fields()
}

// merge combines two bodies of the same shape. Fields merge shallowly with
// keys from next winning; raw strings concatenate.
func (b Body) merge(next Body) (Body, error) {
	if b.kind != next.kind {
		return b, fmt.Errorf("%w: cannot add %s body to %s body", ErrBodyMismatch, next.kind, b.kind)
	}
	if b.kind == rawBody {
		return Raw(b.raw + next.raw), nil
	}
	merged := b.Fields()
	maps.Copy(merged, next.fields)
	return Body{kind: fieldsBody, fields: merged}, nil
}

func (b Body) String() string {
	if b.kind == rawBody {
		return b.raw
	}
	return fmt.Sprint(b.fields)
}
