package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

type encodedBody struct {
	reader      io.Reader
	length      int64
	contentType string
}

// encodeBody picks the payload out of params. json wins over form_params,
// which wins over body.
func encodeBody(params Parameters) (encodedBody, error) {
	if v, ok := params[ParamJSON]; ok {
		return encodeJSON(v)
	}
	if v, ok := params[ParamFormParams]; ok {
		return encodeForm(v)
	}
	if v, ok := params[ParamBody]; ok {
		return encodeRaw(v)
	}
	return encodedBody{}, nil
}

func encodeJSON(v any) (encodedBody, error) {
	if b, ok := v.(Body); ok {
		v = b.Value()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return encodedBody{}, errors.Wrap(err, "marshaling JSON request body")
	}
	return encodedBody{
		reader:      bytes.NewReader(data),
		length:      int64(len(data)),
		contentType: contentTypeJSON,
	}, nil
}

func encodeForm(v any) (encodedBody, error) {
	var encoded string
	switch form := v.(type) {
	case Body:
		if form.IsRaw() {
			encoded = form.Raw()
		} else {
			encoded = FormEncode(form.Fields())
		}
	case map[string]any:
		encoded = FormEncode(form)
	case map[string]string:
		values := url.Values{}
		for key, value := range form {
			values.Set(key, value)
		}
		encoded = values.Encode()
	case url.Values:
		encoded = form.Encode()
	case string:
		encoded = form
	default:
		return encodedBody{}, errors.Errorf("unsupported form_params value of type %T", v)
	}
	return encodedBody{
		reader:      strings.NewReader(encoded),
		length:      int64(len(encoded)),
		contentType: contentTypeForm,
	}, nil
}

func encodeRaw(v any) (encodedBody, error) {
	if b, ok := v.(Body); ok {
		v = b.Value()
	}
	switch body := v.(type) {
	case nil:
		return encodedBody{}, nil
	case string:
		if body == "" {
			return encodedBody{}, nil
		}
		return encodedBody{reader: strings.NewReader(body), length: int64(len(body))}, nil
	case []byte:
		if len(body) == 0 {
			return encodedBody{}, nil
		}
		return encodedBody{reader: bytes.NewReader(body), length: int64(len(body))}, nil
	case io.Reader:
		return encodedBody{reader: body, length: -1}, nil
	case map[string]any:
		// An empty mapping is the builder's default body and means "no body".
		if len(body) == 0 {
			return encodedBody{}, nil
		}
		return encodedBody{}, errors.New("a fields body cannot be sent verbatim; use the json or form_params format")
	default:
		return encodedBody{}, errors.Errorf("unsupported body value of type %T", v)
	}
}

// FormEncode URL-form-encodes fields. Nested maps and slices are flattened
// with bracketed keys (a[b]=1, a[0]=x), booleans become 1 and 0, nil values
// are skipped. Output is sorted by key.
func FormEncode(fields map[string]any) string {
	values := url.Values{}
	for key, value := range fields {
		addFormValue(values, key, value)
	}
	return values.Encode()
}

func addFormValue(values url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
	case string:
		values.Add(key, v)
	case bool:
		if v {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
	case map[string]any:
		for k, inner := range v {
			addFormValue(values, key+"["+k+"]", inner)
		}
	case map[string]string:
		for k, inner := range v {
			values.Add(key+"["+k+"]", inner)
		}
	case []any:
		for i, inner := range v {
			addFormValue(values, key+"["+strconv.Itoa(i)+"]", inner)
		}
	case []string:
		for i, inner := range v {
			values.Add(key+"["+strconv.Itoa(i)+"]", inner)
		}
	default:
		values.Add(key, fmt.Sprint(v))
	}
}

// applyHeaders copies a headers parameter onto h. Keys keep the case they
// were supplied in.
func applyHeaders(h http.Header, v any) error {
	switch headers := v.(type) {
	case nil:
	case map[string]string:
		for key, value := range headers {
			h[key] = []string{value}
		}
	case map[string]any:
		for key, value := range headers {
			switch vv := value.(type) {
			case []string:
				h[key] = append([]string(nil), vv...)
			default:
				h[key] = []string{fmt.Sprint(vv)}
			}
		}
	case http.Header:
		for key, vv := range headers {
			h[key] = append([]string(nil), vv...)
		}
	default:
		return errors.Errorf("unsupported headers value of type %T", v)
	}
	return nil
}

// hasHeader looks a header up case-insensitively, since applyHeaders does
// not canonicalise keys.
func hasHeader(h http.Header, name string) bool {
	for key := range h {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
