package http

import (
	"net/http"
	"testing"
)

func TestResponse_StatusHelpers(t *testing.T) {
	tests := []struct {
		code        int
		success     bool
		redirect    bool
		clientError bool
		serverError bool
	}{
		{200, true, false, false, false},
		{204, true, false, false, false},
		{301, false, true, false, false},
		{404, false, false, true, false},
		{500, false, false, false, true},
		{503, false, false, false, true},
	}

	for _, tt := range tests {
		resp := NewResponse(tt.code, nil, nil)
		if resp.IsSuccess() != tt.success {
			t.Errorf("%d: IsSuccess() = %v, want %v", tt.code, resp.IsSuccess(), tt.success)
		}
		if resp.IsRedirect() != tt.redirect {
			t.Errorf("%d: IsRedirect() = %v, want %v", tt.code, resp.IsRedirect(), tt.redirect)
		}
		if resp.IsClientError() != tt.clientError {
			t.Errorf("%d: IsClientError() = %v, want %v", tt.code, resp.IsClientError(), tt.clientError)
		}
		if resp.IsServerError() != tt.serverError {
			t.Errorf("%d: IsServerError() = %v, want %v", tt.code, resp.IsServerError(), tt.serverError)
		}
		if resp.IsError() != (tt.clientError || tt.serverError) {
			t.Errorf("%d: IsError() = %v", tt.code, resp.IsError())
		}
	}
}

func TestResponse_Body(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "text/plain")
	resp := NewResponse(200, headers, []byte("User-agent: *"))

	if got := resp.GetBodyAsString(); got != "User-agent: *" {
		t.Errorf("Expected body %q, got %q", "User-agent: *", got)
	}
	if resp.Size() != 13 {
		t.Errorf("Expected size 13, got %d", resp.Size())
	}
	if resp.GetHeader("content-type") != "text/plain" {
		t.Errorf("Expected Content-Type text/plain, got %s", resp.GetHeader("content-type"))
	}
	if resp.Status != "OK" {
		t.Errorf("Expected status text OK, got %s", resp.Status)
	}
}

func TestBody_Variant(t *testing.T) {
	var zero Body
	if zero.IsRaw() || zero.Len() != 0 {
		t.Errorf("zero Body should be an empty fields body")
	}

	src := map[string]any{"a": 1}
	fields := Fields(src)
	src["a"] = 2
	if fields.Fields()["a"] != 1 {
		t.Errorf("Fields should copy its input")
	}

	raw := Raw("abc")
	if !raw.IsRaw() || raw.Len() != 3 || raw.Fields() != nil {
		t.Errorf("unexpected raw body state: %#v", raw)
	}
	if raw.Value() != "abc" {
		t.Errorf("Value() = %v, want abc", raw.Value())
	}
}
