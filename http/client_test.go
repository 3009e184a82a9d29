package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo is what the test server reports back about the request it saw.
type echo struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	RawQuery    string            `json:"rawQuery"`
	Headers     map[string]string `json:"headers"`
	ContentType string            `json:"contentType"`
	Data        string            `json:"data"`
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		headers := make(map[string]string, len(r.Header))
		for key := range r.Header {
			headers[key] = r.Header.Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echo{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			Headers:     headers,
			ContentType: r.Header.Get("Content-Type"),
			Data:        string(body),
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func decodeEcho(t *testing.T, resp *Response) echo {
	t.Helper()
	var e echo
	require.NoError(t, json.Unmarshal(resp.GetBody(), &e), "body: %s", resp.GetBodyAsString())
	return e
}

func TestClient_JSONBody(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("post").
		WithBody(Fields(map[string]any{"foo": "bar", "baz": "qux"})).
		AsJSON().
		Post(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "POST", e.Method)
	assert.Equal(t, "/post", e.Path)
	assert.Equal(t, "application/json", e.ContentType)
	assert.JSONEq(t, `{"foo":"bar","baz":"qux"}`, e.Data)
}

func TestClient_FormParamsBody(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("post").
		WithBody(Fields(map[string]any{"foo": "bar", "baz": "qux"})).
		AsFormParams().
		Post(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "application/x-www-form-urlencoded", e.ContentType)
	form, err := url.ParseQuery(e.Data)
	require.NoError(t, err)
	assert.Equal(t, "bar", form.Get("foo"))
	assert.Equal(t, "qux", form.Get("baz"))
}

func TestClient_RawBodyIsSentVerbatim(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("put").
		WithBody(Raw("<xml/>")).
		AddBody(Raw("<more/>")).
		WithHeaders(map[string]string{"Content-Type": "text/xml"}).
		Put(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "<xml/><more/>", e.Data)
	assert.Equal(t, "text/xml", e.ContentType)
}

func TestClient_DefaultGetSendsNoBody(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).To("robots.txt").Get(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "", e.Data)
	assert.Equal(t, "", e.ContentType)
	assert.Equal(t, "/robots.txt", e.Path)
}

func TestClient_FieldsBodyCannotBeSentVerbatim(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	_, err := New().Make(server.URL).
		To("post").
		WithBody(Fields(map[string]any{"a": 1})).
		Post(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "json or form_params")
	assert.Equal(t, 0, hits)
}

func TestClient_QueryStringSurvives(t *testing.T) {
	server := newEchoServer(t)
	b := New().Make(server.URL)

	tests := []struct {
		name string
		send func(context.Context) (*Response, error)
		uri  string
	}{
		{"get", b.Get, "anything?foo=bar&baz=qux"},
		{"post", b.Post, "post?foo=bar"},
		{"patch", b.Patch, "patch?foo=bar"},
		{"put", b.Put, "put?foo=bar"},
		{"delete", b.Delete, "delete?id=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.To(tt.uri).
				WithBody(Fields(map[string]any{"lorem": "ipsum", "bacon": "sandwich"})).
				AsJSON()

			resp, err := tt.send(context.Background())
			require.NoError(t, err)

			e := decodeEcho(t, resp)
			wantPath, wantQuery, _ := strings.Cut(tt.uri, "?")
			assert.Equal(t, "/"+wantPath, e.Path)
			assert.Equal(t, wantQuery, e.RawQuery)
			assert.JSONEq(t, `{"lorem":"ipsum","bacon":"sandwich"}`, e.Data)
		})
	}
}

func TestClient_QueryOptionMergesIntoURI(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("anything?foo=bar").
		WithOptions(map[string]any{ParamQuery: map[string]string{"page": "2"}}).
		Get(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	q, err := url.ParseQuery(e.RawQuery)
	require.NoError(t, err)
	assert.Equal(t, "bar", q.Get("foo"))
	assert.Equal(t, "2", q.Get("page"))
}

func TestClient_HeadersAreSent(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("get").
		WithHeaders(map[string]string{"Custom": "Header"}).
		AddHeaders(map[string]string{"Custom2": "Header2"}).
		AsJSON().
		Get(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "Header", e.Headers["Custom"])
	assert.Equal(t, "Header2", e.Headers["Custom2"])
}

func TestClient_HeadersOptionWins(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("get").
		WithHeaders(map[string]string{"Y": "2"}).
		WithOptions(map[string]any{ParamHeaders: map[string]string{"X": "1"}}).
		Get(context.Background())
	require.NoError(t, err)

	e := decodeEcho(t, resp)
	assert.Equal(t, "1", e.Headers["X"])
	assert.NotContains(t, e.Headers, "Y")
}

func TestClient_ExplicitContentTypeIsKept(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).
		To("post").
		WithBody(Fields(map[string]any{"a": 1})).
		WithHeaders(map[string]string{"content-type": "application/vnd.api+json"}).
		AsJSON().
		Post(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.api+json", decodeEcho(t, resp).ContentType)
}

func TestClient_BaseURLWithPathPrefix(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL + "/api/v1/").To("users").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/users", decodeEcho(t, resp).Path)

	resp, err = New().Make(server.URL + "/api/v1/").To("/root").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/root", decodeEcho(t, resp).Path)
}

func TestClient_AbsoluteURIBypassesBase(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make("http://example.invalid").To(server.URL + "/direct").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/direct", decodeEcho(t, resp).Path)
}

func TestClient_DebugTraceIsOneShot(t *testing.T) {
	server := newEchoServer(t)
	var trace bytes.Buffer
	b := New().Make(server.URL)

	_, err := b.DebugTo(&trace).
		To("post").
		WithBody(Fields(map[string]any{"foo": "bar", "key": "value"})).
		AsJSON().
		Post(context.Background())
	require.NoError(t, err)

	out := trace.String()
	assert.Contains(t, out, "* Connected to ")
	assert.Contains(t, out, "> POST /post HTTP/1.1")
	assert.Contains(t, out, "> Content-Type: application/json")
	assert.Contains(t, out, `"foo":"bar"`)
	assert.Contains(t, out, "< HTTP/1.1 200 OK")

	size := trace.Len()
	_, err = b.Post(context.Background())
	require.NoError(t, err)
	assert.Equal(t, size, trace.Len(), "second dispatch must not be traced")
}

func TestClient_DebugTrueUsesDefaultOutput(t *testing.T) {
	server := newEchoServer(t)
	var trace bytes.Buffer

	b := New(WithTransportFactory(func(baseURI string) Transport {
		return NewClient(WithBaseURL(baseURI), WithDebugOutput(&trace))
	}))

	_, err := b.Make(server.URL).To("get").Debug(true).Get(context.Background())
	require.NoError(t, err)

	assert.Contains(t, trace.String(), "> GET /get HTTP/1.1")
}

func TestClient_TimeoutOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	_, err := New().Make(server.URL).
		To("slow").
		WithOptions(map[string]any{ParamTimeout: 50 * time.Millisecond}).
		Get(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestClient_HTTPErrorsOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()
	b := New().Make(server.URL).To("missing")

	resp, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = b.WithOptions(map[string]any{ParamHTTPErrors: true}).Get(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Same(t, resp, statusErr.Response)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_AllowRedirectsOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/from" {
			http.Redirect(w, r, "/to", http.StatusFound)
			return
		}
		w.Write([]byte("landed"))
	}))
	defer server.Close()
	b := New().Make(server.URL).To("from")

	resp, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "landed", resp.GetBodyAsString())

	resp, err = b.WithOptions(map[string]any{ParamAllowRedirects: false}).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/to", resp.GetHeader("Location"))
}

func TestClient_AuthOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ada" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := New().Make(server.URL).
		WithOptions(map[string]any{ParamAuth: []string{"ada", "secret"}}).
		Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClient_TransportErrorIsURLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	resp, err := New().Make(addr).To("gone").Get(context.Background())

	assert.Nil(t, resp)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "got %T: %v", err, err)
}

func TestClient_InvalidBaseURL(t *testing.T) {
	_, err := New().Make("http://[::1").To("x").Get(context.Background())
	require.Error(t, err)
}

func TestClient_ResponseTiming(t *testing.T) {
	server := newEchoServer(t)

	resp, err := New().Make(server.URL).To("t").Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "GET", resp.Method)
	assert.Equal(t, server.URL+"/t", resp.URL)
	assert.Equal(t, "HTTP/1.1", resp.Proto)
	assert.False(t, resp.Timing.StartTime.IsZero())
	assert.True(t, resp.Timing.TotalTime > 0)
	assert.True(t, resp.ResponseTime >= resp.Timing.TotalTime)
}
