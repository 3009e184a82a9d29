package http

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"

	"github.com/pkg/errors"
)

// debugSink resolves the debug parameter to a writer. false and nil disable
// tracing; true selects fallback.
func debugSink(v any, fallback io.Writer) (io.Writer, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if d {
			return fallback, nil
		}
		return nil, nil
	case io.Writer:
		return d, nil
	default:
		return nil, errors.Errorf("unsupported debug value of type %T", v)
	}
}

// wireTrace writes a curl-style transcript: "*" for connection events,
// ">" for the outgoing request and "<" for the response.
type wireTrace struct {
	w io.Writer
}

func (t *wireTrace) info(format string, args ...any) {
	if t == nil {
		return
	}
	fmt.Fprintf(t.w, "* "+format+"\n", args...)
}

func (t *wireTrace) request(req *http.Request) {
	if t == nil {
		return
	}
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		t.info("unable to dump request: %v", err)
		return
	}
	t.prefixed("> ", dump)
}

func (t *wireTrace) response(resp *http.Response) {
	if t == nil {
		return
	}
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		t.info("unable to dump response: %v", err)
		return
	}
	t.prefixed("< ", dump)
}

func (t *wireTrace) prefixed(prefix string, dump []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(dump))
	scanner.Buffer(make([]byte, 0, 64*1024), len(dump)+1)
	for scanner.Scan() {
		fmt.Fprintf(t.w, "%s%s\n", prefix, bytes.TrimRight(scanner.Bytes(), "\r"))
	}
}
