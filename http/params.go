package http

import "maps"

// Parameters is the per-request parameter set a Builder hands to its
// Transport. Keys follow the Param* constants; transports ignore keys they
// do not recognise.
type Parameters map[string]any

// Recognised parameter keys.
const (
	ParamJSON       = "json"
	ParamFormParams = "form_params"
	ParamBody       = "body"
	ParamHeaders    = "headers"
	ParamDebug      = "debug"

	// ParamQuery is a mapping merged into the URI's query string.
	ParamQuery = "query"
	// ParamTimeout is a time.Duration or duration string bounding one request.
	ParamTimeout = "timeout"
	// ParamAuth is a []string{user, password} pair for basic auth.
	ParamAuth = "auth"
	// ParamAllowRedirects disables redirect following when false.
	ParamAllowRedirects = "allow_redirects"
	// ParamHTTPErrors makes 4xx and 5xx responses return a *StatusError.
	ParamHTTPErrors = "http_errors"
)

// Merge copies every key of overrides into p. Existing keys are replaced.
func (p Parameters) Merge(overrides map[string]any) Parameters {
	maps.Copy(p, overrides)
	return p
}

// Clone returns a shallow copy of p.
func (p Parameters) Clone() Parameters {
	return maps.Clone(p)
}
