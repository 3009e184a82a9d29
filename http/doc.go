// Package http provides a fluent request builder over an HTTP transport.
//
// A Builder collects the URI, body, headers, transport options, body format
// and a one-shot debug sink through chained calls, then dispatches the
// request with one of the verb methods:
//
//	b := http.New().Make("https://api.example.com")
//
//	resp, err := b.To("users?active=1").
//	    WithBody(http.Fields(map[string]any{"name": "ada"})).
//	    AddHeaders(map[string]string{"Authorization": "Bearer token"}).
//	    AsJSON().
//	    Post(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.StatusCode, resp.GetBodyAsString())
//
// Dispatch hands the transport a Parameters set holding the body under the
// format key ("json", "form_params" or "body"), the headers and the debug
// sink. Options are merged on top, so an option named like one of those keys
// replaces the builder's own value:
//
//	b.WithHeaders(map[string]string{"A": "1"}).
//	    WithOptions(map[string]any{"headers": map[string]string{"B": "2"}})
//	// the transport receives headers {"B": "2"}
//
// Debug tracing applies to exactly one dispatch:
//
//	f, _ := os.Create("trace.log")
//	defer f.Close()
//	b.DebugTo(f).Get(ctx) // traced
//	b.Get(ctx)            // not traced
//
// The default transport is Client, which wraps net/http and records
// per-phase timing on every Response. Any type implementing Transport can
// be plugged in with WithTransportFactory.
//
// Thread Safety:
//
// A Builder must not be shared between goroutines. Client is safe for
// concurrent use.
package http
