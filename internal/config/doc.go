// Package config loads request collections.
//
// A collection is a YAML (or JSON) file that defines:
//   - Environments: a base URI, default headers and variables per target
//   - Requests: a method, URI, body format, body, headers and transport options
//   - Suites: ordered lists of requests sharing variables
//   - Schemas: JSON schemas referenced by request expectations
//
// Basic Usage:
//
//	cfg, err := config.LoadConfig("volley.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    for _, err := range errs {
//	        log.Printf("Validation error: %s", err)
//	    }
//	}
//
// Variable Substitution:
//
// Variables are written {{name}} and may appear in URIs, header values,
// option values and anywhere inside a body. Request.Resolve substitutes
// them:
//
//	req := cfg.Requests["getUser"].Resolve(cfg.Environments["dev"].Vars)
package config
