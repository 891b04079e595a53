// Package metrics exposes Prometheus collectors for the mock server.
//
// # Label Conventions
//
//   - method: upper-case HTTP method of the request
//   - outcome: stub, synthesized, not_found or error
//   - status: numeric status code of the response
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional collector set without nil checks at every call site.
package metrics
