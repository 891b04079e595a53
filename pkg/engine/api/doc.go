// Package api exposes a mock server's stubs and factories over HTTP.
//
// Test harnesses running in another process cannot call the Go API, so the
// control listener offers the same operations:
//
//	GET    /health               liveness and uptime
//	GET    /stubs                list stubs
//	POST   /stubs                add a stub
//	DELETE /stubs?method=&path=  remove a stub
//	POST   /stubs/reset          remove all stubs
//	GET    /definitions          definitions and their links
//	POST   /factories/{name}     build an object
//	PUT    /factories/{name}     register a literal definition
//	GET    /metrics              Prometheus metrics, when enabled
//
// The control API has no authentication. Bind it to a loopback address.
package api
