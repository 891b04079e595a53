// Package engine serves a mock HTTP API synthesized from a schema.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────┐
//	│                         Server                            │
//	│                                                           │
//	│   request ──► Handler.Dispatch                            │
//	│                 │                                         │
//	│                 ├─► stub.Store        (exact METHOD:path) │
//	│                 │                                         │
//	│                 └─► synth.Index ──► synth.Synthesizer     │
//	│                     (definition,     (example object with │
//	│                      link, path       path values merged) │
//	│                      values)                              │
//	└───────────────────────────────────────────────────────────┘
//
// Stubs always win over synthesis. A request no link matches gets 404
// with {"error":"Not found"}. Successful synthesized responses use 201 for
// POST, 204 for DELETE and 200 otherwise.
//
// # Basic Usage
//
//	s, _ := schema.LoadFile("schema.json")
//	srv, _ := engine.NewServer(s)
//	addr, _ := srv.Start(ctx, "127.0.0.1:0")
//	defer srv.Stop(ctx)
//
//	srv.Stub("GET", "/account", map[string]any{"foo": "bar"}, 206)
//	app, _ := srv.Factory("app", map[string]any{"name": "my-app"})
//
// The package api exposes the same operations over HTTP for test
// harnesses running in another process.
package engine
