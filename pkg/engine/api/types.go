package api

import (
	"time"

	"github.com/getmockd/hyperstub/pkg/stub"
	"github.com/getmockd/hyperstub/pkg/synth"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Uptime    int64     `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// StubRequest is the body of POST /stubs.
type StubRequest struct {
	Method     string `json:"method" validate:"required,alpha"`
	Path       string `json:"path" validate:"required,startswith=/"`
	Body       any    `json:"body"`
	StatusCode int    `json:"statusCode,omitempty" validate:"omitempty,min=100,max=599"`
}

// StubListResponse is returned by GET /stubs.
type StubListResponse struct {
	Stubs []stub.Stub `json:"stubs"`
	Count int         `json:"count"`
}

// Definition describes one schema definition.
type Definition struct {
	Name  string        `json:"name"`
	Links []synth.Route `json:"links"`
}

// DefinitionsResponse is returned by GET /definitions.
type DefinitionsResponse struct {
	Definitions []Definition `json:"definitions"`

	// Custom lists literal definitions registered through PUT
	// /factories/{name}.
	Custom []string `json:"custom"`
}
