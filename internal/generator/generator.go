// Package generator talks to the text-generation service that proposes obstacle
// configurations and turns its replies into typed configurations.
package generator

import "context"

// Request is one prompt sent to the generator. System is the role prompt for the phase.
type Request struct {
	System string
	Prompt string
}

// Generator returns the raw text reply for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
