package ai

import "context"

// Runtime issues one non-streaming chat completion.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// StreamRuntime streams a chat completion, invoking onDelta with each
// content fragment, and returns the accumulated text once the stream ends.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) (string, error)
}

// ChatRuntime is what the Narrator needs from a backend.
type ChatRuntime interface {
	Runtime
	StreamRuntime
}
