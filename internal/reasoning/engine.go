package reasoning

import "context"

// Engine is the opaque reasoning capability each analysis stage depends on.
// Implementations must be safe for concurrent use; stages treat any failure
// as an upstream error and retry per pipeline policy.
type Engine interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Complete implements Engine.
func (f EngineFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
