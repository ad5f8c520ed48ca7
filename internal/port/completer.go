package port

import "context"

// Completer abstracts a single LLM completion call. The extraction engine
// treats it as an opaque prompt-in, text-out function.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
