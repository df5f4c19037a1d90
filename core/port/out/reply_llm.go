package out

import "context"

// Completer sends a fully composed prompt to the generative backend and
// returns its raw text. Model and temperature are fixed by the implementation.
// Failures are returned unmodified; implementations do not retry.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendPinger checks that the backend is reachable without generating text.
type BackendPinger interface {
	Ping(ctx context.Context) error
}
