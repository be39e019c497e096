// Package responders defines the contract between the dialogue controller and
// the services that produce the companion's replies.
package responders

import (
	"context"

	"github.com/koscakluka/ema-companion/core/conversations"
)

// Request is a single reply request.
type Request struct {
	// Opening is set when the session has just started and the generator is
	// asked for a greeting. Utterance is empty in that case.
	Opening bool
	// Utterance is what the user just said.
	Utterance string
	// History holds the turns logged before Utterance, oldest first.
	History []conversations.Turn
}

// Generator produces reply text for a request. Implementations must return
// promptly once ctx is done.
type Generator interface {
	Respond(ctx context.Context, request Request) (string, error)
}

// GeneratorFunc adapts a function to [Generator].
type GeneratorFunc func(ctx context.Context, request Request) (string, error)

func (f GeneratorFunc) Respond(ctx context.Context, request Request) (string, error) {
	return f(ctx, request)
}
