// Package interview generates coach replies for practice questions once
// profiling has completed.
package interview

import (
	"context"

	"github.com/prepvoice/interviewai/internal/profile"
)

// Message is one conversation turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Responder produces the coach's next spoken reply from the conversation so
// far. The profile personalizes question difficulty and domain.
type Responder interface {
	Respond(ctx context.Context, prof profile.Profile, history []Message) (string, error)
}
