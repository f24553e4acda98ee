// Package agent holds the conversational handlers that produce customer
// replies once the intent router has picked a target.
package agent

import (
	"context"

	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/history"
	"github.com/boostbuddy/boostline/internal/intent"
	"github.com/boostbuddy/boostline/internal/llm"
)

// Context is the conversational state handed to a handler for one message.
type Context struct {
	Profile customer.Profile
	Recent  []history.Message
}

// Agent produces one reply to a customer message.
type Agent interface {
	Reply(ctx context.Context, message string, conv Context) (string, error)
}

// Chatter runs one model completion. Satisfied by *llm.Client.
type Chatter interface {
	Chat(ctx context.Context, req llm.Request) (llm.Result, error)
}

// Registry is the closed handler table consulted by the orchestrator.
type Registry map[intent.Handler]Agent

// NewRegistry builds the fixed handler table.
func NewRegistry(greeting, consumer, business Agent) Registry {
	return Registry{
		intent.HandlerGreeting:        greeting,
		intent.HandlerConsumerSupport: consumer,
		intent.HandlerBusinessSupport: business,
	}
}
