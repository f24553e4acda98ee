package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/history"
	"github.com/boostbuddy/boostline/internal/llm"
)

// Chatter runs one model completion. Satisfied by *llm.Client.
type Chatter interface {
	Chat(ctx context.Context, req llm.Request) (llm.Result, error)
}

// Router delegates classification to a model constrained to a fixed JSON
// schema, then applies the deterministic customer-kind override.
type Router struct {
	model  Chatter
	logger *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(log *slog.Logger, model Chatter) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		model:  model,
		logger: log.With(slog.String("service", "intent_router")),
	}
}

// modelDecision is the schema the model must produce.
type modelDecision struct {
	Intent    Category `json:"intent"`
	Reasoning string   `json:"routing_reasoning"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Address   string   `json:"address"`
	Socials   []string `json:"socials"`
	Interests []string `json:"interest_groups"`
}

// Classify produces a routing decision for one message. The profile's
// classification tag overrides the raw support-class intent.
func (r *Router) Classify(ctx context.Context, message string, profile customer.Profile, recent []history.Message) (Decision, error) {
	prompt := buildPrompt(message, profile, recent)
	result, err := r.model.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: classifierInstructions},
			{Role: "user", Content: prompt},
		},
		JSONResponse: true,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("classification: %w", err)
	}

	var raw modelDecision
	if err := json.Unmarshal([]byte(result.Content), &raw); err != nil {
		return Decision{}, fmt.Errorf("decode classification %q: %w", result.Content, err)
	}

	handler, err := HandlerFor(raw.Intent)
	if err != nil {
		return Decision{}, err
	}
	handler = applyKindOverride(handler, profile.Kind)

	decision := Decision{
		Handler:   handler,
		Reasoning: raw.Reasoning,
		Name:      strings.TrimSpace(raw.Name),
		Email:     strings.TrimSpace(raw.Email),
		Address:   strings.TrimSpace(raw.Address),
		Socials:   raw.Socials,
		Interests: raw.Interests,
	}
	r.logger.Debug("classified message",
		slog.String("intent", string(raw.Intent)),
		slog.String("handler", string(decision.Handler)),
		slog.String("reasoning", decision.Reasoning))
	return decision, nil
}

// applyKindOverride forces support-class intents onto the handler matching
// the customer's classification tag. Greetings are never overridden.
func applyKindOverride(handler Handler, kind customer.Kind) Handler {
	if handler == HandlerGreeting {
		return handler
	}
	switch kind {
	case customer.KindBusiness:
		return HandlerBusinessSupport
	case customer.KindConsumer:
		return HandlerConsumerSupport
	default:
		return HandlerConsumerSupport
	}
}
