package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boostbuddy/boostline/internal/intent"
	"github.com/boostbuddy/boostline/internal/knowledge"
	"github.com/boostbuddy/boostline/internal/llm"
)

// Greeting replies to social pleasantries without consulting the knowledge
// base.
type Greeting struct {
	model  Chatter
	logger *slog.Logger
}

// NewGreeting creates the greeting handler.
func NewGreeting(log *slog.Logger, model Chatter) *Greeting {
	if log == nil {
		log = slog.Default()
	}
	return &Greeting{
		model:  model,
		logger: log.With(slog.String("agent", "greeting")),
	}
}

// Reply produces a short friendly greeting.
func (a *Greeting) Reply(ctx context.Context, message string, conv Context) (string, error) {
	return runCompletion(ctx, a.model, greetingInstructions, message, conv, "")
}

// Support answers consumer or business support requests, grounding replies
// in knowledge-base passages when available.
type Support struct {
	model    Chatter
	searcher knowledge.Searcher
	business bool
	logger   *slog.Logger
}

// NewConsumerSupport creates the direct-consumer support handler.
func NewConsumerSupport(log *slog.Logger, model Chatter, searcher knowledge.Searcher) *Support {
	if log == nil {
		log = slog.Default()
	}
	return &Support{
		model:    model,
		searcher: searcher,
		logger:   log.With(slog.String("agent", "consumer_support")),
	}
}

// NewBusinessSupport creates the business support handler.
func NewBusinessSupport(log *slog.Logger, model Chatter, searcher knowledge.Searcher) *Support {
	if log == nil {
		log = slog.Default()
	}
	return &Support{
		model:    model,
		searcher: searcher,
		business: true,
		logger:   log.With(slog.String("agent", "business_support")),
	}
}

// Reply answers one support request. Knowledge-base failures degrade to an
// answer without passages.
func (a *Support) Reply(ctx context.Context, message string, conv Context) (string, error) {
	var passages string
	if a.searcher != nil {
		found, err := a.searcher.Search(ctx, message, knowledge.DefaultTopK)
		if err != nil {
			a.logger.Warn("knowledge search failed, answering without context", slog.Any("error", err))
		} else {
			passages = found
		}
	}
	instructions := consumerSupportInstructions
	if a.business {
		instructions = businessSupportInstructions
	}
	return runCompletion(ctx, a.model, instructions, message, conv, passages)
}

func runCompletion(ctx context.Context, model Chatter, instructions, message string, conv Context, passages string) (string, error) {
	var b strings.Builder
	b.WriteString("<<<CUSTOMER_CONTEXT>>>\n")
	b.WriteString(profileSummary(conv))
	b.WriteString("\n<<<END_CUSTOMER_CONTEXT>>>\n\n")
	b.WriteString("<<<CHAT_HISTORY>>>\n")
	b.WriteString(intent.FormatHistory(conv.Recent))
	b.WriteString("\n<<<END_CHAT_HISTORY>>>\n")
	if passages != "" {
		b.WriteString("\n<<<COMPANY_KNOWLEDGE>>>\n")
		b.WriteString(passages)
		b.WriteString("\n<<<END_COMPANY_KNOWLEDGE>>>\n")
	}
	fmt.Fprintf(&b, "\nCustomer message:\n%s\n", message)

	result, err := model.Chat(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: instructions},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	reply := strings.TrimSpace(result.Content)
	if reply == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}
	return reply, nil
}

func profileSummary(conv Context) string {
	p := conv.Profile
	lines := []string{"phone: " + p.Address, "customer_type: " + string(p.Kind)}
	if p.Name != "" {
		lines = append(lines, "name: "+p.Name)
	}
	if p.Company != "" {
		lines = append(lines, "company: "+p.Company)
	}
	if p.TotalSpend > 0 {
		lines = append(lines, fmt.Sprintf("lifetime_spend: %.2f", p.TotalSpend))
	}
	return strings.Join(lines, "\n")
}
