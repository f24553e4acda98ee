package intent

import (
	"fmt"
	"strings"

	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/history"
)

const classifierInstructions = `You are a conversation intent router for a retail support bot.
Classify ONLY the most recent customer message into exactly one intent:
- "greeting": social pleasantries with no specific request
- "direct-consumer-support": an individual consumer asking about products, orders, delivery, returns, refunds, or account issues
- "business-support": bulk orders, wholesale pricing, partnerships, enterprise or vendor requests

Also extract any personal information the customer volunteered in the message:
full name, email, physical address, social handles, and product interest groups.
Never invent values; use null for anything not present.

Respond with a single JSON object and nothing else:
{
  "intent": "greeting" | "direct-consumer-support" | "business-support",
  "routing_reasoning": "short explanation, max 25 words",
  "name": string or null,
  "email": string or null,
  "address": string or null,
  "socials": array of strings or null,
  "interest_groups": array of strings or null
}`

func buildPrompt(message string, profile customer.Profile, recent []history.Message) string {
	var b strings.Builder
	b.WriteString("<<<CUSTOMER_CONTEXT>>>\n")
	b.WriteString(formatProfile(profile))
	b.WriteString("\n<<<END_CUSTOMER_CONTEXT>>>\n\n")
	b.WriteString("<<<CHAT_HISTORY>>>\n")
	b.WriteString(FormatHistory(recent))
	b.WriteString("\n<<<END_CHAT_HISTORY>>>\n\n")
	fmt.Fprintf(&b, "Most recent customer message:\n%s\n", message)
	return b.String()
}

func formatProfile(p customer.Profile) string {
	lines := []string{
		"phone: " + p.Address,
		"customer_type: " + string(p.Kind),
	}
	if p.Name != "" {
		lines = append(lines, "name: "+p.Name)
	}
	if p.Email != "" {
		lines = append(lines, "email: "+p.Email)
	}
	if p.Company != "" {
		lines = append(lines, "company: "+p.Company)
	}
	if p.PostalAddress != "" {
		lines = append(lines, "address: "+p.PostalAddress)
	}
	if len(p.Interests) > 0 {
		lines = append(lines, "interests: "+strings.Join(p.Interests, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatHistory renders recent messages for prompt injection, oldest first.
func FormatHistory(messages []history.Message) string {
	if len(messages) == 0 {
		return "(no prior messages)"
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Sender, m.Content))
	}
	return strings.Join(lines, "\n")
}
