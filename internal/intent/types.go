// Package intent classifies inbound messages and picks the next
// conversational handler.
package intent

import (
	"encoding/json"
	"fmt"
)

// Handler is the closed set of routing targets. Unknown names are rejected
// at the decode boundary, not deep inside routing.
type Handler string

const (
	HandlerGreeting        Handler = "GreetingHandler"
	HandlerConsumerSupport Handler = "ConsumerSupportHandler"
	HandlerBusinessSupport Handler = "BusinessSupportHandler"
)

// ParseHandler validates a handler name.
func ParseHandler(name string) (Handler, error) {
	switch Handler(name) {
	case HandlerGreeting, HandlerConsumerSupport, HandlerBusinessSupport:
		return Handler(name), nil
	}
	return "", fmt.Errorf("unknown handler %q", name)
}

// UnmarshalJSON rejects unknown handler names.
func (h *Handler) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseHandler(name)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Category is the model-facing intent label.
type Category string

const (
	CategoryGreeting        Category = "greeting"
	CategoryConsumerSupport Category = "direct-consumer-support"
	CategoryBusinessSupport Category = "business-support"
)

// HandlerFor maps a category to its fixed handler.
func HandlerFor(category Category) (Handler, error) {
	switch category {
	case CategoryGreeting:
		return HandlerGreeting, nil
	case CategoryConsumerSupport:
		return HandlerConsumerSupport, nil
	case CategoryBusinessSupport:
		return HandlerBusinessSupport, nil
	}
	return "", fmt.Errorf("unknown intent category %q", category)
}

// Decision is the routing outcome for one message. Consumed once by the
// orchestrator and discarded.
type Decision struct {
	Handler   Handler
	Reasoning string

	// Personal info the model extracted from the conversation; blank
	// fields must never overwrite stored data.
	Name      string
	Email     string
	Address   string
	Socials   []string
	Interests []string
}

// HasPersonalInfo reports whether any extracted field is present.
func (d Decision) HasPersonalInfo() bool {
	return d.Name != "" || d.Email != "" || d.Address != "" ||
		len(d.Socials) > 0 || len(d.Interests) > 0
}
