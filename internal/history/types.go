// Package history is the append-only per-address chat log.
package history

import (
	"context"
	"strings"
)

// Kind is the derived category of a message body.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
	SenderHuman    Sender = "human"
)

// Message is one chat log entry. Kind is always derived from the content
// via ClassifyKind, never stored independently of that rule.
type Message struct {
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
	Kind      Kind   `json:"kind"`
	Sender    Sender `json:"sender"`
}

// ClassifyKind derives the content kind from the body shape and the voice
// flag. Media bodies are markdown-like references: images "![cap](url)",
// audio "[Audio Message](url)", documents "[name](url)".
func ClassifyKind(content string, voice bool) Kind {
	if voice {
		return KindAudio
	}
	link := strings.Contains(content, "](") && strings.HasSuffix(content, ")")
	switch {
	case strings.HasPrefix(content, "![") && link:
		return KindImage
	case strings.HasPrefix(content, "[") && link && strings.Contains(content, "Audio Message"):
		return KindAudio
	case strings.HasPrefix(content, "[") && link:
		return KindDocument
	default:
		return KindText
	}
}

// Store persists and reads per-address chat logs. Append creates the log
// lazily on first write; ordering is arrival order.
type Store interface {
	Append(ctx context.Context, address string, msg Message) error
	// Recent returns the most recent limit messages, oldest first, for
	// prompt construction.
	Recent(ctx context.Context, address string, limit int) ([]Message, error)
	// Page returns a newest-first page for UI consumption.
	Page(ctx context.Context, address string, page, pageSize int) ([]Message, error)
	// Addresses lists the distinct addresses with at least one message.
	Addresses(ctx context.Context) ([]string, error)
}
