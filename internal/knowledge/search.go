// Package knowledge answers free-text queries against the company knowledge
// collection via embedding similarity. The core treats it as an opaque
// collaborator: a query in, concatenated passage text out.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/boostbuddy/boostline/internal/config"
)

// DefaultTopK bounds how many passages a search returns by default.
const DefaultTopK = 4

// Embedder turns query text into a vector. Satisfied by *llm.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the contract the conversational handlers consume.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (string, error)
}

// Service is the qdrant-backed Searcher.
type Service struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	logger     *slog.Logger
}

// NewService connects the qdrant client.
func NewService(log *slog.Logger, cfg config.QdrantConfig, embedder Embedder) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Service{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     log.With(slog.String("service", "knowledge")),
	}, nil
}

// Search embeds the query and returns the topK nearest passages joined by
// blank lines. An empty result is not an error.
func (s *Service) Search(ctx context.Context, query string, topK int) (string, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", fmt.Errorf("vector query: %w", err)
	}

	passages := make([]string, 0, len(points))
	for _, point := range points {
		if text := payloadText(point.GetPayload()); text != "" {
			passages = append(passages, text)
		}
	}
	s.logger.Debug("knowledge search", slog.String("query", query), slog.Int("passages", len(passages)))
	return strings.Join(passages, "\n\n"), nil
}

func payloadText(payload map[string]*qdrant.Value) string {
	for _, key := range []string{"text", "content", "chunk"} {
		if value, ok := payload[key]; ok {
			if text := strings.TrimSpace(value.GetStringValue()); text != "" {
				return text
			}
		}
	}
	return ""
}
