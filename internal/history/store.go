package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStore is the Postgres-backed chat log.
type DBStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDBStore creates a DBStore.
func NewDBStore(log *slog.Logger, pool *pgxpool.Pool) *DBStore {
	if log == nil {
		log = slog.Default()
	}
	return &DBStore{
		pool:   pool,
		logger: log.With(slog.String("store", "history")),
	}
}

// Append writes one message to the address's log.
func (s *DBStore) Append(ctx context.Context, address string, msg Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, address, stamp, content, kind, sender)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), address, msg.Timestamp, msg.Content, string(msg.Kind), string(msg.Sender))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Recent returns the latest limit messages in arrival order (oldest first).
func (s *DBStore) Recent(ctx context.Context, address string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT stamp, content, kind, sender FROM chat_messages
		 WHERE address = $1 ORDER BY seq DESC LIMIT $2`, address, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	reverse(messages)
	return messages, nil
}

// Page returns one newest-first page. Page numbering starts at 1.
func (s *DBStore) Page(ctx context.Context, address string, page, pageSize int) ([]Message, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize
	rows, err := s.pool.Query(ctx,
		`SELECT stamp, content, kind, sender FROM chat_messages
		 WHERE address = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		address, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("page messages: %w", err)
	}
	return collectMessages(rows)
}

// Addresses lists distinct chat addresses, most recently active first.
func (s *DBStore) Addresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address FROM chat_messages GROUP BY address ORDER BY max(seq) DESC`)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, rows.Err()
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	defer rows.Close()
	var messages []Message
	for rows.Next() {
		var (
			m            Message
			kind, sender string
		)
		if err := rows.Scan(&m.Timestamp, &m.Content, &kind, &sender); err != nil {
			return nil, err
		}
		m.Kind = Kind(kind)
		m.Sender = Sender(sender)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func reverse(messages []Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
