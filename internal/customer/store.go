package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/boostbuddy/boostline/internal/db"
)

// DBStore is the Postgres-backed customer store.
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
		logger: log.With(slog.String("store", "customer")),
	}
}

const customerColumns = `address, name, email, postal_address, kind, quickbooks_id, shopify_id,
	company, total_spend, active, escalated, socials, interests`

// GetByAddress fetches a profile by channel address.
func (s *DBStore) GetByAddress(ctx context.Context, address string) (Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE address = $1`, address)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return profile, err
}

// Insert creates a new profile row.
func (s *DBStore) Insert(ctx context.Context, profile Profile) (Profile, error) {
	socials, interests, err := marshalTagLists(profile)
	if err != nil {
		return Profile{}, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO customers (id, address, name, email, postal_address, kind, quickbooks_id,
			shopify_id, company, total_spend, active, escalated, socials, interests)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.New(), profile.Address,
		dbpkg.ToPgText(profile.Name), dbpkg.ToPgText(profile.Email),
		dbpkg.ToPgText(profile.PostalAddress), string(profile.Kind),
		dbpkg.ToPgText(profile.QuickBooksID), dbpkg.ToPgText(profile.ShopifyID),
		dbpkg.ToPgText(profile.Company), profile.TotalSpend,
		profile.Active, profile.Escalated, socials, interests,
	)
	if err != nil {
		return Profile{}, fmt.Errorf("insert customer: %w", err)
	}
	return profile, nil
}

// Update merges a patch into the stored profile and writes it back.
func (s *DBStore) Update(ctx context.Context, address string, patch Patch) (Profile, error) {
	existing, err := s.GetByAddress(ctx, address)
	if err != nil {
		return Profile{}, err
	}
	merged := patch.Apply(existing)
	socials, interests, err := marshalTagLists(merged)
	if err != nil {
		return Profile{}, err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE customers SET name = $2, email = $3, postal_address = $4, kind = $5,
			quickbooks_id = $6, shopify_id = $7, company = $8, total_spend = $9,
			active = $10, escalated = $11, socials = $12, interests = $13, updated_at = now()
		 WHERE address = $1`,
		address,
		dbpkg.ToPgText(merged.Name), dbpkg.ToPgText(merged.Email),
		dbpkg.ToPgText(merged.PostalAddress), string(merged.Kind),
		dbpkg.ToPgText(merged.QuickBooksID), dbpkg.ToPgText(merged.ShopifyID),
		dbpkg.ToPgText(merged.Company), merged.TotalSpend,
		merged.Active, merged.Escalated, socials, interests,
	)
	if err != nil {
		return Profile{}, fmt.Errorf("update customer: %w", err)
	}
	return merged, nil
}

// List returns all profiles, most recently updated first.
func (s *DBStore) List(ctx context.Context) ([]Profile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// SetEscalated toggles the escalation flag.
func (s *DBStore) SetEscalated(ctx context.Context, address string, escalated bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET escalated = $2, updated_at = now() WHERE address = $1`,
		address, escalated)
	if err != nil {
		return fmt.Errorf("set escalated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanProfile(row pgxRow) (Profile, error) {
	var (
		p                        Profile
		name, email, postal      pgtype.Text
		kind                     string
		quickbooksID, shopifyID  pgtype.Text
		company                  pgtype.Text
		socialsRaw, interestsRaw []byte
	)
	err := row.Scan(&p.Address, &name, &email, &postal, &kind, &quickbooksID,
		&shopifyID, &company, &p.TotalSpend, &p.Active, &p.Escalated,
		&socialsRaw, &interestsRaw)
	if err != nil {
		return Profile{}, err
	}
	p.Name = dbpkg.TextToString(name)
	p.Email = dbpkg.TextToString(email)
	p.PostalAddress = dbpkg.TextToString(postal)
	p.Kind = Kind(kind)
	p.QuickBooksID = dbpkg.TextToString(quickbooksID)
	p.ShopifyID = dbpkg.TextToString(shopifyID)
	p.Company = dbpkg.TextToString(company)
	p.Socials = unmarshalTagList(socialsRaw)
	p.Interests = unmarshalTagList(interestsRaw)
	return p, nil
}

func marshalTagLists(p Profile) ([]byte, []byte, error) {
	socials, err := json.Marshal(nonNilList(p.Socials))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal socials: %w", err)
	}
	interests, err := json.Marshal(nonNilList(p.Interests))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal interests: %w", err)
	}
	return socials, interests, nil
}

func nonNilList(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func unmarshalTagList(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		slog.Warn("unmarshal tag list failed", slog.Any("error", err))
		return nil
	}
	if len(list) == 0 {
		return nil
	}
	return list
}
