package referral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/boostbuddy/boostline/internal/db"
)

// DBStore is the Postgres-backed referral store. Referred users live in a
// jsonb column; appends go through jsonb concatenation so concurrent credits
// against different codes never clobber each other.
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
		logger: log.With(slog.String("store", "referral")),
	}
}

const referralColumns = `code, referrer_address, referrer_name, referrer_email, points, campaign_id, referred_users`

// GetByCode fetches a record by referral code.
func (s *DBStore) GetByCode(ctx context.Context, code string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE code = $1`, code)
	return scanRecord(row)
}

// GetByReferrer fetches the record owned by a referrer address.
func (s *DBStore) GetByReferrer(ctx context.Context, address string) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE referrer_address = $1`, address)
	return scanRecord(row)
}

// Insert creates a new ledger entry.
func (s *DBStore) Insert(ctx context.Context, record Record) error {
	referred, err := json.Marshal(nonNilUsers(record.ReferredUsers))
	if err != nil {
		return fmt.Errorf("marshal referred users: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO referrals (code, referrer_address, referrer_name, referrer_email,
			points, campaign_id, referred_users)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.Code, record.ReferrerAddress,
		dbpkg.ToPgText(record.ReferrerName), dbpkg.ToPgText(record.ReferrerEmail),
		record.Points, dbpkg.ToPgText(record.CampaignID), referred,
	)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

// AddReferredUser appends one credited user to the record's jsonb list.
func (s *DBStore) AddReferredUser(ctx context.Context, code string, user ReferredUser) error {
	entry, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal referred user: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE referrals SET referred_users = referred_users || $2::jsonb WHERE code = $1`,
		code, entry)
	if err != nil {
		return fmt.Errorf("add referred user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementPoints adds exactly one point to the record.
func (s *DBStore) IncrementPoints(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE referrals SET points = points + 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("increment points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r                   Record
		name, email, campID pgtype.Text
		referredRaw         []byte
	)
	err := row.Scan(&r.Code, &r.ReferrerAddress, &name, &email, &r.Points, &campID, &referredRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	r.ReferrerName = dbpkg.TextToString(name)
	r.ReferrerEmail = dbpkg.TextToString(email)
	r.CampaignID = dbpkg.TextToString(campID)
	if len(referredRaw) > 0 {
		if err := json.Unmarshal(referredRaw, &r.ReferredUsers); err != nil {
			return Record{}, fmt.Errorf("unmarshal referred users: %w", err)
		}
	}
	return r, nil
}

func nonNilUsers(users []ReferredUser) []ReferredUser {
	if users == nil {
		return []ReferredUser{}
	}
	return users
}
