// Package referral tracks referral codes, referred-user lists, and point
// totals, with fail-closed idempotent crediting.
package referral

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when no referral record matches.
var ErrNotFound = errors.New("referral not found")

// ReferredUser is one credited referral: who redeemed the code and when.
type ReferredUser struct {
	Address   string `json:"address" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
}

// Record is a referrer's ledger entry. Points is monotonically
// non-decreasing and ReferredUsers is append-only.
type Record struct {
	Code            string         `json:"code" validate:"required,len=6,alpha,uppercase"`
	ReferrerAddress string         `json:"referrer_address" validate:"required"`
	ReferrerName    string         `json:"referrer_name,omitempty"`
	ReferrerEmail   string         `json:"referrer_email,omitempty"`
	Points          int            `json:"points" validate:"gte=0"`
	CampaignID      string         `json:"campaign_id,omitempty"`
	ReferredUsers   []ReferredUser `json:"referred_users" validate:"dive"`
}

// Store is the keyed record store for referral ledger entries.
type Store interface {
	GetByCode(ctx context.Context, code string) (Record, error)
	GetByReferrer(ctx context.Context, address string) (Record, error)
	Insert(ctx context.Context, record Record) error
	AddReferredUser(ctx context.Context, code string, user ReferredUser) error
	IncrementPoints(ctx context.Context, code string) error
}

// CampaignChecker reports whether a campaign code is currently active.
type CampaignChecker interface {
	IsActive(ctx context.Context, campaignCode string) (bool, error)
}

// Notifier delivers the one-line referral notification to a referrer.
type Notifier interface {
	Send(ctx context.Context, address, text string) error
}

// ReferrerContext carries conversational context used to snapshot the
// referrer's name and email onto a new record.
type ReferrerContext struct {
	Name  string
	Email string
}
