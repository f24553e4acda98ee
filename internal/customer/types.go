// Package customer resolves channel addresses to canonical customer profiles,
// reconciling the local store with the accounting and storefront systems.
package customer

import (
	"context"
	"errors"
	"strings"
)

// Kind is the coarse customer segment driving routing overrides.
type Kind string

const (
	KindConsumer Kind = "consumer"
	KindBusiness Kind = "business"
)

// DefaultKind is applied when neither external source classifies the customer.
const DefaultKind = KindConsumer

// ErrNotFound is returned by stores when no profile exists for an address.
var ErrNotFound = errors.New("customer not found")

// Profile is the canonical customer record. Address is the sole lookup key
// and immutable once assigned.
type Profile struct {
	Address       string   `json:"address"`
	Name          string   `json:"name,omitempty"`
	Email         string   `json:"email,omitempty"`
	PostalAddress string   `json:"postal_address,omitempty"`
	Kind          Kind     `json:"kind"`
	QuickBooksID  string   `json:"quickbooks_id,omitempty"`
	ShopifyID     string   `json:"shopify_id,omitempty"`
	Company       string   `json:"company,omitempty"`
	TotalSpend    float64  `json:"total_spend"`
	Active        bool     `json:"active"`
	Escalated     bool     `json:"escalated"`
	Socials       []string `json:"socials,omitempty"`
	Interests     []string `json:"interests,omitempty"`
}

// Incomplete reports whether a resync against the accounting system is due.
func (p Profile) Incomplete() bool {
	return strings.TrimSpace(p.Name) == "" ||
		strings.TrimSpace(p.Email) == "" ||
		strings.TrimSpace(p.QuickBooksID) == "" ||
		strings.TrimSpace(string(p.Kind)) == "" ||
		strings.TrimSpace(p.Company) == "" ||
		!p.Active
}

// Patch carries partial profile updates. Blank fields never overwrite
// existing data; nil slices leave the stored value untouched.
type Patch struct {
	Name          string
	Email         string
	PostalAddress string
	Kind          Kind
	QuickBooksID  string
	ShopifyID     string
	Company       string
	Active        *bool
	Socials       []string
	Interests     []string
}

// Apply merges the patch into a profile, non-blank fields only.
func (patch Patch) Apply(p Profile) Profile {
	if v := strings.TrimSpace(patch.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(patch.Email); v != "" {
		p.Email = v
	}
	if v := strings.TrimSpace(patch.PostalAddress); v != "" {
		p.PostalAddress = v
	}
	if v := strings.TrimSpace(string(patch.Kind)); v != "" {
		p.Kind = Kind(v)
	}
	if v := strings.TrimSpace(patch.QuickBooksID); v != "" {
		p.QuickBooksID = v
	}
	if v := strings.TrimSpace(patch.ShopifyID); v != "" {
		p.ShopifyID = v
	}
	if v := strings.TrimSpace(patch.Company); v != "" {
		p.Company = v
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	if len(patch.Socials) > 0 {
		p.Socials = patch.Socials
	}
	if len(patch.Interests) > 0 {
		p.Interests = patch.Interests
	}
	return p
}

// Store is the keyed record store for customer profiles.
type Store interface {
	GetByAddress(ctx context.Context, address string) (Profile, error)
	Insert(ctx context.Context, profile Profile) (Profile, error)
	Update(ctx context.Context, address string, patch Patch) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	SetEscalated(ctx context.Context, address string, escalated bool) error
}

// AccountingProfile is the fragment returned by the accounting system
// (profile source A).
type AccountingProfile struct {
	Name         string
	Email        string
	QuickBooksID string
	Kind         Kind
	Company      string
	Active       bool
}

// AccountingSource looks customers up in the accounting system.
// A nil profile with nil error means no match.
type AccountingSource interface {
	LookupByAddress(ctx context.Context, address string) (*AccountingProfile, error)
}

// StorefrontProfile is the fragment returned by the storefront system
// (profile source B).
type StorefrontProfile struct {
	ShopifyID    string
	DisplayName  string
	Email        string
	AddressParts []string
	TotalSpent   float64
}

// StorefrontSource looks customers up in the storefront system.
type StorefrontSource interface {
	LookupByAddress(ctx context.Context, address string) (*StorefrontProfile, error)
}
