package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Resolver produces a canonical profile for a channel address, seeding or
// repairing the local record from external sources when needed.
type Resolver struct {
	store      Store
	accounting AccountingSource
	storefront StorefrontSource
	logger     *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(log *slog.Logger, store Store, accounting AccountingSource, storefront StorefrontSource) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:      store,
		accounting: accounting,
		storefront: storefront,
		logger:     log.With(slog.String("service", "customer_resolver")),
	}
}

// Resolve returns the profile for address, creating or updating the local
// record at most once. Accounting failures propagate; storefront failures
// degrade to "not found" so a profile is always producible.
func (r *Resolver) Resolve(ctx context.Context, address string) (Profile, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Profile{}, fmt.Errorf("channel address is required")
	}

	local, err := r.store.GetByAddress(ctx, address)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Profile{}, fmt.Errorf("local lookup %s: %w", address, err)
	}

	if found && !local.Incomplete() {
		return local, nil
	}

	fragment, err := r.accounting.LookupByAddress(ctx, address)
	if err != nil {
		return Profile{}, fmt.Errorf("accounting lookup %s: %w", address, err)
	}

	switch {
	case fragment != nil && found:
		r.logger.Info("refreshing customer from accounting data", slog.String("address", address))
		updated, err := r.store.Update(ctx, address, patchFromAccounting(fragment))
		if err != nil {
			return Profile{}, fmt.Errorf("update %s: %w", address, err)
		}
		return updated, nil

	case fragment != nil && !found:
		r.logger.Info("creating customer from accounting data", slog.String("address", address))
		created, err := r.store.Insert(ctx, profileFromAccounting(address, fragment))
		if err != nil {
			return Profile{}, fmt.Errorf("insert %s: %w", address, err)
		}
		return created, nil

	case !found:
		return r.createWithoutAccounting(ctx, address)
	}

	// Record exists but accounting has no match: leave as-is.
	return local, nil
}

func (r *Resolver) createWithoutAccounting(ctx context.Context, address string) (Profile, error) {
	profile := Profile{
		Address: address,
		Kind:    DefaultKind,
		Active:  true,
	}

	storefront, err := r.storefront.LookupByAddress(ctx, address)
	if err != nil {
		r.logger.Warn("storefront lookup failed, treating as not found",
			slog.String("address", address), slog.Any("error", err))
		storefront = nil
	}
	if storefront != nil {
		r.logger.Info("creating customer from storefront data", slog.String("address", address))
		profile.Name = storefront.DisplayName
		profile.Email = storefront.Email
		profile.ShopifyID = storefront.ShopifyID
		profile.PostalAddress = joinAddressParts(storefront.AddressParts)
		profile.TotalSpend = storefront.TotalSpent
	} else {
		r.logger.Info("creating minimal customer record", slog.String("address", address))
	}

	created, err := r.store.Insert(ctx, profile)
	if err != nil {
		return Profile{}, fmt.Errorf("insert %s: %w", address, err)
	}
	return created, nil
}

func patchFromAccounting(f *AccountingProfile) Patch {
	active := f.Active
	return Patch{
		Name:         f.Name,
		Email:        f.Email,
		QuickBooksID: f.QuickBooksID,
		Kind:         f.Kind,
		Company:      f.Company,
		Active:       &active,
	}
}

func profileFromAccounting(address string, f *AccountingProfile) Profile {
	kind := f.Kind
	if strings.TrimSpace(string(kind)) == "" {
		kind = DefaultKind
	}
	return Profile{
		Address:      address,
		Name:         f.Name,
		Email:        f.Email,
		QuickBooksID: f.QuickBooksID,
		Kind:         kind,
		Company:      f.Company,
		Active:       f.Active,
	}
}

func joinAddressParts(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ", ")
}
