// Package quickbooks looks customers up in the QuickBooks Online accounting
// system (profile source A).
package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boostbuddy/boostline/internal/config"
	"github.com/boostbuddy/boostline/internal/customer"
)

// Client implements customer.AccountingSource over the QuickBooks query API.
type Client struct {
	baseURL     string
	realmID     string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Client from config.
func NewClient(log *slog.Logger, cfg config.QuickBooksConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		realmID:     cfg.RealmID,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      log.With(slog.String("service", "quickbooks")),
	}
}

type queryResponse struct {
	QueryResponse struct {
		Customer []qbCustomer `json:"Customer"`
	} `json:"QueryResponse"`
}

type qbCustomer struct {
	ID               string `json:"Id"`
	DisplayName      string `json:"DisplayName"`
	CompanyName      string `json:"CompanyName"`
	Active           bool   `json:"Active"`
	PrimaryEmailAddr *struct {
		Address string `json:"Address"`
	} `json:"PrimaryEmailAddr"`
	CustomerTypeRef *struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"CustomerTypeRef"`
}

// LookupByAddress queries QuickBooks for a customer whose primary phone
// matches the address. A miss is (nil, nil); transport and API errors are
// returned as-is so the resolver can propagate them.
func (c *Client) LookupByAddress(ctx context.Context, address string) (*customer.AccountingProfile, error) {
	query := fmt.Sprintf("select * from Customer where PrimaryPhone = '%s'", sanitizePhone(address))
	endpoint := fmt.Sprintf("%s/v3/company/%s/query?query=%s", c.baseURL, c.realmID, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quickbooks query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("quickbooks query status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode quickbooks response: %w", err)
	}
	if len(result.QueryResponse.Customer) == 0 {
		c.logger.Debug("no accounting record", slog.String("address", address))
		return nil, nil
	}

	qb := result.QueryResponse.Customer[0]
	profile := &customer.AccountingProfile{
		Name:         qb.DisplayName,
		QuickBooksID: qb.ID,
		Company:      qb.CompanyName,
		Kind:         kindFromType(qb),
		Active:       qb.Active,
	}
	if qb.PrimaryEmailAddr != nil {
		profile.Email = qb.PrimaryEmailAddr.Address
	}
	c.logger.Info("accounting record found", slog.String("address", address), slog.String("quickbooks_id", qb.ID))
	return profile, nil
}

func kindFromType(qb qbCustomer) customer.Kind {
	if qb.CustomerTypeRef != nil {
		switch strings.ToLower(qb.CustomerTypeRef.Name) {
		case "b2b", "business", "wholesale":
			return customer.KindBusiness
		case "d2c", "consumer", "retail":
			return customer.KindConsumer
		}
	}
	if qb.CompanyName != "" {
		return customer.KindBusiness
	}
	return customer.KindConsumer
}

// sanitizePhone strips characters that would break the query literal.
func sanitizePhone(address string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '+' {
			return r
		}
		return -1
	}, address)
}
