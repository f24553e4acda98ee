// Package shopify looks customers up in the storefront (profile source B)
// via the GraphQL Admin API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/boostbuddy/boostline/internal/config"
	"github.com/boostbuddy/boostline/internal/customer"
)

const customerQuery = `query findCustomer($query: String!) {
  customers(first: 1, query: $query) {
    edges {
      node {
        id
        displayName
        defaultEmailAddress { emailAddress }
        defaultAddress { address1 city province country zip }
        amountSpent { amount }
      }
    }
  }
}`

// Client implements customer.StorefrontSource.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a Client from config.
func NewClient(log *slog.Logger, cfg config.ShopifyConfig) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.ShopDomain, cfg.APIVersion),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      log.With(slog.String("service", "shopify")),
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type customersResponse struct {
	Data struct {
		Customers struct {
			Edges []struct {
				Node shopifyCustomer `json:"node"`
			} `json:"edges"`
		} `json:"customers"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type shopifyCustomer struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"displayName"`
	DefaultEmailAddress *struct {
		EmailAddress string `json:"emailAddress"`
	} `json:"defaultEmailAddress"`
	DefaultAddress *struct {
		Address1 string `json:"address1"`
		City     string `json:"city"`
		Province string `json:"province"`
		Country  string `json:"country"`
		Zip      string `json:"zip"`
	} `json:"defaultAddress"`
	AmountSpent *struct {
		Amount string `json:"amount"`
	} `json:"amountSpent"`
}

// LookupByAddress searches the storefront for a customer by phone number.
// A miss is (nil, nil).
func (c *Client) LookupByAddress(ctx context.Context, address string) (*customer.StorefrontProfile, error) {
	result, err := c.query(ctx, map[string]any{"query": "phone:" + address})
	if err != nil {
		return nil, err
	}
	edges := result.Data.Customers.Edges
	if len(edges) == 0 {
		c.logger.Debug("no storefront record", slog.String("address", address))
		return nil, nil
	}

	node := edges[0].Node
	profile := &customer.StorefrontProfile{
		ShopifyID:   node.ID,
		DisplayName: node.DisplayName,
	}
	if node.DefaultEmailAddress != nil {
		profile.Email = node.DefaultEmailAddress.EmailAddress
	}
	if addr := node.DefaultAddress; addr != nil {
		profile.AddressParts = []string{addr.Address1, addr.City, addr.Province, addr.Country, addr.Zip}
	}
	if node.AmountSpent != nil {
		if amount, err := strconv.ParseFloat(node.AmountSpent.Amount, 64); err == nil {
			profile.TotalSpent = amount
		}
	}
	c.logger.Info("storefront record found", slog.String("address", address), slog.String("shopify_id", node.ID))
	return profile, nil
}

func (c *Client) query(ctx context.Context, variables map[string]any) (*customersResponse, error) {
	body, err := json.Marshal(graphqlRequest{Query: customerQuery, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("shopify query status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result customersResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode shopify response: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("shopify query: %s", result.Errors[0].Message)
	}
	return &result, nil
}
