package campaign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boostbuddy/boostline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(nil, config.CampaignConfig{BaseURL: server.URL, AccessToken: "mk-token"})
}

func TestIsActive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/QTMR/status", r.URL.Path)
		assert.Equal(t, "Bearer mk-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]bool{"active": true})
	})

	active, err := client.IsActive(context.Background(), "QTMR")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestIsActiveUnknownCampaign(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	active, err := client.IsActive(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestIsActiveServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.IsActive(context.Background(), "QTMR")
	assert.Error(t, err)
}

func TestIsActiveWithoutService(t *testing.T) {
	client := NewClient(nil, config.CampaignConfig{})

	active, err := client.IsActive(context.Background(), "QTMR")
	require.NoError(t, err)
	assert.True(t, active)
}
