package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostbuddy/boostline/internal/config"
)

func loginContext(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLoginIssuesToken(t *testing.T) {
	e := echo.New()
	h := NewAuthHandler(nil,
		config.AdminConfig{Username: "admin", Password: "hunter2"},
		config.AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: "1h"})

	c, rec := loginContext(e, `{"username":"admin","password":"hunter2"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e := echo.New()
	h := NewAuthHandler(nil,
		config.AdminConfig{Username: "admin", Password: "hunter2"},
		config.AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: "1h"})

	c, _ := loginContext(e, `{"username":"admin","password":"wrong"}`)
	err := h.Login(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	e := echo.New()
	h := NewAuthHandler(nil,
		config.AdminConfig{Username: "admin", Password: "hunter2"},
		config.AuthConfig{JWTSecret: "test-secret", JWTExpiresIn: "1h"})

	c, _ := loginContext(e, "{broken")
	err := h.Login(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
