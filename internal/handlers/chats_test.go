package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostbuddy/boostline/internal/broadcast"
	"github.com/boostbuddy/boostline/internal/history"
)

type fakeChatService struct {
	page      []history.Message
	addresses []string
	sent      []string
	sendErr   error
}

func (f *fakeChatService) RecentHistory(_ context.Context, _ string, _, _ int) ([]history.Message, error) {
	return f.page, nil
}

func (f *fakeChatService) Addresses(context.Context) ([]string, error) {
	return f.addresses, nil
}

func (f *fakeChatService) SendOutbound(_ context.Context, _, content string, _ history.Sender) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, content)
	return nil
}

func TestListAddresses(t *testing.T) {
	e := echo.New()
	svc := &fakeChatService{addresses: []string{"923001234567", "923007654321"}}
	h := NewChatsHandler(nil, svc, broadcast.NewHub(nil))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/chats", nil), rec)

	require.NoError(t, h.ListAddresses(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp addressesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Addresses, 2)
}

func TestGetPageDefaultsAndClamps(t *testing.T) {
	e := echo.New()
	svc := &fakeChatService{page: []history.Message{
		{Content: "latest", Sender: history.SenderAgent, Kind: history.KindText},
		{Content: "earlier", Sender: history.SenderCustomer, Kind: history.KindText},
	}}
	h := NewChatsHandler(nil, svc, broadcast.NewHub(nil))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/chats/x?page=0&page_size=9999", nil), rec)
	c.SetParamNames("address")
	c.SetParamValues("923001234567")

	require.NoError(t, h.GetPage(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp chatPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, defaultPageSize, resp.PageSize)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "latest", resp.Messages[0].Content)
}

func TestSendRequiresContent(t *testing.T) {
	e := echo.New()
	svc := &fakeChatService{}
	h := NewChatsHandler(nil, svc, broadcast.NewHub(nil))

	req := httptest.NewRequest(http.MethodPost, "/chats/x/send", strings.NewReader(`{"content":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("address")
	c.SetParamValues("923001234567")

	err := h.Send(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Empty(t, svc.sent)
}

func TestSendDelivers(t *testing.T) {
	e := echo.New()
	svc := &fakeChatService{}
	h := NewChatsHandler(nil, svc, broadcast.NewHub(nil))

	req := httptest.NewRequest(http.MethodPost, "/chats/x/send", strings.NewReader(`{"content":"A human will follow up."}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("address")
	c.SetParamValues("923001234567")

	require.NoError(t, h.Send(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "A human will follow up.", svc.sent[0])
}
