package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/boostbuddy/boostline/internal/broadcast"
	"github.com/boostbuddy/boostline/internal/history"
)

const defaultPageSize = 50

// ChatService is the conversation surface the dashboard reads and writes.
type ChatService interface {
	RecentHistory(ctx context.Context, address string, page, pageSize int) ([]history.Message, error)
	Addresses(ctx context.Context) ([]string, error)
	SendOutbound(ctx context.Context, address, content string, sender history.Sender) error
}

// ChatsHandler serves chat logs and the live websocket feed.
type ChatsHandler struct {
	chats    ChatService
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewChatsHandler(log *slog.Logger, chats ChatService, hub *broadcast.Hub) *ChatsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ChatsHandler{
		chats: chats,
		hub:   hub,
		upgrader: websocket.Upgrader{
			// Dashboard origin enforcement happens at the JWT layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With(slog.String("handler", "chats")),
	}
}

func (h *ChatsHandler) Register(e *echo.Echo) {
	group := e.Group("/chats")
	group.GET("", h.ListAddresses)
	group.GET("/:address", h.GetPage)
	group.POST("/:address/send", h.Send)
	group.GET("/ws/:address", h.Live)
}

type addressesResponse struct {
	Addresses []string `json:"addresses"`
}

func (h *ChatsHandler) ListAddresses(c echo.Context) error {
	addresses, err := h.chats.Addresses(c.Request().Context())
	if err != nil {
		h.logger.Error("list addresses failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list chats failed")
	}
	return c.JSON(http.StatusOK, addressesResponse{Addresses: addresses})
}

type chatPageResponse struct {
	Address  string            `json:"address"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Messages []history.Message `json:"messages"`
}

func (h *ChatsHandler) GetPage(c echo.Context) error {
	address := c.Param("address")
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = defaultPageSize
	}

	messages, err := h.chats.RecentHistory(c.Request().Context(), address, page, pageSize)
	if err != nil {
		h.logger.Error("chat page failed", slog.String("address", address), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "load chat failed")
	}
	return c.JSON(http.StatusOK, chatPageResponse{
		Address:  address,
		Page:     page,
		PageSize: pageSize,
		Messages: messages,
	})
}

type sendRequest struct {
	Content string `json:"content"`
}

// Send delivers a representative-composed message to the customer.
func (h *ChatsHandler) Send(c echo.Context) error {
	address := c.Param("address")
	var req sendRequest
	if err := c.Bind(&req); err != nil || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if err := h.chats.SendOutbound(c.Request().Context(), address, req.Content, history.SenderAgent); err != nil {
		h.logger.Error("dashboard send failed", slog.String("address", address), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "send failed")
	}
	return c.NoContent(http.StatusAccepted)
}

// Live upgrades to a websocket and streams the address's chat events until
// the viewer disconnects.
func (h *ChatsHandler) Live(c echo.Context) error {
	address := c.Param("address")
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := h.hub.Subscribe(address)
	defer sub.Close()
	h.logger.Info("dashboard viewer connected", slog.String("address", address))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain control frames; a read error means the viewer is gone.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.logger.Info("dashboard viewer disconnected", slog.String("address", address))
			return nil
		case event, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("websocket write failed", slog.String("address", address), slog.Any("error", err))
				return nil
			}
		}
	}
}
