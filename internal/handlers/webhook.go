package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boostbuddy/boostline/internal/whatsapp"
)

// processTimeout bounds one fire-and-forget message workflow.
const processTimeout = 2 * time.Minute

// Processor runs the message workflow for one acknowledged delivery.
type Processor interface {
	ProcessInbound(ctx context.Context, delivery whatsapp.Delivery, isVoice bool)
}

// WebhookHandler terminates the Meta webhook: the GET verification
// handshake and POSTed message deliveries.
type WebhookHandler struct {
	processor   Processor
	verifyToken string
	logger      *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, processor Processor, verifyToken string) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		processor:   processor,
		verifyToken: verifyToken,
		logger:      log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.Verify)
	e.POST("/webhook", h.Receive)
}

// Verify answers the Meta subscription handshake by echoing the challenge.
func (h *WebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")
	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		return c.String(http.StatusOK, challenge)
	}
	h.logger.Warn("webhook verification rejected", slog.String("mode", mode))
	return c.String(http.StatusForbidden, "Invalid verification")
}

// Receive acknowledges the delivery immediately and processes it in the
// background; Meta retries anything not answered quickly.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var delivery whatsapp.Delivery
	if err := c.Bind(&delivery); err != nil {
		h.logger.Warn("undecodable delivery", slog.Any("error", err))
		return c.String(http.StatusOK, "EVENT_RECEIVED")
	}

	isVoice := delivery.VoiceDelivery()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		h.processor.ProcessInbound(ctx, delivery, isVoice)
	}()

	return c.String(http.StatusOK, "EVENT_RECEIVED")
}
