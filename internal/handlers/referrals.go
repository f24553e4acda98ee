package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Inviter sends a referral invitation to a customer on demand.
type Inviter interface {
	ReferralInvite(ctx context.Context, address string) error
}

// ReferralsHandler lets the dashboard push invitation messages.
type ReferralsHandler struct {
	inviter Inviter
	logger  *slog.Logger
}

func NewReferralsHandler(log *slog.Logger, inviter Inviter) *ReferralsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReferralsHandler{
		inviter: inviter,
		logger:  log.With(slog.String("handler", "referrals")),
	}
}

func (h *ReferralsHandler) Register(e *echo.Echo) {
	e.POST("/referrals/:address/invite", h.Invite)
}

func (h *ReferralsHandler) Invite(c echo.Context) error {
	address := c.Param("address")
	if err := h.inviter.ReferralInvite(c.Request().Context(), address); err != nil {
		h.logger.Error("invite failed", slog.String("address", address), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "invite failed")
	}
	return c.NoContent(http.StatusAccepted)
}
