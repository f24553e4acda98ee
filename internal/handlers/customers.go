package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boostbuddy/boostline/internal/customer"
)

// CustomersHandler exposes the customer roster and the escalation switch.
type CustomersHandler struct {
	store  customer.Store
	logger *slog.Logger
}

func NewCustomersHandler(log *slog.Logger, store customer.Store) *CustomersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CustomersHandler{
		store:  store,
		logger: log.With(slog.String("handler", "customers")),
	}
}

func (h *CustomersHandler) Register(e *echo.Echo) {
	group := e.Group("/customers")
	group.GET("", h.List)
	group.GET("/:address", h.Get)
	group.POST("/:address/escalate", h.Escalate)
	group.POST("/:address/release", h.Release)
}

func (h *CustomersHandler) List(c echo.Context) error {
	profiles, err := h.store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "list customers failed")
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *CustomersHandler) Get(c echo.Context) error {
	address := c.Param("address")
	profile, err := h.store.GetByAddress(c.Request().Context(), address)
	if errors.Is(err, customer.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "customer not found")
	}
	if err != nil {
		h.logger.Error("get customer failed", slog.String("address", address), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "get customer failed")
	}
	return c.JSON(http.StatusOK, profile)
}

// Escalate hands the conversation to a human: the bot stops replying until
// the customer is released.
func (h *CustomersHandler) Escalate(c echo.Context) error {
	return h.setEscalated(c, true)
}

func (h *CustomersHandler) Release(c echo.Context) error {
	return h.setEscalated(c, false)
}

func (h *CustomersHandler) setEscalated(c echo.Context, escalated bool) error {
	address := c.Param("address")
	err := h.store.SetEscalated(c.Request().Context(), address, escalated)
	if errors.Is(err, customer.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "customer not found")
	}
	if err != nil {
		h.logger.Error("escalation update failed",
			slog.String("address", address), slog.Bool("escalated", escalated), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "escalation update failed")
	}
	h.logger.Info("escalation updated", slog.String("address", address), slog.Bool("escalated", escalated))
	return c.JSON(http.StatusOK, map[string]any{
		"address":   address,
		"escalated": escalated,
	})
}
