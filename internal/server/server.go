// Package server assembles the echo HTTP server for the webhook and the
// dashboard API.
package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/boostbuddy/boostline/internal/auth"
	"github.com/boostbuddy/boostline/internal/handlers"
)

type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

func NewServer(
	log *slog.Logger,
	addr string,
	jwtSecret string,
	pingHandler *handlers.PingHandler,
	authHandler *handlers.AuthHandler,
	webhookHandler *handlers.WebhookHandler,
	chatsHandler *handlers.ChatsHandler,
	customersHandler *handlers.CustomersHandler,
	referralsHandler *handlers.ReferralsHandler,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("service", "server"))
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Any("error", v.Error))
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		return shouldSkipJWT(c.Request().URL.Path)
	}))

	if pingHandler != nil {
		pingHandler.Register(e)
	}
	if authHandler != nil {
		authHandler.Register(e)
	}
	if webhookHandler != nil {
		webhookHandler.Register(e)
	}
	if chatsHandler != nil {
		chatsHandler.Register(e)
	}
	if customersHandler != nil {
		customersHandler.Register(e)
	}
	if referralsHandler != nil {
		referralsHandler.Register(e)
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log,
	}
}

// shouldSkipJWT marks the endpoints Meta and unauthenticated dashboards must
// reach: health checks, the webhook pair, and login.
func shouldSkipJWT(path string) bool {
	switch path {
	case "/ping", "/health", "/webhook", "/auth/login":
		return true
	}
	return false
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
