package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/boostbuddy/boostline/internal/agent"
	"github.com/boostbuddy/boostline/internal/bot"
	"github.com/boostbuddy/boostline/internal/broadcast"
	"github.com/boostbuddy/boostline/internal/campaign"
	"github.com/boostbuddy/boostline/internal/clock"
	"github.com/boostbuddy/boostline/internal/config"
	"github.com/boostbuddy/boostline/internal/customer"
	"github.com/boostbuddy/boostline/internal/db"
	"github.com/boostbuddy/boostline/internal/handlers"
	"github.com/boostbuddy/boostline/internal/history"
	"github.com/boostbuddy/boostline/internal/intent"
	"github.com/boostbuddy/boostline/internal/knowledge"
	"github.com/boostbuddy/boostline/internal/llm"
	"github.com/boostbuddy/boostline/internal/logger"
	"github.com/boostbuddy/boostline/internal/quickbooks"
	"github.com/boostbuddy/boostline/internal/referral"
	"github.com/boostbuddy/boostline/internal/server"
	"github.com/boostbuddy/boostline/internal/shopify"
	"github.com/boostbuddy/boostline/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideCivil,
			provideLLMClient,
			provideKnowledge,
			provideCustomerStore,
			provideHistoryStore,
			provideReferralStore,
			provideResolver,
			provideHub,
			provideGateway,
			provideReferralService,
			provideRouter,
			provideAgentRegistry,
			provideBot,
			providePingHandler,
			provideAuthHandler,
			provideWebhookHandler,
			provideChatsHandler,
			provideCustomersHandler,
			provideReferralsHandler,
			provideServer,
		),
		fx.Invoke(
			ensureSchema,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideCivil(cfg config.Config) (*clock.Civil, error) {
	return clock.NewCivil(cfg.Server.Timezone)
}

func provideLLMClient(log *slog.Logger, cfg config.Config) *llm.Client {
	return llm.NewClient(log, cfg.OpenAI)
}

func provideKnowledge(log *slog.Logger, cfg config.Config, client *llm.Client) (knowledge.Searcher, error) {
	return knowledge.NewService(log, cfg.Qdrant, client)
}

func provideCustomerStore(log *slog.Logger, pool *pgxpool.Pool) customer.Store {
	return customer.NewDBStore(log, pool)
}

func provideHistoryStore(log *slog.Logger, pool *pgxpool.Pool) history.Store {
	return history.NewDBStore(log, pool)
}

func provideReferralStore(log *slog.Logger, pool *pgxpool.Pool) referral.Store {
	return referral.NewDBStore(log, pool)
}

func provideResolver(log *slog.Logger, cfg config.Config, store customer.Store) *customer.Resolver {
	accounting := quickbooks.NewClient(log, cfg.QuickBooks)
	storefront := shopify.NewClient(log, cfg.Shopify)
	return customer.NewResolver(log, store, accounting, storefront)
}

func provideHub(log *slog.Logger) *broadcast.Hub {
	return broadcast.NewHub(log)
}

func provideGateway(log *slog.Logger, cfg config.Config, client *llm.Client) *whatsapp.Gateway {
	return whatsapp.NewGateway(log, cfg.WhatsApp, client)
}

func provideReferralService(log *slog.Logger, cfg config.Config, store referral.Store, gateway *whatsapp.Gateway, civil *clock.Civil) *referral.Service {
	campaigns := campaign.NewClient(log, cfg.Campaign)
	return referral.NewService(log, store, campaigns, gateway, civil,
		cfg.Referral.BotNumber, cfg.Referral.DefaultCampaign)
}

func provideRouter(log *slog.Logger, client *llm.Client) *intent.Router {
	return intent.NewRouter(log, client)
}

func provideAgentRegistry(log *slog.Logger, client *llm.Client, searcher knowledge.Searcher) agent.Registry {
	return agent.NewRegistry(
		agent.NewGreeting(log, client),
		agent.NewConsumerSupport(log, client, searcher),
		agent.NewBusinessSupport(log, client, searcher),
	)
}

func provideBot(
	log *slog.Logger,
	gateway *whatsapp.Gateway,
	resolver *customer.Resolver,
	customers customer.Store,
	hist history.Store,
	hub *broadcast.Hub,
	referrals *referral.Service,
	router *intent.Router,
	agents agent.Registry,
	civil *clock.Civil,
) *bot.Bot {
	return bot.New(log, gateway, resolver, customers, hist, hub, referrals, router, agents, civil)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, cfg.Admin, cfg.Auth)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, b *bot.Bot) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, b, cfg.WhatsApp.VerifyToken)
}

func provideChatsHandler(log *slog.Logger, b *bot.Bot, hub *broadcast.Hub) *handlers.ChatsHandler {
	return handlers.NewChatsHandler(log, b, hub)
}

func provideCustomersHandler(log *slog.Logger, store customer.Store) *handlers.CustomersHandler {
	return handlers.NewCustomersHandler(log, store)
}

func provideReferralsHandler(log *slog.Logger, b *bot.Bot) *handlers.ReferralsHandler {
	return handlers.NewReferralsHandler(log, b)
}

func provideServer(
	log *slog.Logger,
	cfg config.Config,
	pingHandler *handlers.PingHandler,
	authHandler *handlers.AuthHandler,
	webhookHandler *handlers.WebhookHandler,
	chatsHandler *handlers.ChatsHandler,
	customersHandler *handlers.CustomersHandler,
	referralsHandler *handlers.ReferralsHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, cfg.Auth.JWTSecret,
		pingHandler, authHandler, webhookHandler, chatsHandler, customersHandler, referralsHandler)
}

func ensureSchema(lc fx.Lifecycle, pool *pgxpool.Pool, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.EnsureSchema(ctx, pool); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			log.Info("database schema ready")
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, srv *server.Server, cfg config.Config, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is required")
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
				}
			}()
			log.Info("server listening", slog.String("addr", cfg.Server.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
