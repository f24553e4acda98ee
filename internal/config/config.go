package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultJWTExpiresIn = "24h"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "boostline"
	DefaultPGSSLMode    = "disable"
	DefaultQdrantHost   = "127.0.0.1"
	DefaultQdrantPort   = 6334
	DefaultCollection   = "company_knowledge"
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultChatModel    = "gpt-4o-mini"
	DefaultEmbedModel   = "text-embedding-3-small"
	DefaultTimezone     = "Asia/Karachi"
	DefaultGraphAPIBase = "https://graph.facebook.com/v17.0"
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Admin      AdminConfig      `toml:"admin"`
	Auth       AuthConfig       `toml:"auth"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Qdrant     QdrantConfig     `toml:"qdrant"`
	WhatsApp   WhatsAppConfig   `toml:"whatsapp"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	QuickBooks QuickBooksConfig `toml:"quickbooks"`
	Shopify    ShopifyConfig    `toml:"shopify"`
	Campaign   CampaignConfig   `toml:"campaign"`
	Referral   ReferralConfig   `toml:"referral"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr     string `toml:"addr"`
	Timezone string `toml:"timezone"`
}

type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

// WhatsAppConfig configures the Cloud API gateway.
type WhatsAppConfig struct {
	PhoneNumberID string `toml:"phone_number_id"`
	AccessToken   string `toml:"access_token"`
	VerifyToken   string `toml:"verify_token"`
	GraphAPIBase  string `toml:"graph_api_base"`
}

type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ChatModel      string `toml:"chat_model"`
	EmbedModel     string `toml:"embed_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type QuickBooksConfig struct {
	BaseURL     string `toml:"base_url"`
	RealmID     string `toml:"realm_id"`
	AccessToken string `toml:"access_token"`
}

type ShopifyConfig struct {
	ShopDomain  string `toml:"shop_domain"`
	AccessToken string `toml:"access_token"`
	APIVersion  string `toml:"api_version"`
}

type CampaignConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
}

// ReferralConfig controls invitation formatting.
type ReferralConfig struct {
	// BotNumber is the wa.me number embedded in invitation deep links.
	BotNumber       string `toml:"bot_number"`
	DefaultCampaign string `toml:"default_campaign"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:     DefaultHTTPAddr,
			Timezone: DefaultTimezone,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Qdrant: QdrantConfig{
			Host:       DefaultQdrantHost,
			Port:       DefaultQdrantPort,
			Collection: DefaultCollection,
		},
		WhatsApp: WhatsAppConfig{
			GraphAPIBase: DefaultGraphAPIBase,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        DefaultOpenAIURL,
			ChatModel:      DefaultChatModel,
			EmbedModel:     DefaultEmbedModel,
			TimeoutSeconds: 60,
		},
		Shopify: ShopifyConfig{
			APIVersion: "2024-10",
		},
		Referral: ReferralConfig{
			BotNumber:       "15551304374",
			DefaultCampaign: "QTMR",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	return cfg, nil
}
