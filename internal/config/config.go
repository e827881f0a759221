package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Upstream UpstreamConfig
	Reveal   RevealConfig
	Embed    EmbedConfig
	Billing  BillingConfig
	OAuth    OAuthConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// UpstreamConfig points at the external analysis and chat backends this
// service fronts.
type UpstreamConfig struct {
	AnalysisBaseURL string
	ChatBaseURL     string
	APIKey          string
}

// RevealConfig tunes the progressive text reveal. ProgressEvery is the
// word-mode notification cadence (every Nth word).
type RevealConfig struct {
	InitialDelayMs int
	LineIntervalMs int
	WordIntervalMs int
	ProgressEvery  int
	Animate        bool
}

type EmbedConfig struct {
	LoadTimeoutSeconds int
}

type BillingConfig struct {
	MidtransServerKey string
	MidtransEnv       string // "sandbox" or "production"
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "PostLens"),
		},
		Upstream: UpstreamConfig{
			AnalysisBaseURL: getEnv("ANALYSIS_API_BASE_URL", "http://localhost:8900"),
			ChatBaseURL:     getEnv("CHAT_API_BASE_URL", "http://localhost:8901"),
			APIKey:          getEnv("UPSTREAM_API_KEY", ""),
		},
		Reveal: RevealConfig{
			InitialDelayMs: getEnvAsInt("REVEAL_INITIAL_DELAY_MS", 300),
			LineIntervalMs: getEnvAsInt("REVEAL_LINE_INTERVAL_MS", 40),
			WordIntervalMs: getEnvAsInt("REVEAL_WORD_INTERVAL_MS", 15),
			ProgressEvery:  getEnvAsInt("REVEAL_PROGRESS_EVERY", 3),
			Animate:        getEnvAsBool("REVEAL_ANIMATE", true),
		},
		Embed: EmbedConfig{
			LoadTimeoutSeconds: getEnvAsInt("EMBED_LOAD_TIMEOUT_SECONDS", 10),
		},
		Billing: BillingConfig{
			MidtransServerKey: getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransEnv:       getEnv("MIDTRANS_ENV", "sandbox"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("GOOGLE_OAUTH_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("GOOGLE_OAUTH_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
