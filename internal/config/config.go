package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	TelegramToken         string
	TelegramWebhookSecret string
	TelegramBaseURL       string
	AnnounceChatID        int64

	CronSecret string

	ChessComBaseURL string
	LichessBaseURL  string
	LichessToken    string

	DBPath     string
	RedisURL   string
	SessionTTL time.Duration

	ServerPort       string
	LogLevel         string
	FetchConcurrency int
}

// Load reads configuration for the bot server. The Telegram token is required.
func Load(logger zerolog.Logger) (*Config, error) {
	cfg, err := LoadOptional(logger)
	if err != nil {
		return nil, err
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	return cfg, nil
}

// LoadOptional reads configuration without requiring the Telegram token, for
// tools that never talk to Telegram.
func LoadOptional(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	announceChatID, err := getEnvInt64("ANNOUNCE_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvInt64("FETCH_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	cfg := &Config{
		TelegramToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramBaseURL:       getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		AnnounceChatID:        announceChatID,
		CronSecret:            getEnv("CRON_SECRET", ""),
		ChessComBaseURL:       getEnv("CHESSCOM_BASE_URL", "https://api.chess.com"),
		LichessBaseURL:        getEnv("LICHESS_BASE_URL", "https://lichess.org"),
		LichessToken:          getEnv("LICHESS_TOKEN", ""),
		DBPath:                getEnv("DB_PATH", "chessbot.db"),
		RedisURL:              getEnv("REDIS_URL", ""),
		SessionTTL:            sessionTTL,
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		FetchConcurrency:      int(concurrency),
	}

	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = 1
	}

	if cfg.CronSecret == "" {
		logger.Warn().Msg("CRON_SECRET not set, daily championship endpoint will reject all calls")
	}
	if cfg.LichessToken == "" {
		logger.Info().Msg("LICHESS_TOKEN not set, lichess requests use anonymous rate limits")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("redis_sessions", cfg.RedisURL != "").
		Dur("session_ttl", cfg.SessionTTL).
		Int("fetch_concurrency", cfg.FetchConcurrency).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)
