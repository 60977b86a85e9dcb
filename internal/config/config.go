package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the signal gateway
type Config struct {
	// HTTP
	HTTPAddr       string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	WebhookSecret  string // empty disables signature checks

	// Logging
	LogLevel  string
	LogFormat string // json or console

	// Kafka
	KafkaBrokers        []string
	KafkaIntentTopic    string // trading.order-intents consumed by the execution service
	KafkaPublishEnabled bool
	KafkaSignalTopic    string // raw webhook payloads, optional ingest path
	KafkaConsumerGroup  string
	KafkaConsumeSignals bool

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Signal handling
	DuplicateWindow time.Duration // 0 disables duplicate id suppression

	// Accounts
	AccountsFile string
	Accounts     *Accounts
}

// Load loads configuration from the environment, after merging an optional .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		// HTTP
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxBodyBytes:   getEnvInt64("MAX_BODY_BYTES", 64*1024),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Kafka
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "localhost:19092")),
		KafkaIntentTopic:    getEnv("KAFKA_INTENT_TOPIC", "trading.order-intents"),
		KafkaPublishEnabled: getEnvBool("KAFKA_PUBLISH_ENABLED", true),
		KafkaSignalTopic:    getEnv("KAFKA_SIGNAL_TOPIC", "tradingview.signals"),
		KafkaConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "signal-gateway"),
		KafkaConsumeSignals: getEnvBool("KAFKA_CONSUME_SIGNALS", false),

		// Telegram
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),

		DuplicateWindow: getEnvDuration("DUPLICATE_WINDOW", 10*time.Minute),

		AccountsFile: getEnv("ACCOUNTS_FILE", "config/accounts.yml"),
	}

	accounts, err := LoadAccounts(cfg.AccountsFile)
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if (c.KafkaPublishEnabled || c.KafkaConsumeSignals) && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.DuplicateWindow < 0 {
		return fmt.Errorf("DUPLICATE_WINDOW must not be negative")
	}
	return nil
}

// TelegramEnabled reports whether both Telegram credentials are set
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
