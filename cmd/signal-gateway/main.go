package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/trogers1052/signal-gateway/internal/config"
	"github.com/trogers1052/signal-gateway/internal/httpapi"
	"github.com/trogers1052/signal-gateway/internal/kafka"
	"github.com/trogers1052/signal-gateway/internal/logging"
	"github.com/trogers1052/signal-gateway/internal/service"
	"github.com/trogers1052/signal-gateway/internal/telegram"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "json")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With().Str("service", "signal-gateway").Logger()
	logger.Info().
		Str("version", version).
		Str("http_addr", cfg.HTTPAddr).
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Str("intent_topic", cfg.KafkaIntentTopic).
		Bool("publish", cfg.KafkaPublishEnabled).
		Bool("consume_signals", cfg.KafkaConsumeSignals).
		Bool("telegram", cfg.TelegramEnabled()).
		Bool("signature_check", cfg.WebhookSecret != "").
		Dur("duplicate_window", cfg.DuplicateWindow).
		Str("accounts", strings.Join(cfg.Accounts.EnabledNames(), ",")).
		Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hand-off to execution
	var publisher service.Publisher
	if cfg.KafkaPublishEnabled {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaIntentTopic, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Kafka producer")
		}
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn().Msg("Kafka publishing disabled, order intents are only logged")
	}

	var notifier service.Notifier
	var telegramClient *telegram.Client
	if cfg.TelegramEnabled() {
		telegramClient = telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
		notifier = telegramClient
	}

	signalService := service.NewSignalService(cfg.Accounts, publisher, notifier, logger, service.Options{
		DuplicateWindow: cfg.DuplicateWindow,
	})

	// Optional Kafka ingest path
	if cfg.KafkaConsumeSignals {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.KafkaSignalTopic, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create Kafka consumer")
		}
		defer consumer.Close()

		consumer.SetHandler(signalService.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start Kafka consumer")
		}
	}

	server := httpapi.NewServer(httpapi.Options{
		Addr:           cfg.HTTPAddr,
		WebhookSecret:  cfg.WebhookSecret,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
		Version:        version,
		Accounts:       cfg.Accounts.EnabledNames(),
	}, signalService, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	if telegramClient != nil {
		if err := telegramClient.SendMessage(ctx, "🚀 <b>Signal Gateway Started</b>\n\nAccepting webhook signals."); err != nil {
			logger.Warn().Err(err).Msg("failed to send startup notification")
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	logger.Info().Msg("shutting down signal-gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown did not complete")
	}
	cancel()

	if telegramClient != nil {
		if err := telegramClient.SendMessage(shutdownCtx, "🛑 <b>Signal Gateway Stopped</b>"); err != nil {
			logger.Warn().Err(err).Msg("failed to send shutdown notification")
		}
	}

	logger.Info().Msg("signal-gateway stopped")
}
