package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/signal-gateway/internal/classifier"
	"github.com/trogers1052/signal-gateway/internal/config"
	"github.com/trogers1052/signal-gateway/internal/metrics"
	"github.com/trogers1052/signal-gateway/internal/models"
	"github.com/trogers1052/signal-gateway/internal/validator"
)

var (
	ErrMalformedPayload = errors.New("payload is not a JSON object")
	ErrUnknownAccount   = errors.New("account not found or disabled")
	ErrDuplicateSignal  = errors.New("duplicate signal id")
	ErrAccountLimit     = errors.New("signal exceeds account limits")
	ErrPublish          = errors.New("failed to hand off order intent")
)

// Publisher hands an order intent to the execution service
type Publisher interface {
	PublishIntent(ctx context.Context, event *models.OrderIntentEvent) error
}

// Notifier delivers a human readable message
type Notifier interface {
	SendMessage(ctx context.Context, message string) error
}

// AccountRegistry resolves the account a webhook addresses
type AccountRegistry interface {
	Lookup(name string) (config.Account, bool)
}

// Options tunes a SignalService
type Options struct {
	DuplicateWindow time.Duration // 0 disables duplicate suppression
	Now             func() time.Time
}

// Result is what a successfully processed signal produced
type Result struct {
	RequestID string
	EventID   string
	Intent    *models.OrderIntent
}

// SignalService runs one webhook payload through validation, account
// checks and classification, then hands the intent to execution.
type SignalService struct {
	accounts  AccountRegistry
	publisher Publisher
	notifier  Notifier
	logger    zerolog.Logger

	window    time.Duration
	now       func() time.Time
	seen      map[string]time.Time // account/id -> accepted at
	lastSweep time.Time
	seenMu    sync.Mutex
}

// NewSignalService creates a signal service. publisher and notifier may be nil.
func NewSignalService(accounts AccountRegistry, publisher Publisher, notifier Notifier, logger zerolog.Logger, opts Options) *SignalService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SignalService{
		accounts:  accounts,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With().Str("component", "signal_service").Logger(),
		window:    opts.DuplicateWindow,
		now:       now,
		seen:      make(map[string]time.Time),
	}
}

// NewRequestID returns an id for correlating one inbound signal across logs and events
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// DecodePayload parses body as a single JSON object. Numbers are kept as
// json.Number so decimal fields never pass through float64.
func DecodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw == nil {
		return nil, ErrMalformedPayload
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedPayload)
	}
	return raw, nil
}

// HandleMessage processes a raw payload consumed from Kafka
func (s *SignalService) HandleMessage(ctx context.Context, value []byte) error {
	metrics.SignalsReceived.WithLabelValues(models.SourceKafka).Inc()
	_, err := s.ProcessBytes(ctx, NewRequestID(), models.SourceKafka, value)
	return err
}

// ProcessBytes decodes body and processes it. The transport that read body
// counts it as received, so rejections it makes itself are counted too.
func (s *SignalService) ProcessBytes(ctx context.Context, requestID, source string, body []byte) (*Result, error) {
	raw, err := DecodePayload(body)
	if err != nil {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonMalformed).Inc()
		s.logger.Warn().Str("request_id", requestID).Err(err).Msg("malformed signal payload")
		return nil, err
	}
	return s.process(ctx, requestID, source, raw)
}

// Process runs an already decoded payload through the pipeline
func (s *SignalService) Process(ctx context.Context, requestID, source string, raw map[string]any) (*Result, error) {
	return s.process(ctx, requestID, source, raw)
}

func (s *SignalService) process(ctx context.Context, requestID, source string, raw map[string]any) (*Result, error) {
	log := s.logger.With().Str("request_id", requestID).Str("source", source).Logger()

	signal, err := validator.Validate(raw)
	if err != nil {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonValidation).Inc()
		log.Warn().Err(err).Msg("signal failed validation")
		return nil, err
	}

	log = log.With().
		Str("account", signal.AccountName).
		Str("symbol", signal.Symbol).
		Str("signal_id", signal.ID).
		Logger()
	log.Info().
		Str("side", string(signal.Side)).
		Str("size", signal.Size).
		Str("prev_position", string(signal.PrevMarketPosition)).
		Str("position", string(signal.MarketPosition)).
		Msg("received signal")

	account, ok := s.accounts.Lookup(signal.AccountName)
	if !ok || !account.Enabled {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonAccount).Inc()
		log.Warn().Msg("account not found or disabled")
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, signal.AccountName)
	}

	intent, err := classifier.Classify(signal)
	if err != nil {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonInternal).Inc()
		log.Error().Err(err).Msg("validated signal failed classification")
		return nil, err
	}

	if err := checkLimits(account, intent); err != nil {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonLimit).Inc()
		log.Warn().Err(err).Msg("signal exceeds account limits")
		return nil, err
	}

	key := signal.AccountName + "/" + signal.ID
	if !s.reserve(key) {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonDuplicate).Inc()
		log.Warn().Dur("window", s.window).Msg("duplicate signal id")
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSignal, signal.ID)
	}

	event := &models.OrderIntentEvent{
		EventType:     models.EventTypeOrderIntent,
		Source:        models.EventSource,
		SchemaVersion: models.SchemaVersion,
		EventID:       uuid.NewString(),
		RequestID:     requestID,
		Timestamp:     s.now().UTC(),
		Data:          *intent,
	}

	if s.publisher != nil {
		if err := s.publisher.PublishIntent(ctx, event); err != nil {
			s.release(key)
			metrics.SignalsRejected.WithLabelValues(metrics.ReasonPublish).Inc()
			log.Error().Err(err).Msg("failed to publish order intent")
			return nil, fmt.Errorf("%w: %v", ErrPublish, err)
		}
	}

	metrics.OrderIntents.WithLabelValues(string(intent.Transition), string(intent.Action)).Inc()
	log.Info().
		Str("event_id", event.EventID).
		Str("transition", string(intent.Transition)).
		Str("action", string(intent.Action)).
		Msg("order intent accepted")

	s.notify(ctx, log, intent)

	return &Result{RequestID: requestID, EventID: event.EventID, Intent: intent}, nil
}

// checkLimits applies the per-account trading limits. A MaxPositionSize of
// zero means unlimited, and only fixed quantities are share counts.
func checkLimits(account config.Account, intent *models.OrderIntent) error {
	if !account.AllowOptionsTrading && intent.TargetsOptions() {
		return fmt.Errorf("%w: options trading is not enabled for %s", ErrAccountLimit, account.Name)
	}
	if account.MaxPositionSize > 0 && intent.QtyType == models.QtyFixed {
		limit := decimal.NewFromInt(int64(account.MaxPositionSize))
		if intent.Size.Abs().GreaterThan(limit) {
			return fmt.Errorf("%w: size %s exceeds max position size %d for %s",
				ErrAccountLimit, intent.Size.String(), account.MaxPositionSize, account.Name)
		}
	}
	return nil
}

// reserve records key as accepted and reports false when it was already
// accepted inside the duplicate window
func (s *SignalService) reserve(key string) bool {
	if s.window <= 0 {
		return true
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.window {
		for k, at := range s.seen {
			if now.Sub(at) >= s.window {
				delete(s.seen, k)
			}
		}
		s.lastSweep = now
	}

	if at, ok := s.seen[key]; ok && now.Sub(at) < s.window {
		return false
	}
	s.seen[key] = now
	return true
}

// release forgets key so a failed hand-off can be retried with the same id
func (s *SignalService) release(key string) {
	if s.window <= 0 {
		return
	}
	s.seenMu.Lock()
	delete(s.seen, key)
	s.seenMu.Unlock()
}

func (s *SignalService) notify(ctx context.Context, log zerolog.Logger, intent *models.OrderIntent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(ctx, formatIntentMessage(intent)); err != nil {
		log.Warn().Err(err).Msg("failed to send notification")
	}
}
