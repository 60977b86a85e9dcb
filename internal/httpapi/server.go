// Package httpapi exposes the webhook endpoint the charting service posts
// signals to, plus health and metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/trogers1052/signal-gateway/internal/classifier"
	"github.com/trogers1052/signal-gateway/internal/metrics"
	"github.com/trogers1052/signal-gateway/internal/models"
	"github.com/trogers1052/signal-gateway/internal/service"
	"github.com/trogers1052/signal-gateway/internal/validator"
)

// SignalProcessor runs a raw webhook body through the signal pipeline
type SignalProcessor interface {
	ProcessBytes(ctx context.Context, requestID, source string, body []byte) (*service.Result, error)
}

// Options configures a Server
type Options struct {
	Addr           string
	WebhookSecret  string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Version        string
	Accounts       []string // enabled account names, reported by /health
}

// Server is the webhook HTTP server
type Server struct {
	httpServer *http.Server
	signals    SignalProcessor
	logger     zerolog.Logger
	opts       Options
}

// NewServer creates a server; call ListenAndServe to start it
func NewServer(opts Options, signals SignalProcessor, logger zerolog.Logger) *Server {
	s := &Server{
		signals: signals,
		logger:  logger.With().Str("component", "http").Logger(),
		opts:    opts,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/signal", s.handleSignal)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	requestID := service.NewRequestID()
	log := s.logger.With().Str("request_id", requestID).Logger()
	metrics.SignalsReceived.WithLabelValues(models.SourceHTTP).Inc()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.SignalsRejected.WithLabelValues(metrics.ReasonTooLarge).Inc()
			writeJSON(w, http.StatusRequestEntityTooLarge, s.failure(requestID, "Request body too large", "Payload too large"))
			return
		}
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonMalformed).Inc()
		writeJSON(w, http.StatusBadRequest, s.failure(requestID, "Failed to read request body", "Bad request"))
		return
	}

	if s.opts.WebhookSecret != "" && !validSignature(s.opts.WebhookSecret, body, signatureHeader(r)) {
		metrics.SignalsRejected.WithLabelValues(metrics.ReasonSignature).Inc()
		log.Warn().Str("remote", r.RemoteAddr).Msg("invalid webhook signature")
		writeJSON(w, http.StatusUnauthorized, s.failure(requestID, "Invalid webhook signature", "Unauthorized"))
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	res, err := s.signals.ProcessBytes(ctx, requestID, models.SourceHTTP, body)
	if err != nil {
		status, resp := s.errorResponse(requestID, err)
		writeJSON(w, status, resp)
		return
	}

	intent := res.Intent
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("Order intent accepted: %s %s (%s)", intent.Action, intent.Symbol, intent.Transition),
		Data: IntentData{
			SignalID:     intent.Signal.ID,
			EventID:      res.EventID,
			AccountName:  intent.AccountName,
			Symbol:       intent.Symbol,
			Side:         string(intent.Side),
			Action:       string(intent.Action),
			Transition:   string(intent.Transition),
			Price:        intent.Price.String(),
			Size:         intent.Size.String(),
			PositionSize: intent.PositionSize.String(),
			QtyType:      string(intent.QtyType),
			Timestamp:    intent.Timestamp.Format(time.RFC3339Nano),
		},
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	})
}

// errorResponse maps a pipeline error to a status and envelope. Input
// problems are success-shaped; faults on our side are 5xx.
func (s *Server) errorResponse(requestID string, err error) (int, APIResponse) {
	var (
		verr *validator.ValidationError
		cerr *classifier.ConsistencyError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusOK, s.failure(requestID, err.Error(), "Validation failed")
	case errors.Is(err, service.ErrMalformedPayload):
		return http.StatusOK, s.failure(requestID, err.Error(), "Invalid payload")
	case errors.Is(err, service.ErrUnknownAccount):
		return http.StatusOK, s.failure(requestID, err.Error(), "Invalid account")
	case errors.Is(err, service.ErrDuplicateSignal):
		return http.StatusOK, s.failure(requestID, err.Error(), "Duplicate signal")
	case errors.Is(err, service.ErrAccountLimit):
		return http.StatusOK, s.failure(requestID, err.Error(), "Account limit exceeded")
	case errors.As(err, &cerr):
		return http.StatusInternalServerError, s.failure(requestID, "Signal could not be classified", "Internal error")
	case errors.Is(err, service.ErrPublish):
		return http.StatusInternalServerError, s.failure(requestID, "Order intent could not be handed to execution", "Hand-off failed")
	default:
		s.logger.Error().Str("request_id", requestID).Err(err).Msg("unexpected signal processing error")
		return http.StatusInternalServerError, s.failure(requestID, "Unknown error", "Internal error")
	}
}

func (s *Server) failure(requestID, message, errText string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     errText,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	accounts := s.opts.Accounts
	if accounts == nil {
		accounts = []string{}
	}
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Service:   models.EventSource,
		Version:   s.opts.Version,
		Timestamp: time.Now().UTC(),
		Accounts:  accounts,
	})
}
