package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_received_total", Help: "Webhook signals received"},
		[]string{"source"},
	)
	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_rejected_total", Help: "Signals rejected before hand-off"},
		[]string{"reason"},
	)
	OrderIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_intents_total", Help: "Order intents handed to execution"},
		[]string{"transition", "action"},
	)
)

// Rejection reasons
const (
	ReasonValidation = "validation"
	ReasonAccount    = "account"
	ReasonDuplicate  = "duplicate"
	ReasonInternal   = "internal"
	ReasonPublish    = "publish"
	ReasonSignature  = "signature"
	ReasonMalformed  = "malformed"
	ReasonLimit      = "limit"
	ReasonTooLarge   = "too_large"
)

func init() {
	prometheus.MustRegister(SignalsReceived, SignalsRejected, OrderIntents)
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
