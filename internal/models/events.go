package models

import "time"

// OrderIntentEvent is the envelope published to the order-intent topic for the execution service
type OrderIntentEvent struct {
	EventType     string      `json:"event_type"`
	Source        string      `json:"source"`
	SchemaVersion string      `json:"schema_version"`
	EventID       string      `json:"event_id"`
	RequestID     string      `json:"request_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Data          OrderIntent `json:"data"`
}

// Event envelope constants
const (
	EventTypeOrderIntent = "ORDER_INTENT"
	EventSource          = "signal-gateway"
	SchemaVersion        = "1.0"
)

// Ingest sources, used as a metrics label
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)
