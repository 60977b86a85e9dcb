package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// APIResponse is the envelope every endpoint answers with. Signal rejections
// are reported with HTTP 200 and success=false; webhook senders treat any
// non-2xx as a delivery failure and retry.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IntentData is the data block returned for an accepted signal
type IntentData struct {
	SignalID     string `json:"signalId"`
	EventID      string `json:"eventId"`
	AccountName  string `json:"accountName"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Action       string `json:"action"`
	Transition   string `json:"transition"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	PositionSize string `json:"positionSize"`
	QtyType      string `json:"qtyType"`
	Timestamp    string `json:"timestamp"`
}

// HealthStatus is returned by GET /health
type HealthStatus struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Accounts  []string  `json:"accounts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
