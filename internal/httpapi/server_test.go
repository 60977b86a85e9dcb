package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/signal-gateway/internal/classifier"
	"github.com/trogers1052/signal-gateway/internal/config"
	"github.com/trogers1052/signal-gateway/internal/metrics"
	"github.com/trogers1052/signal-gateway/internal/models"
	"github.com/trogers1052/signal-gateway/internal/service"
)

const examplePayload = `{"accountName":"account_1","side":"buy","exchange":"TIGER","period":"1h",
 "marketPosition":"long","prevMarketPosition":"flat","symbol":"AAPL",
 "price":"150.50","timestamp":"2025-09-09T21:30:00Z","size":"10",
 "positionSize":"0","id":"test_signal_001","qtyType":"fixed",
 "tv_id":12345,"delta1":0.5,"n":30,"delta2":0.6}`

type accounts map[string]config.Account

func (a accounts) Lookup(name string) (config.Account, bool) {
	acct, ok := a[name]
	return acct, ok
}

type recordingPublisher struct {
	events []*models.OrderIntentEvent
	err    error
}

func (p *recordingPublisher) PublishIntent(ctx context.Context, event *models.OrderIntentEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type stubProcessor struct{ err error }

func (s stubProcessor) ProcessBytes(ctx context.Context, requestID, source string, body []byte) (*service.Result, error) {
	return nil, s.err
}

func newTestServer(pub service.Publisher, secret string) *Server {
	registry := accounts{
		"account_1": {Name: "account_1", Enabled: true, AllowOptionsTrading: true, MaxPositionSize: 1000},
		"capped":    {Name: "capped", Enabled: true, AllowOptionsTrading: true, MaxPositionSize: 5},
	}
	svc := service.NewSignalService(registry, pub, nil, zerolog.Nop(), service.Options{DuplicateWindow: time.Minute})
	return NewServer(Options{
		WebhookSecret:  secret,
		MaxBodyBytes:   4096,
		RequestTimeout: time.Second,
		Version:        "test",
		Accounts:       []string{"account_1"},
	}, svc, zerolog.Nop())
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/signal", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookAccepted(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(pub, "").Handler()

	rec, resp := post(t, h, examplePayload, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.RequestID, "req_"))
	assert.Contains(t, resp.Message, "opening")

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "test_signal_001", data["signalId"])
	assert.Equal(t, "opening", data["transition"])
	assert.Equal(t, "buy", data["action"])
	assert.Equal(t, "150.5", data["price"])
	assert.Equal(t, "2025-09-09T21:30:00Z", data["timestamp"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, resp.RequestID, pub.events[0].RequestID)
	assert.Equal(t, data["eventId"], pub.events[0].EventID)
}

func TestWebhookRejectionsAreSuccessShaped(t *testing.T) {
	cases := map[string]struct {
		body string
		err  string
	}{
		"validation": {strings.Replace(examplePayload, `"qtyType":"fixed",`, "", 1), "Validation failed"},
		"bad price":  {strings.Replace(examplePayload, `"150.50"`, `"abc"`, 1), "Validation failed"},
		"malformed":  {"not json", "Invalid payload"},
		"account":    {strings.Replace(examplePayload, `"account_1"`, `"ghost"`, 1), "Invalid account"},
		"limit":      {strings.Replace(examplePayload, `"account_1"`, `"capped"`, 1), "Account limit exceeded"},
	}
	for name, tc := range cases {
		pub := &recordingPublisher{}
		rec, resp := post(t, newTestServer(pub, "").Handler(), tc.body, nil)
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.False(t, resp.Success, name)
		assert.Equal(t, tc.err, resp.Error, name)
		assert.Empty(t, pub.events, name)
	}

	_, resp := post(t, newTestServer(nil, "").Handler(), strings.Replace(examplePayload, `"qtyType":"fixed",`, "", 1), nil)
	assert.Contains(t, resp.Message, "qty_type")
}

func TestWebhookHugeExponentRejected(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(pub, "").Handler()

	for _, price := range []string{`"1e200000000"`, `"1e-200000000"`, `1e200000000`} {
		body := strings.Replace(examplePayload, `"150.50"`, price, 1)

		start := time.Now()
		rec, resp := post(t, h, body, nil)
		assert.Less(t, time.Since(start), 5*time.Second, price)

		assert.Equal(t, http.StatusOK, rec.Code, price)
		assert.False(t, resp.Success, price)
		assert.Equal(t, "Validation failed", resp.Error, price)
		assert.Contains(t, resp.Message, "price", price)
		assert.Less(t, rec.Body.Len(), 4096, price)
	}
	assert.Empty(t, pub.events)
}

func TestWebhookDuplicate(t *testing.T) {
	h := newTestServer(&recordingPublisher{}, "").Handler()

	_, first := post(t, h, examplePayload, nil)
	require.True(t, first.Success)

	rec, second := post(t, h, examplePayload, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, second.Success)
	assert.Equal(t, "Duplicate signal", second.Error)
}

func TestWebhookPublishFailure(t *testing.T) {
	h := newTestServer(&recordingPublisher{err: errors.New("broker down")}, "").Handler()

	rec, resp := post(t, h, examplePayload, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Hand-off failed", resp.Error)
}

func TestWebhookConsistencyFault(t *testing.T) {
	srv := NewServer(Options{MaxBodyBytes: 4096}, stubProcessor{err: &classifier.ConsistencyError{Field: "price", Value: "x", Err: errors.New("bad")}}, zerolog.Nop())

	rec, resp := post(t, srv.Handler(), examplePayload, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error", resp.Error)
	assert.NotContains(t, resp.Message, "price")
}

func TestWebhookUnexpectedError(t *testing.T) {
	srv := NewServer(Options{MaxBodyBytes: 4096}, stubProcessor{err: context.DeadlineExceeded}, zerolog.Nop())

	rec, resp := post(t, srv.Handler(), examplePayload, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error", resp.Error)
}

func TestWebhookSignature(t *testing.T) {
	const secret = "s3cret"
	h := newTestServer(&recordingPublisher{}, secret).Handler()

	rec, resp := post(t, h, examplePayload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = post(t, h, examplePayload, map[string]string{"X-Signature": sign("wrong", examplePayload)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = post(t, h, examplePayload, map[string]string{"X-Hub-Signature-256": "sha256=" + sign(secret, examplePayload)})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestWebhookBodyTooLarge(t *testing.T) {
	h := newTestServer(nil, "").Handler()
	body := `{"comment":"` + strings.Repeat("x", 5000) + `"}`
	received := testutil.ToFloat64(metrics.SignalsReceived.WithLabelValues(models.SourceHTTP))
	tooLarge := testutil.ToFloat64(metrics.SignalsRejected.WithLabelValues(metrics.ReasonTooLarge))

	rec, resp := post(t, h, body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, received+1, testutil.ToFloat64(metrics.SignalsReceived.WithLabelValues(models.SourceHTTP)))
	assert.Equal(t, tooLarge+1, testutil.ToFloat64(metrics.SignalsRejected.WithLabelValues(metrics.ReasonTooLarge)))
}

func TestWebhookRejectionsCountedAsReceived(t *testing.T) {
	h := newTestServer(&recordingPublisher{}, "s3cret").Handler()
	received := func() float64 { return testutil.ToFloat64(metrics.SignalsReceived.WithLabelValues(models.SourceHTTP)) }
	rejected := func() float64 {
		return testutil.ToFloat64(metrics.SignalsRejected.WithLabelValues(metrics.ReasonSignature))
	}

	beforeReceived, beforeRejected := received(), rejected()
	rec, _ := post(t, h, examplePayload, map[string]string{"X-Signature": sign("wrong", examplePayload)})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, beforeReceived+1, received())
	assert.Equal(t, beforeRejected+1, rejected())

	beforeReceived = received()
	rec, _ = post(t, h, examplePayload, map[string]string{"X-Signature": sign("s3cret", examplePayload)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, beforeReceived+1, received(), "accepted signal counted once")
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	h := newTestServer(nil, "").Handler()

	req := httptest.NewRequest(http.MethodGet, "/webhook/signal", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestServer(nil, "").Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "signal-gateway", status.Service)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, []string{"account_1"}, status.Accounts)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(nil, "").Handler()
	post(t, h, examplePayload, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signals_received_total")
}

func TestValidSignature(t *testing.T) {
	sig := sign("k", "body")
	assert.True(t, validSignature("k", []byte("body"), sig))
	assert.True(t, validSignature("k", []byte("body"), "sha256="+sig))
	assert.False(t, validSignature("k", []byte("body2"), sig))
	assert.False(t, validSignature("k", []byte("body"), "zz"))
	assert.False(t, validSignature("k", []byte("body"), ""))
}
