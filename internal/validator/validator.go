// Package validator turns an untyped webhook payload into a models.Signal.
//
// Fields are checked in a fixed order and the first failure is returned, so
// the same bad payload always yields the same error.
package validator

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/trogers1052/signal-gateway/internal/convert"
	"github.com/trogers1052/signal-gateway/internal/models"
)

// Validate checks raw and builds a Signal. Any returned error is a *ValidationError.
func Validate(raw map[string]any) (*models.Signal, error) {
	p := payload(normalize(raw))
	var (
		s   models.Signal
		err error
	)

	if s.AccountName, err = p.text(FieldAccountName); err != nil {
		return nil, err
	}
	side, err := p.enum(FieldSide, string(models.SideBuy), string(models.SideSell))
	if err != nil {
		return nil, err
	}
	s.Side = models.Side(side)
	if s.Exchange, err = p.text(FieldExchange); err != nil {
		return nil, err
	}
	if s.Period, err = p.text(FieldPeriod); err != nil {
		return nil, err
	}
	if s.MarketPosition, err = p.position(FieldMarketPosition); err != nil {
		return nil, err
	}
	if s.PrevMarketPosition, err = p.position(FieldPrevMarketPosition); err != nil {
		return nil, err
	}
	if s.Symbol, err = p.text(FieldSymbol); err != nil {
		return nil, err
	}
	if s.Price, err = p.decimal(FieldPrice); err != nil {
		return nil, err
	}
	if s.Size, err = p.decimal(FieldSize); err != nil {
		return nil, err
	}
	if s.PositionSize, err = p.decimal(FieldPositionSize); err != nil {
		return nil, err
	}
	if s.Timestamp, err = p.timestamp(FieldTimestamp); err != nil {
		return nil, err
	}
	if s.ID, err = p.text(FieldID); err != nil {
		return nil, err
	}
	qty, err := p.enum(FieldQtyType, string(models.QtyFixed), string(models.QtyCash))
	if err != nil {
		return nil, err
	}
	s.QtyType = models.QtyType(qty)

	if s.AlertMessage, err = p.optionalText(FieldAlertMessage); err != nil {
		return nil, err
	}
	if s.Comment, err = p.optionalText(FieldComment); err != nil {
		return nil, err
	}
	if s.TVID, err = p.optionalInt(FieldTVID, false); err != nil {
		return nil, err
	}
	if s.Delta1, err = p.optionalFloat(FieldDelta1); err != nil {
		return nil, err
	}
	if s.MinExpiry, err = p.optionalInt(FieldMinExpiry, true); err != nil {
		return nil, err
	}
	if s.Delta2, err = p.optionalFloat(FieldDelta2); err != nil {
		return nil, err
	}

	return &s, nil
}

type payload map[string]entry

func (p payload) required(name string) (entry, error) {
	e, ok := p[name]
	if !ok {
		return entry{}, newError(name, nil, ErrMissingField)
	}
	return e, nil
}

// text returns a required, non-empty string
func (p payload) text(name string) (string, error) {
	e, err := p.required(name)
	if err != nil {
		return "", err
	}
	s, ok := e.value.(string)
	if !ok {
		return "", newError(name, e.value, ErrInvalidType)
	}
	if s == "" {
		return "", newError(name, e.value, ErrEmptyValue)
	}
	return s, nil
}

// enum returns a required string that is exactly one of allowed
func (p payload) enum(name string, allowed ...string) (string, error) {
	e, err := p.required(name)
	if err != nil {
		return "", err
	}
	s, ok := e.value.(string)
	if !ok {
		return "", newError(name, e.value, ErrInvalidType)
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", newError(name, e.value, ErrInvalidEnum)
}

func (p payload) position(name string) (models.MarketPosition, error) {
	s, err := p.enum(name,
		string(models.PositionLong),
		string(models.PositionShort),
		string(models.PositionFlat),
	)
	return models.MarketPosition(s), err
}

// decimal returns the text of a decimal-valued field. A JSON number decoded
// with UseNumber is accepted and keeps its literal text.
func (p payload) decimal(name string) (string, error) {
	e, err := p.required(name)
	if err != nil {
		return "", err
	}
	var s string
	switch v := e.value.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return "", newError(name, e.value, ErrInvalidType)
	}
	if _, err := convert.ParseDecimal(s); err != nil {
		return "", newError(name, e.value, ErrInvalidDecimal)
	}
	return s, nil
}

func (p payload) timestamp(name string) (string, error) {
	e, err := p.required(name)
	if err != nil {
		return "", err
	}
	s, ok := e.value.(string)
	if !ok {
		return "", newError(name, e.value, ErrInvalidType)
	}
	if _, err := convert.ParseTimestamp(s); err != nil {
		return "", newError(name, e.value, ErrInvalidTimestamp)
	}
	return s, nil
}

func (p payload) optionalText(name string) (*string, error) {
	e, ok := p[name]
	if !ok {
		return nil, nil
	}
	s, ok := e.value.(string)
	if !ok {
		return nil, newError(name, e.value, ErrInvalidType)
	}
	return &s, nil
}

func (p payload) optionalInt(name string, nonNegative bool) (*int64, error) {
	e, ok := p[name]
	if !ok {
		return nil, nil
	}
	n, ok := toInt(e.value)
	if !ok {
		return nil, newError(name, e.value, ErrInvalidType)
	}
	if nonNegative && n < 0 {
		return nil, newError(name, e.value, ErrNegative)
	}
	return &n, nil
}

func (p payload) optionalFloat(name string) (*float64, error) {
	e, ok := p[name]
	if !ok {
		return nil, nil
	}
	f, ok := toFloat(e.value)
	if !ok {
		return nil, newError(name, e.value, ErrInvalidType)
	}
	return &f, nil
}

// toInt accepts JSON integers only. A float64 is allowed when it holds a
// whole number, which is what encoding/json produces without UseNumber.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= 1<<63 || n < -(1<<63) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
