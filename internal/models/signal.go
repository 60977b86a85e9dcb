package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the trading direction of a webhook signal
type Side string

// MarketPosition is the account's exposure in an instrument
type MarketPosition string

// QtyType says whether size is a unit count or a cash notional
type QtyType string

// Transition is the classified change from prev_market_position to market_position
type Transition string

// Action is the order action handed to execution
type Action string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	PositionLong  MarketPosition = "long"
	PositionShort MarketPosition = "short"
	PositionFlat  MarketPosition = "flat"
)

const (
	QtyFixed QtyType = "fixed"
	QtyCash  QtyType = "cash"
)

const (
	TransitionOpening   Transition = "opening"
	TransitionClosing   Transition = "closing"
	TransitionReversing Transition = "reversing"
	TransitionUnchanged Transition = "unchanged"
)

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionClose Action = "close"
)

// Valid reports whether s is one of the two declared sides
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Valid reports whether p is long, short or flat
func (p MarketPosition) Valid() bool {
	switch p {
	case PositionLong, PositionShort, PositionFlat:
		return true
	default:
		return false
	}
}

// Valid reports whether q is fixed or cash
func (q QtyType) Valid() bool {
	return q == QtyFixed || q == QtyCash
}

// Signal is a validated webhook payload. Numeric and timestamp fields keep
// the text the sender supplied; typed views live on OrderIntent.
//
// A Signal is built once by the validator and must not be mutated afterwards.
type Signal struct {
	AccountName        string         `json:"account_name"`
	Side               Side           `json:"side"`
	Exchange           string         `json:"exchange"`
	Period             string         `json:"period"`
	MarketPosition     MarketPosition `json:"market_position"`
	PrevMarketPosition MarketPosition `json:"prev_market_position"`
	Symbol             string         `json:"symbol"`
	Price              string         `json:"price"`
	Size               string         `json:"size"`
	PositionSize       string         `json:"position_size"`
	Timestamp          string         `json:"timestamp"`
	ID                 string         `json:"id"`
	QtyType            QtyType        `json:"qty_type"`

	AlertMessage *string  `json:"alert_message,omitempty"`
	Comment      *string  `json:"comment,omitempty"`
	TVID         *int64   `json:"tv_id,omitempty"`
	Delta1       *float64 `json:"delta1,omitempty"`
	MinExpiry    *int64   `json:"n,omitempty"`
	Delta2       *float64 `json:"delta2,omitempty"`
}

// OrderIntent is the canonical, execution-ready record derived from a Signal
type OrderIntent struct {
	Signal     Signal     `json:"signal"`
	Transition Transition `json:"transition"`
	Action     Action     `json:"action"`

	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	PositionSize decimal.Decimal `json:"position_size"`
	Timestamp    time.Time       `json:"timestamp"`

	AccountName string   `json:"account_name"`
	Symbol      string   `json:"symbol"`
	Side        Side     `json:"side"`
	QtyType     QtyType  `json:"qty_type"`
	Delta1      *float64 `json:"delta1,omitempty"`
	Delta2      *float64 `json:"delta2,omitempty"`
	MinExpiry   *int64   `json:"min_expiry_days,omitempty"`
}

// IsOpening reports whether the intent opens a new position
func (o *OrderIntent) IsOpening() bool { return o.Transition == TransitionOpening }

// IsClosing reports whether the intent flattens an existing position
func (o *OrderIntent) IsClosing() bool { return o.Transition == TransitionClosing }

// IsReversing reports whether the intent flips long to short or short to long
func (o *OrderIntent) IsReversing() bool { return o.Transition == TransitionReversing }

// TargetsOptions reports whether the intent carries option selection
// parameters (a delta target or a minimum expiry)
func (o *OrderIntent) TargetsOptions() bool {
	return o.Delta1 != nil || o.Delta2 != nil || o.MinExpiry != nil
}
