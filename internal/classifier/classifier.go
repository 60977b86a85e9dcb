// Package classifier derives the position transition and typed numeric views
// of a validated Signal and produces the OrderIntent handed to execution.
package classifier

import (
	"fmt"

	"github.com/trogers1052/signal-gateway/internal/convert"
	"github.com/trogers1052/signal-gateway/internal/models"
)

// ConsistencyError means a Signal that passed validation could not be
// re-parsed. It is a bug in this service, never a problem with the input.
type ConsistencyError struct {
	Field string
	Value string
	Err   error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency fault: validated field %s=%q failed to re-parse: %v", e.Field, e.Value, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// Transition classifies prev -> cur. The first matching rule wins:
// opening, closing, reversing, otherwise unchanged.
func Transition(prev, cur models.MarketPosition) models.Transition {
	switch {
	case prev == models.PositionFlat && cur != models.PositionFlat:
		return models.TransitionOpening
	case prev != models.PositionFlat && cur == models.PositionFlat:
		return models.TransitionClosing
	case prev != models.PositionFlat && cur != models.PositionFlat && prev != cur:
		return models.TransitionReversing
	default:
		return models.TransitionUnchanged
	}
}

// Action picks the order action for a transition. Closing orders close,
// reversals follow the new position, everything else follows side.
func Action(t models.Transition, cur models.MarketPosition, side models.Side) models.Action {
	switch t {
	case models.TransitionClosing:
		return models.ActionClose
	case models.TransitionReversing:
		if cur == models.PositionLong {
			return models.ActionBuy
		}
		return models.ActionSell
	default:
		if side == models.SideSell {
			return models.ActionSell
		}
		return models.ActionBuy
	}
}

// Classify builds the OrderIntent for s. A non-nil error is always a
// *ConsistencyError.
func Classify(s *models.Signal) (*models.OrderIntent, error) {
	price, err := convert.ParseDecimal(s.Price)
	if err != nil {
		return nil, &ConsistencyError{Field: "price", Value: s.Price, Err: err}
	}
	size, err := convert.ParseDecimal(s.Size)
	if err != nil {
		return nil, &ConsistencyError{Field: "size", Value: s.Size, Err: err}
	}
	positionSize, err := convert.ParseDecimal(s.PositionSize)
	if err != nil {
		return nil, &ConsistencyError{Field: "position_size", Value: s.PositionSize, Err: err}
	}
	ts, err := convert.ParseTimestamp(s.Timestamp)
	if err != nil {
		return nil, &ConsistencyError{Field: "timestamp", Value: s.Timestamp, Err: err}
	}

	transition := Transition(s.PrevMarketPosition, s.MarketPosition)

	return &models.OrderIntent{
		Signal:       *s,
		Transition:   transition,
		Action:       Action(transition, s.MarketPosition, s.Side),
		Price:        price,
		Size:         size,
		PositionSize: positionSize,
		Timestamp:    ts,
		AccountName:  s.AccountName,
		Symbol:       s.Symbol,
		Side:         s.Side,
		QtyType:      s.QtyType,
		Delta1:       s.Delta1,
		Delta2:       s.Delta2,
		MinExpiry:    s.MinExpiry,
	}, nil
}
