// Package convert holds the decimal and timestamp parsing shared by the
// validator and the classifier. Both callers must agree on every result, so
// there is exactly one implementation of each rule.
package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampKind tags which branch a timestamp string is parsed with
type TimestampKind int

const (
	// TimestampEpoch is an all-digit string of Unix seconds
	TimestampEpoch TimestampKind = iota
	// TimestampISO is anything else, parsed as ISO-8601
	TimestampISO
)

func (k TimestampKind) String() string {
	switch k {
	case TimestampEpoch:
		return "epoch"
	case TimestampISO:
		return "iso8601"
	default:
		return "unknown"
	}
}

// maxEpochSeconds is 9999-12-31T23:59:59Z, the last second with a four digit year
const maxEpochSeconds = 253402300799

var ErrTimestampRange = errors.New("timestamp out of range")

// MaxDecimalExponent bounds the base-10 exponent of a parsed decimal in both
// directions. Printing a decimal writes out every digit the exponent implies.
const MaxDecimalExponent = 64

var ErrDecimalRange = errors.New("decimal exponent out of range")

// isoLayouts are tried in order after a trailing "Z" has been rewritten to
// "+00:00". Layouts without an offset are read as UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04-07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDecimal parses s as an exact base-10 decimal
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if exp := d.Exponent(); exp > MaxDecimalExponent || exp < -MaxDecimalExponent {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, ErrDecimalRange)
	}
	return d, nil
}

// ClassifyTimestamp picks the parse branch for s. The decision is total:
// every string is either epoch or ISO.
func ClassifyTimestamp(s string) TimestampKind {
	if s == "" {
		return TimestampISO
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return TimestampISO
		}
	}
	return TimestampEpoch
}

// ParseTimestamp resolves s to an absolute instant in UTC
func ParseTimestamp(s string) (time.Time, error) {
	switch ClassifyTimestamp(s) {
	case TimestampEpoch:
		return parseEpoch(s)
	default:
		return parseISO(s)
	}
}

func parseEpoch(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q: %w", s, err)
	}
	if secs > maxEpochSeconds {
		return time.Time{}, fmt.Errorf("epoch seconds %q: %w", s, ErrTimestampRange)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func parseISO(s string) (time.Time, error) {
	v := s
	if strings.HasSuffix(v, "Z") {
		v = strings.TrimSuffix(v, "Z") + "+00:00"
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}
