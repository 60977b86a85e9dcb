package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalRoundTrip(t *testing.T) {
	for _, in := range []string{"150.50", "10", "0", "-3.25", "0.000000000000000000000001", "123456789012345678901234567890.5", "1e3"} {
		d, err := ParseDecimal(in)
		require.NoError(t, err, in)

		again, err := ParseDecimal(d.String())
		require.NoError(t, err, in)
		assert.True(t, d.Equal(again), "round trip changed %s", in)
	}
}

func TestParseDecimalExact(t *testing.T) {
	d, err := ParseDecimal("0.1")
	require.NoError(t, err)
	sum := d.Add(d).Add(d)

	want, _ := ParseDecimal("0.3")
	assert.True(t, sum.Equal(want))
}

func TestParseDecimalRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", "12abc", "--1"} {
		_, err := ParseDecimal(in)
		assert.Error(t, err, in)
	}
}

func TestParseDecimalExponentBound(t *testing.T) {
	for _, in := range []string{"1e200000000", "1e-200000000", "1e65", "1E-65", "0.5e-64"} {
		_, err := ParseDecimal(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrDecimalRange, in)
	}

	for _, in := range []string{"1e64", "1e-64", "1.5e-63", "2.5E10"} {
		d, err := ParseDecimal(in)
		require.NoError(t, err, in)
		assert.LessOrEqual(t, len(d.String()), 2*MaxDecimalExponent+4, in)
	}
}

func TestClassifyTimestamp(t *testing.T) {
	assert.Equal(t, TimestampEpoch, ClassifyTimestamp("1757452200"))
	assert.Equal(t, TimestampISO, ClassifyTimestamp("2025-09-09T21:30:00Z"))
	assert.Equal(t, TimestampISO, ClassifyTimestamp("-1"))
	assert.Equal(t, TimestampISO, ClassifyTimestamp(""))
	assert.Equal(t, "epoch", TimestampEpoch.String())
	assert.Equal(t, "iso8601", TimestampISO.String())
}

func TestParseTimestampCrossFormat(t *testing.T) {
	iso, err := ParseTimestamp("2025-09-09T21:30:00Z")
	require.NoError(t, err)

	epoch, err := ParseTimestamp("1757453400")
	require.NoError(t, err)

	assert.True(t, iso.Equal(epoch), "iso=%s epoch=%s", iso, epoch)
	assert.Equal(t, time.UTC, iso.Location())
}

func TestParseTimestampISOVariants(t *testing.T) {
	want := time.Date(2025, 9, 9, 21, 30, 0, 0, time.UTC)

	cases := []string{
		"2025-09-09T21:30:00Z",
		"2025-09-09T21:30:00+00:00",
		"2025-09-09T23:30:00+02:00",
		"2025-09-09T17:30:00-0400",
		"2025-09-09T21:30:00",
		"2025-09-09 21:30:00",
		"2025-09-09T21:30Z",
		"2025-09-09T21:30:00.000Z",
	}
	for _, in := range cases {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s => %s", in, got)
	}

	frac, err := ParseTimestamp("2025-09-09T21:30:00.250Z")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, frac.Sub(want))

	day, err := ParseTimestamp("2025-09-09")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC).Equal(day))
}

func TestParseTimestampIdempotent(t *testing.T) {
	for _, in := range []string{"1757453400", "2025-09-09T21:30:00Z", "0"} {
		a, err := ParseTimestamp(in)
		require.NoError(t, err)
		b, err := ParseTimestamp(in)
		require.NoError(t, err)
		assert.True(t, a.Equal(b))
	}
}

func TestParseTimestampRejects(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-13-40T00:00:00Z", "99999999999999999999", "253402300800", "1757453400.5"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}

	_, err := ParseTimestamp("253402300800")
	assert.ErrorIs(t, err, ErrTimestampRange)
}
