package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "25", want: 25_000_000},
		{in: "25.0", want: 25_000_000},
		{in: "0.0001", want: 100},
		{in: "10.5", want: 10_500_000},
		{in: "0.000001", want: 1},
		{in: "0.0000001", wantErr: true}, // below micro resolution
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "25", FormatAmount(25_000_000))
	assert.Equal(t, "25.00003", FormatAmount(25_000_030))
	assert.Equal(t, "0.000001", FormatAmount(1))
}

func TestAmountMatches(t *testing.T) {
	expected := int64(10_000_000) // 10 USDT

	assert.True(t, AmountMatches(expected, 10_000_000))
	assert.True(t, AmountMatches(expected, 10_000_050))  // 10.00005, inside tolerance
	assert.True(t, AmountMatches(expected, 9_999_900))   // exactly at tolerance
	assert.False(t, AmountMatches(expected, 10_000_500)) // 10.0005, outside
	assert.False(t, AmountMatches(expected, 9_999_700))
}

func TestIsRoundAmount(t *testing.T) {
	assert.True(t, IsRoundAmount(25_000_000))
	assert.False(t, IsRoundAmount(25_000_030))
	assert.False(t, IsRoundAmount(0))
}

func TestAmountAllocatorUniqueAmounts(t *testing.T) {
	a := newAmountAllocator()

	first := a.Allocate(25_000_000)
	second := a.Allocate(25_000_000)
	third := a.Allocate(25_000_000)

	assert.Equal(t, int64(25_000_000), first, "a free round amount maps to itself")
	require.GreaterOrEqual(t, second, int64(25_000_000))
	for _, pair := range [][2]int64{{first, second}, {first, third}, {second, third}} {
		diff := pair[0] - pair[1]
		if diff < 0 {
			diff = -diff
		}
		assert.Greater(t, diff, 2*MatchTolerance,
			"allocated amounts %d and %d have overlapping tolerance windows", pair[0], pair[1])
	}
}

func TestAmountAllocatorRelease(t *testing.T) {
	a := newAmountAllocator()

	first := a.Allocate(25_000_000)
	a.Release(first)

	again := a.Allocate(25_000_000)
	assert.Equal(t, first, again, "released slot should be reused")
}

func TestAmountAllocatorReserve(t *testing.T) {
	a := newAmountAllocator()

	first := a.Allocate(25_000_000)

	restored := newAmountAllocator()
	restored.Reserve(first)

	second := restored.Allocate(25_000_000)
	assert.NotEqual(t, first, second, "reserved amount must not be handed out again")
}
