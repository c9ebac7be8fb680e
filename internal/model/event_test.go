package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseImpact(t *testing.T) {
	tests := []struct {
		in   string
		want Impact
		ok   bool
	}{
		{"High", ImpactHigh, true},
		{" red ", ImpactHigh, true},
		{"3", ImpactHigh, true},
		{"moderate", ImpactMedium, true},
		{"bull2", ImpactMedium, true},
		{"yellow", ImpactLow, true},
		{"LOW", ImpactLow, true},
		{"", ImpactLow, false},
		{"critical", ImpactLow, false},
	}
	for _, tt := range tests {
		got, ok := ParseImpact(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestImpactValid(t *testing.T) {
	assert.True(t, ImpactMedium.Valid())
	assert.False(t, Impact("").Valid())
	assert.False(t, Impact("high").Valid())
}

func TestResultTypeKnown(t *testing.T) {
	assert.True(t, ResultNeutral.Known())
	assert.False(t, ResultUnknown.Known())
}

func TestEventAccessors(t *testing.T) {
	now := time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)
	ev := Event{
		ActualValue: StringPtr(" 0.3% "),
		LastUpdated: now.Add(-3 * time.Minute),
	}
	assert.Equal(t, "0.3%", ev.Actual())
	assert.Equal(t, "", ev.Forecast())
	assert.Equal(t, "", ev.Previous())
	assert.Equal(t, 3*time.Minute, ev.Age(now))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr("   "))
	p := StringPtr("x")
	if assert.NotNil(t, p) {
		assert.Equal(t, "x", *p)
	}
}

func TestDirection(t *testing.T) {
	assert.Equal(t, HigherIsBetter, DirectionOf(true))
	assert.Equal(t, LowerIsBetter, DirectionOf(false))
	assert.Equal(t, "unknown", DirectionUnknown.String())
	assert.Equal(t, "lower_is_better", LowerIsBetter.String())
}
