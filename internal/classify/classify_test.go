package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/econ-calendar/internal/model"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0.3%", "0.3", true},
		{"-1.2%", "-1.2", true},
		{"–0.4", "-0.4", true},
		{"+25bps", "25", true},
		{"50K", "50000", true},
		{"1,245.5K", "1245500", true},
		{"2.1B", "2100000000", true},
		{"12 pips", "12", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"K", "0", false},
		{"1.2.3", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		forecast string
		dir      model.Direction
		want     model.ResultType
	}{
		{"equal is neutral", "100", "100", model.HigherIsBetter, model.ResultNeutral},
		{"equal with unknown direction", "0.3%", "0.30%", model.DirectionUnknown, model.ResultNeutral},
		{"above, higher is better", "105", "100", model.HigherIsBetter, model.ResultGood},
		{"above, lower is better", "105", "100", model.LowerIsBetter, model.ResultBad},
		{"below, higher is better", "95", "100", model.HigherIsBetter, model.ResultBad},
		{"below, lower is better", "95", "100", model.LowerIsBetter, model.ResultGood},
		{"unknown direction", "105", "100", model.DirectionUnknown, model.ResultUnknown},
		{"unit multipliers compared", "1.1M", "950K", model.HigherIsBetter, model.ResultGood},
		{"missing forecast", "105", "", model.HigherIsBetter, model.ResultUnknown},
		{"unparseable actual", "Tentative", "100", model.HigherIsBetter, model.ResultUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.actual, tt.forecast, tt.dir))
		})
	}
}

func TestFromHint(t *testing.T) {
	assert.Equal(t, model.ResultGood, FromHint(model.HintBetter))
	assert.Equal(t, model.ResultBad, FromHint(model.HintWorse))
	assert.Equal(t, model.ResultNeutral, FromHint(model.HintAsExpec))
	assert.Equal(t, model.ResultUnknown, FromHint(model.HintNone))
}

func TestActualAboveForecast(t *testing.T) {
	above, ok := ActualAboveForecast("3.2%", "3.0%")
	assert.True(t, ok)
	assert.True(t, above)

	above, ok = ActualAboveForecast("-0.5", "0.1")
	assert.True(t, ok)
	assert.False(t, above)

	_, ok = ActualAboveForecast("1", "1.0")
	assert.False(t, ok)

	_, ok = ActualAboveForecast("", "1.0")
	assert.False(t, ok)
}
