// Package classify derives the qualitative outcome of a released figure.
package classify

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sells-group/econ-calendar/internal/model"
)

var (
	dashReplacer = strings.NewReplacer("–", "-", "—", "-", "−", "-")
	numberRe     = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)

	multipliers = map[string]decimal.Decimal{
		"k": decimal.NewFromInt(1_000),
		"m": decimal.NewFromInt(1_000_000),
		"b": decimal.NewFromInt(1_000_000_000),
		"t": decimal.NewFromInt(1_000_000_000_000),
	}
	units = []string{"bps", "bp", "pips", "pip", "%"}
)

// ParseValue reads a source-formatted figure such as "50K", "-1.2%",
// "1,234.5" or "–0.3" into a decimal.
func ParseValue(s string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(dashReplacer.Replace(s))
	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return decimal.Zero, false
	}

	lower := strings.ToLower(v)
	for _, u := range units {
		if strings.HasSuffix(lower, u) {
			lower = strings.TrimSuffix(lower, u)
			break
		}
	}

	mult := decimal.NewFromInt(1)
	if n := len(lower); n > 0 {
		if m, ok := multipliers[lower[n-1:]]; ok {
			mult = m
			lower = lower[:n-1]
		}
	}

	if !numberRe.MatchString(lower) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(lower, "+"))
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(mult), true
}

// Classify compares an actual figure against its forecast. Equal values are
// neutral whatever the direction; otherwise an unknown direction or an
// unparseable value yields ResultUnknown.
func Classify(actual, forecast string, dir model.Direction) model.ResultType {
	a, ok := ParseValue(actual)
	if !ok {
		return model.ResultUnknown
	}
	f, ok := ParseValue(forecast)
	if !ok {
		return model.ResultUnknown
	}
	if a.Equal(f) {
		return model.ResultNeutral
	}
	if dir == model.DirectionUnknown {
		return model.ResultUnknown
	}
	if a.GreaterThan(f) == (dir == model.HigherIsBetter) {
		return model.ResultGood
	}
	return model.ResultBad
}

// FromHint maps a parser colour/phrase marker to a result. Only the three
// explicit markers are trusted.
func FromHint(h model.ResultHint) model.ResultType {
	switch h {
	case model.HintBetter:
		return model.ResultGood
	case model.HintWorse:
		return model.ResultBad
	case model.HintAsExpec:
		return model.ResultNeutral
	}
	return model.ResultUnknown
}

// ActualAboveForecast reports whether actual > forecast. ok is false when
// either side does not parse or the two are equal.
func ActualAboveForecast(actual, forecast string) (above bool, ok bool) {
	a, okA := ParseValue(actual)
	f, okF := ParseValue(forecast)
	if !okA || !okF || a.Equal(f) {
		return false, false
	}
	return a.GreaterThan(f), true
}
