package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/normalize"
)

// Currencies is the allow-list of major currency codes a row may carry.
var Currencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "NZD", "CAD", "CHF", "CNY"}

// nameLookahead bounds how many adjacent cells are concatenated to close an
// unbalanced parenthesis in an event name.
const nameLookahead = 3

var (
	currencyRe = regexp.MustCompile(`\b(` + strings.Join(Currencies, "|") + `)\b`)
	numericRe  = regexp.MustCompile(`(?i)^[+-]?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?\s*(?:%|bps|bp|pips|pip|[kmbt])?$`)
	dashes     = strings.NewReplacer("–", "-", "—", "-", "−", "-")
	spaceRe    = regexp.MustCompile(`\s+`)
)

// ExtractCurrency returns the first allow-listed currency code in s.
func ExtractCurrency(s string) string {
	return currencyRe.FindString(strings.ToUpper(s))
}

// LooksNumeric reports whether s is a plausible released figure. Column
// header placeholders, "-" and free text are rejected.
func LooksNumeric(s string) bool {
	v := strings.TrimSpace(dashes.Replace(s))
	if v == "" {
		return false
	}
	return numericRe.MatchString(v)
}

// cleanValue normalizes a value cell and returns "" unless it looks numeric.
func cleanValue(s string) string {
	v := collapse(s)
	if !LooksNumeric(v) {
		return ""
	}
	return v
}

// valueFrom reads attribute-embedded values first, then the element text.
func valueFrom(sel *goquery.Selection, attrs ...string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	for _, a := range attrs {
		if v, ok := sel.Attr(a); ok {
			if c := cleanValue(v); c != "" {
				return c
			}
		}
	}
	return cleanValue(sel.Text())
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// impactFromClass reads a severity level out of class or attribute text.
// ok is false when no level marker is present.
func impactFromClass(s string) (model.Impact, bool) {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "impact-red"), strings.Contains(lower, "impact--high"),
		strings.Contains(lower, "impact-high"), strings.Contains(lower, "bull3"),
		strings.Contains(lower, "high volatility"), strings.Contains(lower, "high impact"):
		return model.ImpactHigh, true
	case strings.Contains(lower, "impact-ora"), strings.Contains(lower, "impact--medium"),
		strings.Contains(lower, "impact-medium"), strings.Contains(lower, "bull2"),
		strings.Contains(lower, "moderate volatility"), strings.Contains(lower, "medium impact"):
		return model.ImpactMedium, true
	case strings.Contains(lower, "impact-yel"), strings.Contains(lower, "impact--low"),
		strings.Contains(lower, "impact-low"), strings.Contains(lower, "bull1"),
		strings.Contains(lower, "low volatility"), strings.Contains(lower, "low impact"),
		strings.Contains(lower, "impact-gra"), strings.Contains(lower, "non-economic"):
		return model.ImpactLow, true
	}
	return model.ImpactLow, false
}

// hintFromClass reads a colour marker from whole class tokens, so "red"
// matches "text-red" but not "featured". Colour is the primary signal.
func hintFromClass(class string) model.ResultHint {
	tokens := strings.FieldsFunc(strings.ToLower(class), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '-' || r == '_'
	})
	for _, tok := range tokens {
		switch tok {
		case "better", "green", "greenfont", "positive":
			return model.HintBetter
		case "worse", "red", "redfont", "negative":
			return model.HintWorse
		}
	}
	return model.HintNone
}

// hintFromPhrase reads the secondary descriptive signal.
func hintFromPhrase(text string) model.ResultHint {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "better than expected"):
		return model.HintBetter
	case strings.Contains(lower, "worse than expected"):
		return model.HintWorse
	case strings.Contains(lower, "as expected"):
		return model.HintAsExpec
	}
	return model.HintNone
}

// resultHint inspects the actual-value element and its descendants: colour
// classes first, then title/text phrases.
func resultHint(sel *goquery.Selection) model.ResultHint {
	if sel == nil || sel.Length() == 0 {
		return model.HintNone
	}
	var classes []string
	var phrases []string
	collect := func(s *goquery.Selection) {
		classes = append(classes, s.AttrOr("class", ""))
		phrases = append(phrases, s.AttrOr("title", ""), s.AttrOr("data-result", ""))
	}
	collect(sel)
	sel.Find("*").Each(func(_ int, s *goquery.Selection) { collect(s) })

	for _, c := range classes {
		if h := hintFromClass(c); h != model.HintNone {
			return h
		}
	}
	phrases = append(phrases, sel.Text())
	for _, p := range phrases {
		if h := hintFromPhrase(p); h != model.HintNone {
			return h
		}
	}
	return model.HintNone
}

// balancedName returns cells[idx], concatenating following cells while the
// name has an unbalanced opening parenthesis and the lookahead allows.
func balancedName(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	name := collapse(cells[idx])
	for i := 1; i <= nameLookahead && idx+i < len(cells); i++ {
		if strings.Count(name, "(") <= strings.Count(name, ")") {
			break
		}
		name = collapse(name + " " + cells[idx+i])
	}
	return name
}

// cellTexts returns the collapsed text of every matched element.
func cellTexts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, collapse(s.Text()))
	})
	return out
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02T15:04",
}

// ParseTimestamp reads a machine-readable timestamp: unix seconds or
// milliseconds, RFC 3339, or one of the common ISO-like layouts (UTC).
func ParseTimestamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		switch {
		case n > 1e12:
			return time.UnixMilli(n).UTC(), true
		case n > 1e8:
			return time.Unix(n, 0).UTC(), true
		}
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// dateMatcher turns one textual date format into a calendar date. ref
// supplies the year for formats that omit it.
type dateMatcher struct {
	re    *regexp.Regexp
	build func(m []string, ref time.Time) (time.Time, bool)
}

var dateMatchers = []dateMatcher{
	{
		// October 13, 2025 / Monday, October 13, 2025
		re: regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})\b`),
		build: func(m []string, _ time.Time) (time.Time, bool) {
			return makeDate(m[3], monthNames[strings.ToLower(m[1][:3])], m[2])
		},
	},
	{
		// 13.10.2025
		re: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`),
		build: func(m []string, _ time.Time) (time.Time, bool) {
			mon, err := strconv.Atoi(m[2])
			if err != nil || mon < 1 || mon > 12 {
				return time.Time{}, false
			}
			return makeDate(m[3], time.Month(mon), m[1])
		},
	},
	{
		// 2025-10-13
		re: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		build: func(m []string, _ time.Time) (time.Time, bool) {
			mon, err := strconv.Atoi(m[2])
			if err != nil || mon < 1 || mon > 12 {
				return time.Time{}, false
			}
			return makeDate(m[1], time.Month(mon), m[3])
		},
	},
	{
		// Mon Oct 13 (year taken from ref)
		re: regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})\b`),
		build: func(m []string, ref time.Time) (time.Time, bool) {
			return makeDate(strconv.Itoa(ref.Year()), monthNames[strings.ToLower(m[1])], m[2])
		},
	},
}

// ParseDateText tries the date matchers in order and returns the first hit.
func ParseDateText(text string, ref time.Time) (time.Time, bool) {
	for _, dm := range dateMatchers {
		if m := dm.re.FindStringSubmatch(text); m != nil {
			if t, ok := dm.build(m, ref); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func makeDate(year string, month time.Month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

var clockRe = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)

// withClock applies a "8:30am" or "13:30" clock text to a date. ok is false
// for "All Day", "Tentative" and other non-clock text.
func withClock(date time.Time, clock string) (time.Time, bool) {
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		return date, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	switch strings.ToLower(m[3]) {
	case "pm":
		if h < 12 {
			h += 12
		}
	case "am":
		if h == 12 {
			h = 0
		}
	}
	if h > 23 || mins > 59 {
		return date, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, mins, 0, 0, time.UTC), true
}

// keep applies the row acceptance rule.
func keep(r *model.RawEvent) bool {
	if r.Currency == "" || normalize.CleanName(r.Name) == "" {
		return false
	}
	return r.HasValues() || r.ImpactExplicit
}
