package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/econ-calendar/internal/model"
)

// DetailInfo is what a per-event detail page contributes: its severity and
// the colour marker on the latest release.
type DetailInfo struct {
	Impact    model.Impact
	HasImpact bool
	Hint      model.ResultHint
}

// ParseDetail extracts only severity and colour markers from a detail page.
// It does not run the row parsers.
func ParseDetail(html string) DetailInfo {
	info := DetailInfo{Impact: model.ImpactLow}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return info
	}

	// Severity: impact icon classes, importance attributes, bull icons.
	doc.Find(`[class*="impact"], [data-img_key], [data-importance], .sentiment`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.AttrOr("class", "") + " " + s.AttrOr("data-img_key", "") + " " + s.AttrOr("title", "")
		if imp, ok := impactFromClass(text); ok {
			info.Impact, info.HasImpact = imp, true
			return false
		}
		if imp, ok := model.ParseImpact(s.AttrOr("data-importance", "")); ok {
			info.Impact, info.HasImpact = imp, true
			return false
		}
		return true
	})
	if !info.HasImpact {
		if imp, ok := investingImpact(doc.Find(".sentiment, .importance").First()); ok {
			info.Impact, info.HasImpact = imp, true
		}
	}

	// Colour marker on the most recent actual.
	actual := doc.Find(`.calendar__actual, td.act, [data-test="row-actual"], .actual`).First()
	info.Hint = resultHint(actual)
	return info
}
