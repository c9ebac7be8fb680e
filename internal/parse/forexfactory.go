package parse

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/econ-calendar/internal/model"
)

// ffTableLayout parses the weekly calendar table: one tr.calendar__row per
// event, with day-breaker rows carrying the date.
type ffTableLayout struct{}

func (ffTableLayout) Name() string   { return "forexfactory_table" }
func (ffTableLayout) Source() string { return SourceForexFactory }

func (ffTableLayout) Detect(html string) bool {
	return strings.Contains(html, "calendar__table") && strings.Contains(html, "calendar__row")
}

func (l ffTableLayout) Parse(doc *goquery.Document, pc Context) ([]model.RawEvent, error) {
	rows := doc.Find("tr.calendar__row")
	if rows.Length() == 0 {
		return nil, ErrNoRows
	}

	var (
		out     []model.RawEvent
		day     time.Time
		hasDay  bool
		lastClk string
	)
	eachRow(rows, l.Name(), func(row *goquery.Selection) {
		// Date context carries over from the first row of each day.
		if d, ok := ParseDateText(row.Find("td.calendar__date").Text(), pc.Now); ok {
			day, hasDay = d, true
		} else if row.HasClass("calendar__row--day-breaker") {
			if d, ok := ParseDateText(row.Text(), pc.Now); ok {
				day, hasDay = d, true
			}
			return
		}
		if clk := collapse(row.Find("td.calendar__time").Text()); clk != "" {
			lastClk = clk
		}

		cells := row.Find("td")
		texts := cellTexts(cells)
		nameIdx := cells.IndexOfSelection(row.Find("td.calendar__event").First())
		name := collapse(row.Find("td.calendar__event .calendar__event-title").Text())
		if name == "" || strings.Count(name, "(") > strings.Count(name, ")") {
			if nameIdx >= 0 {
				if name != "" {
					texts[nameIdx] = name
				}
				name = balancedName(texts, nameIdx)
			}
		}

		r := model.RawEvent{
			Source:   l.Source(),
			Layout:   l.Name(),
			Currency: ExtractCurrency(row.Find("td.calendar__currency").Text()),
			Name:     name,
			NativeID: row.AttrOr("data-event-id", ""),
		}

		impactCell := row.Find("td.calendar__impact")
		r.Impact, r.ImpactExplicit = impactFromClass(impactCell.Find("span").AttrOr("class", "") + " " + impactCell.AttrOr("class", ""))

		actual := row.Find("td.calendar__actual")
		r.Actual = valueFrom(actual, "data-actual", "data-value")
		r.Forecast = valueFrom(row.Find("td.calendar__forecast"), "data-forecast", "data-value")
		r.Previous = valueFrom(row.Find("td.calendar__previous"), "data-previous", "data-value")
		if r.Actual != "" {
			r.ResultHint = resultHint(actual)
		}

		if href, ok := row.Find("td.calendar__detail a").Attr("href"); ok {
			r.DetailPath = href
		} else if r.NativeID != "" {
			r.DetailPath = "/calendar?detail=" + r.NativeID
		}

		if ts, ok := ParseTimestamp(row.AttrOr("data-timestamp", "")); ok {
			r.Time = &ts
		} else if hasDay {
			t := day
			if withTime, ok := withClock(day, lastClk); ok {
				t = withTime
			}
			r.Time = &t
			r.DateText = day.Format("2006-01-02") + " " + lastClk
		}

		if keep(&r) {
			out = append(out, r)
		}
	})
	return out, nil
}

// ffInlineLayout parses the compact list markup where each event is a div
// carrying most fields as data attributes.
type ffInlineLayout struct{}

func (ffInlineLayout) Name() string   { return "forexfactory_inline" }
func (ffInlineLayout) Source() string { return SourceForexFactory }

func (ffInlineLayout) Detect(html string) bool {
	return strings.Contains(html, "calendar-inline__item")
}

func (l ffInlineLayout) Parse(doc *goquery.Document, pc Context) ([]model.RawEvent, error) {
	days := doc.Find(".calendar-inline__day")
	items := doc.Find(".calendar-inline__item")
	if items.Length() == 0 {
		return nil, ErrNoRows
	}

	var out []model.RawEvent
	parseItem := func(day time.Time, hasDay bool) func(*goquery.Selection) {
		return func(item *goquery.Selection) {
			cur := item.AttrOr("data-currency", "")
			if cur == "" {
				cur = item.Find(".calendar-inline__currency").Text()
			}

			parts := cellTexts(item.Find(".calendar-inline__title, .calendar-inline__title ~ span"))
			r := model.RawEvent{
				Source:   l.Source(),
				Layout:   l.Name(),
				Currency: ExtractCurrency(cur),
				Name:     balancedName(parts, 0),
				NativeID: item.AttrOr("data-event-id", ""),
			}

			impactText := item.AttrOr("data-impact", "") + " " + item.Find(".calendar-inline__impact").AttrOr("class", "")
			if imp, ok := model.ParseImpact(item.AttrOr("data-impact", "")); ok {
				r.Impact, r.ImpactExplicit = imp, true
			} else {
				r.Impact, r.ImpactExplicit = impactFromClass(impactText)
			}

			actual := item.Find(".calendar-inline__actual")
			r.Actual = firstNonEmpty(cleanValue(item.AttrOr("data-actual", "")), valueFrom(actual, "data-value"))
			r.Forecast = firstNonEmpty(cleanValue(item.AttrOr("data-forecast", "")), valueFrom(item.Find(".calendar-inline__forecast"), "data-value"))
			r.Previous = firstNonEmpty(cleanValue(item.AttrOr("data-previous", "")), valueFrom(item.Find(".calendar-inline__previous"), "data-value"))
			if r.Actual != "" {
				r.ResultHint = resultHint(actual)
				if r.ResultHint == model.HintNone {
					r.ResultHint = hintFromPhrase(item.AttrOr("data-result", ""))
				}
			}

			r.DetailPath = item.Find("a.calendar-inline__detail").AttrOr("href", "")

			if ts, ok := ParseTimestamp(item.AttrOr("data-timestamp", "")); ok {
				r.Time = &ts
			} else if ts, ok := ParseTimestamp(item.Find("time").AttrOr("datetime", "")); ok {
				r.Time = &ts
			} else if hasDay {
				t := day
				clk := collapse(item.Find(".calendar-inline__time").Text())
				if withTime, ok := withClock(day, clk); ok {
					t = withTime
				}
				r.Time = &t
				r.DateText = day.Format("2006-01-02") + " " + clk
			}

			if keep(&r) {
				out = append(out, r)
			}
		}
	}

	if days.Length() == 0 {
		eachRow(items, l.Name(), parseItem(time.Time{}, false))
		return out, nil
	}
	days.Each(func(_ int, d *goquery.Selection) {
		text := d.AttrOr("data-date", "")
		if text == "" {
			text = d.Find(".calendar-inline__date").Text()
		}
		day, ok := ParseDateText(text, pc.Now)
		eachRow(d.Find(".calendar-inline__item"), l.Name(), parseItem(day, ok))
	})
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
