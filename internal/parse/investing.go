package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/econ-calendar/internal/model"
)

// invTableLayout parses the classic economicCalendarData table.
type invTableLayout struct{}

func (invTableLayout) Name() string   { return "investing_table" }
func (invTableLayout) Source() string { return SourceInvesting }

func (invTableLayout) Detect(html string) bool {
	return strings.Contains(html, "economicCalendarData") || strings.Contains(html, "js-event-item")
}

func (l invTableLayout) Parse(doc *goquery.Document, pc Context) ([]model.RawEvent, error) {
	rows := doc.Find("#economicCalendarData tr")
	if rows.Length() == 0 {
		rows = doc.Find("tr.js-event-item")
	}
	if rows.Length() == 0 {
		return nil, ErrNoRows
	}

	var (
		out    []model.RawEvent
		day    time.Time
		hasDay bool
	)
	eachRow(rows, l.Name(), func(row *goquery.Selection) {
		if row.Find("td.theDay").Length() > 0 || row.HasClass("theDay") {
			if d, ok := ParseDateText(row.Text(), pc.Now); ok {
				day, hasDay = d, true
			}
			return
		}
		if !row.HasClass("js-event-item") {
			return
		}

		cells := row.Children().Filter("td")
		texts := cellTexts(cells)
		eventCell := row.Find("td.event").First()
		nameIdx := cells.IndexOfSelection(eventCell)
		if nameIdx < 0 {
			// Fixed position: time, currency, importance, event.
			nameIdx = 3
		}

		r := model.RawEvent{
			Source:   l.Source(),
			Layout:   l.Name(),
			Currency: ExtractCurrency(row.Find("td.flagCur").Text()),
			Name:     balancedName(texts, nameIdx),
			NativeID: nativeInvestingID(row),
		}

		sentiment := row.Find("td.sentiment")
		r.Impact, r.ImpactExplicit = investingImpact(sentiment)

		actual := row.Find("td.act")
		r.Actual = valueFrom(actual, "data-value")
		r.Forecast = valueFrom(row.Find("td.fore"), "data-value")
		r.Previous = valueFrom(row.Find("td.prev"), "data-value")
		if r.Actual != "" {
			r.ResultHint = resultHint(actual)
		}

		r.DetailPath = eventCell.Find("a").AttrOr("href", "")

		if ts, ok := ParseTimestamp(row.AttrOr("data-event-datetime", "")); ok {
			r.Time = &ts
		} else if hasDay {
			t := day
			clk := collapse(row.Find("td.time").Text())
			if withTime, ok := withClock(day, clk); ok {
				t = withTime
			}
			r.Time = &t
			r.DateText = day.Format("2006-01-02") + " " + clk
		}

		if keep(&r) {
			out = append(out, r)
		}
	})
	return out, nil
}

func nativeInvestingID(row *goquery.Selection) string {
	if id, ok := row.Attr("id"); ok && strings.HasPrefix(id, "eventRowId_") {
		return strings.TrimPrefix(id, "eventRowId_")
	}
	return row.AttrOr("event_attr_id", "")
}

// investingImpact reads the bull-icon importance cell. Each filled icon is
// one severity step.
func investingImpact(cell *goquery.Selection) (model.Impact, bool) {
	if cell.Length() == 0 {
		return model.ImpactLow, false
	}
	if imp, ok := impactFromClass(cell.AttrOr("data-img_key", "") + " " + cell.AttrOr("title", "")); ok {
		return imp, true
	}
	switch cell.Find("i.grayFullBullishIcon").Length() {
	case 3:
		return model.ImpactHigh, true
	case 2:
		return model.ImpactMedium, true
	case 1:
		return model.ImpactLow, true
	}
	return model.ImpactLow, false
}

// invInlineLayout parses the newer div-based list where each row is tagged
// with data-test attributes.
type invInlineLayout struct{}

func (invInlineLayout) Name() string   { return "investing_inline" }
func (invInlineLayout) Source() string { return SourceInvesting }

func (invInlineLayout) Detect(html string) bool {
	return strings.Contains(html, `data-test="economic-calendar-row"`)
}

func (l invInlineLayout) Parse(doc *goquery.Document, pc Context) ([]model.RawEvent, error) {
	items := doc.Find(`[data-test="economic-calendar-row"]`)
	if items.Length() == 0 {
		return nil, ErrNoRows
	}

	var out []model.RawEvent
	eachRow(items, l.Name(), func(item *goquery.Selection) {
		parts := cellTexts(item.Find(`[data-test="row-event-name"], [data-test="row-event-name"] ~ div`))
		r := model.RawEvent{
			Source:   l.Source(),
			Layout:   l.Name(),
			Currency: ExtractCurrency(item.Find(`[data-test="row-currency"]`).Text()),
			Name:     balancedName(parts, 0),
			NativeID: item.AttrOr("data-event-id", ""),
		}

		imp := item.Find(`[data-test="row-importance"]`)
		if n, err := strconv.Atoi(imp.AttrOr("data-importance", "")); err == nil {
			r.Impact, r.ImpactExplicit = model.ParseImpact(strconv.Itoa(n))
		} else {
			r.Impact, r.ImpactExplicit = impactFromClass(imp.AttrOr("class", "") + " " + imp.AttrOr("title", ""))
		}

		actual := item.Find(`[data-test="row-actual"]`)
		r.Actual = valueFrom(actual, "data-value")
		r.Forecast = valueFrom(item.Find(`[data-test="row-forecast"]`), "data-value")
		r.Previous = valueFrom(item.Find(`[data-test="row-previous"]`), "data-value")
		if r.Actual != "" {
			r.ResultHint = resultHint(actual)
		}

		r.DetailPath = item.Find(`a[data-test="row-event-link"]`).AttrOr("href", "")

		if ts, ok := ParseTimestamp(item.AttrOr("data-datetime", "")); ok {
			r.Time = &ts
		} else if ts, ok := ParseTimestamp(item.Find("time").AttrOr("datetime", "")); ok {
			r.Time = &ts
		} else {
			text := item.AttrOr("data-date", "")
			if d, ok := ParseDateText(text, pc.Now); ok {
				t := d
				clk := collapse(item.Find(`[data-test="row-time"]`).Text())
				if withTime, ok := withClock(d, clk); ok {
					t = withTime
				}
				r.Time = &t
				r.DateText = text + " " + clk
			}
		}

		if keep(&r) {
			out = append(out, r)
		}
	})
	return out, nil
}
