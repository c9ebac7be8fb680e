// Package metadata supplies per-indicator impact and direction. Direction
// ("is a higher actual than forecast good?") is learned from stored
// outcomes; pairs without usable history fall back to a per-event detail
// page.
package metadata

import (
	"github.com/sells-group/econ-calendar/internal/classify"
	"github.com/sells-group/econ-calendar/internal/model"
)

// Infer derives metadata per (event_name, currency) from historical rows.
// Rows are consulted in the order given (most recent first). The first row
// seen for a pair supplies its impact; the first row that yields a
// direction fixes it, and later rows never override a known direction.
func Infer(history []model.Event) map[model.PairKey]model.Metadata {
	out := make(map[model.PairKey]model.Metadata)
	for _, e := range history {
		if !e.Impact.Valid() {
			continue
		}
		key := model.PairKey{EventName: e.EventName, Currency: e.Currency}
		dir := DirectionFrom(e)

		cur, seen := out[key]
		switch {
		case !seen:
			out[key] = model.Metadata{Impact: e.Impact, Direction: dir, FromHistory: true}
		case cur.Direction == model.DirectionUnknown && dir != model.DirectionUnknown:
			cur.Direction = dir
			out[key] = cur
		}
	}
	return out
}

// DirectionFrom reads a direction off one stored outcome. A row needs an
// actual and forecast that differ numerically and a good or bad result.
func DirectionFrom(e model.Event) model.Direction {
	if e.ActualResultType != model.ResultGood && e.ActualResultType != model.ResultBad {
		return model.DirectionUnknown
	}
	above, ok := classify.ActualAboveForecast(e.Actual(), e.Forecast())
	if !ok {
		return model.DirectionUnknown
	}
	good := e.ActualResultType == model.ResultGood
	return model.DirectionOf(above == good)
}
