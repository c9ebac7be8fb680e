package normalize

import (
	"strings"
	"time"

	"github.com/sells-group/econ-calendar/internal/classify"
	"github.com/sells-group/econ-calendar/internal/model"
)

// Normalize converts a parser row into a canonical event. fetchedAt stamps
// LastUpdated and supplies the date for rows without any time information.
func Normalize(raw model.RawEvent, fetchedAt time.Time, sourceURL string) model.Event {
	name := CleanName(raw.Name)
	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))

	impact := raw.Impact
	if !impact.Valid() {
		impact = model.ImpactLow
	}

	ev := model.Event{
		Currency:         currency,
		EventName:        name,
		Impact:           impact,
		ActualValue:      model.StringPtr(raw.Actual),
		ForecastValue:    model.StringPtr(raw.Forecast),
		PreviousValue:    model.StringPtr(raw.Previous),
		ActualResultType: classify.FromHint(raw.ResultHint),
		DataSource:       raw.Source,
		SourceURL:        model.StringPtr(sourceURL),
		LastUpdated:      fetchedAt.UTC(),
	}

	if raw.Time != nil {
		t := raw.Time.UTC()
		ev.TimeUTC = &t
		unix := t.Unix()
		ev.UnixTimestamp = &unix
		ev.EventDate = truncateDay(t)
	} else {
		ev.EventDate = truncateDay(fetchedAt.UTC())
	}

	var countryName string
	if info, ok := Country(currency); ok {
		countryName = info.Country
		ev.Country = model.StringPtr(info.Country)
		ev.FlagCode = model.StringPtr(info.Flag)
	}

	if raw.NativeID != "" {
		ev.ExternalID = SourceID(raw.Source, ev.EventDate, ev.TimeUTC, currency, name)
	} else {
		ev.ExternalID = GenerateID(currency, name, countryName, impact)
	}
	return ev
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
