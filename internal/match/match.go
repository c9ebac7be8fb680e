// Package match associates user-held event references with canonical
// calendar events across data shapes. Every matcher compares base names
// (see normalize.CleanName) case-insensitively.
package match

import (
	"strings"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/normalize"
)

// BaseName returns the lower-cased base name used for comparisons.
func BaseName(name string) string {
	return strings.ToLower(normalize.CleanName(name))
}

// BaseNameMatch reports whether a and b share a base name.
func BaseNameMatch(a, b string) bool {
	return BaseName(a) == BaseName(b)
}

func sameImpact(a, b model.Impact) bool {
	return strings.EqualFold(string(a), string(b))
}

func sameCurrency(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// identityMatch is the shared name+impact+currency rule.
func identityMatch(nameA string, impactA model.Impact, currencyA string, nameB string, impactB model.Impact, currencyB string) bool {
	return sameCurrency(currencyA, currencyB) &&
		sameImpact(impactA, impactB) &&
		BaseNameMatch(nameA, nameB)
}

// MatchPinned reports whether pin refers to ev. A pin carrying an event id
// matches on the id alone; older pins fall back to name, impact and
// currency.
func MatchPinned(pin model.PinnedEventReference, ev model.Event) bool {
	if pin.EventID != nil && *pin.EventID != "" {
		return *pin.EventID == ev.ExternalID
	}
	return identityMatch(pin.Event, pin.Impact, pin.Currency, ev.EventName, ev.Impact, ev.Currency)
}

// MatchLive reports whether two calendar events are the same indicator
// release. Ids decide when both sides have one.
func MatchLive(live, ev model.Event) bool {
	if live.ExternalID != "" && ev.ExternalID != "" && live.ExternalID == ev.ExternalID {
		return true
	}
	return identityMatch(live.EventName, live.Impact, live.Currency, ev.EventName, ev.Impact, ev.Currency)
}

// MatchTradeSnapshot reports whether the event copy embedded in a trade
// refers to ev. Snapshot impacts are free text and go through
// model.ParseImpact.
func MatchTradeSnapshot(snap model.TradeEventSnapshot, ev model.Event) bool {
	impact, ok := model.ParseImpact(snap.Impact)
	if !ok {
		return false
	}
	return identityMatch(snap.Name, impact, snap.Currency, ev.EventName, ev.Impact, ev.Currency)
}

// FindPinned returns the first pin referring to ev.
func FindPinned(pins []model.PinnedEventReference, ev model.Event) (*model.PinnedEventReference, bool) {
	for i := range pins {
		if MatchPinned(pins[i], ev) {
			return &pins[i], true
		}
	}
	return nil, false
}

// FindEvent returns the first event pin refers to.
func FindEvent(events []model.Event, pin model.PinnedEventReference) (*model.Event, bool) {
	for i := range events {
		if MatchPinned(pin, events[i]) {
			return &events[i], true
		}
	}
	return nil, false
}
