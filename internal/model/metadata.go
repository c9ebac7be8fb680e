package model

// Direction says whether a higher actual than forecast is favorable for an
// indicator.
type Direction int

const (
	DirectionUnknown Direction = iota
	HigherIsBetter
	LowerIsBetter
)

func (d Direction) String() string {
	switch d {
	case HigherIsBetter:
		return "higher_is_better"
	case LowerIsBetter:
		return "lower_is_better"
	default:
		return "unknown"
	}
}

// DirectionOf converts a bool into a known Direction.
func DirectionOf(higherIsBetter bool) Direction {
	if higherIsBetter {
		return HigherIsBetter
	}
	return LowerIsBetter
}

// PairKey identifies an indicator across releases.
type PairKey struct {
	EventName string
	Currency  string
}

// Metadata is the derived per-indicator classification. It lives only for
// one pipeline invocation and is never persisted as its own row.
type Metadata struct {
	Impact    Impact
	Direction Direction
	// FromHistory is false when the values came from a detail page or a
	// default.
	FromHistory bool
	// Hint is the colour marker read from a detail page, if any.
	Hint ResultHint
}
