package model

// PinnedEventReference is a user-held pointer to a canonical event. Older
// references carry no EventID and are matched by name, impact and currency.
type PinnedEventReference struct {
	Event    string  `json:"event"`
	EventID  *string `json:"event_id,omitempty"`
	Impact   Impact  `json:"impact"`
	Currency string  `json:"currency"`
	Country  *string `json:"country,omitempty"`
	FlagCode *string `json:"flag_code,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// TradeEventSnapshot is the event copy embedded in a journal trade entry.
type TradeEventSnapshot struct {
	Name     string `json:"name"`
	Impact   string `json:"impact"`
	Currency string `json:"currency"`
}
