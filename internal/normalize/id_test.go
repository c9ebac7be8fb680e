package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/econ-calendar/internal/model"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID("USD", "Core CPI", "United States", model.ImpactHigh)
	b := GenerateID(" usd", "core cpi ", "united states", model.ImpactHigh)

	assert.Len(t, a, IDLength)
	assert.Equal(t, a, b, "case and padding do not change the id")
	assert.NotEqual(t, a, GenerateID("USD", "Core CPI", "United States", model.ImpactMedium))
	assert.NotEqual(t, a, GenerateID("EUR", "Core CPI", "Euro Area", model.ImpactHigh))
	assert.Regexp(t, `^[0-9a-f]{16}$`, a)
}

func TestSourceID(t *testing.T) {
	day := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	at := time.Date(2025, 10, 13, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "investing-20251013-1230-usd-core-cpi", SourceID("Investing", day, &at, "USD", "Core CPI"))
	assert.Equal(t, "investing-20251013-allday-jpy-bank-holiday", SourceID("investing", day, nil, "JPY", "Bank Holiday!"))
}

func TestCountry(t *testing.T) {
	info, ok := Country("usd")
	assert.True(t, ok)
	assert.Equal(t, "United States", info.Country)
	assert.Equal(t, "us", info.Flag)

	_, ok = Country("XAU")
	assert.False(t, ok)
}

func TestCurrencyFor(t *testing.T) {
	assert.Equal(t, "EUR", CurrencyFor("Euro Area"))
	assert.Equal(t, "GBP", CurrencyFor("gb"))
	assert.Equal(t, "JPY", CurrencyFor("jpy"))
	assert.Equal(t, "", CurrencyFor("Atlantis"))
	assert.Equal(t, "", CurrencyFor(""))
}
