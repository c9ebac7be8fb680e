package normalize

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

// CountryInfo is the display metadata attached to a currency.
type CountryInfo struct {
	Country string `yaml:"country"`
	Flag    string `yaml:"flag"`
}

var countries = mustLoadCountries(countriesYAML)

func mustLoadCountries(data []byte) map[string]CountryInfo {
	m := make(map[string]CountryInfo)
	if err := yaml.Unmarshal(data, &m); err != nil {
		panic("normalize: bad countries table: " + err.Error())
	}
	return m
}

// Country returns display metadata for a currency code.
func Country(currency string) (CountryInfo, bool) {
	info, ok := countries[strings.ToUpper(strings.TrimSpace(currency))]
	return info, ok
}

// CurrencyFor resolves a country name, two-letter flag code or currency code
// to a currency code. Returns "" when nothing matches.
func CurrencyFor(country string) string {
	c := strings.TrimSpace(country)
	if c == "" {
		return ""
	}
	if _, ok := countries[strings.ToUpper(c)]; ok {
		return strings.ToUpper(c)
	}
	for cur, info := range countries {
		if strings.EqualFold(info.Country, c) || strings.EqualFold(info.Flag, c) {
			return cur
		}
	}
	return ""
}
