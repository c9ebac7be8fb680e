package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/econ-calendar/internal/model"
)

// IDLength is the number of hex characters kept from the digest. Truncation
// admits a small collision probability, accepted for row width.
const IDLength = 16

// GenerateID hashes currency|name|country|impact (lower-cased) into a compact
// stable identifier.
func GenerateID(currency, name, country string, impact model.Impact) string {
	key := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(currency),
		strings.TrimSpace(name),
		strings.TrimSpace(country),
		string(impact),
	}, "|"))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:IDLength]
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// SourceID builds the composite identifier used for rows that carry a native
// source id: source, date, time, currency and slugged name.
func SourceID(source string, date time.Time, at *time.Time, currency, name string) string {
	clock := "allday"
	if at != nil {
		clock = at.UTC().Format("1504")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	return strings.Join([]string{
		strings.ToLower(source),
		date.Format("20060102"),
		clock,
		strings.ToLower(currency),
		slug,
	}, "-")
}
