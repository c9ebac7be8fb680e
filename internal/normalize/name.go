// Package normalize turns parser rows into canonical event records: it
// cleans names, derives identities and attaches country metadata.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	spaceRe       = regexp.MustCompile(`\s+`)
	parenRe       = regexp.MustCompile(`\([^()]*\)`)
	openParenRe   = regexp.MustCompile(`\([^()]*$`)
	leadingJunkRe = regexp.MustCompile(`^[^\p{L}\p{N}]+`)
	trailJunkRe   = regexp.MustCompile(`[^\p{L}\p{N}]+$`)

	months = `(?:jan|feb|mar|apr|may|jun|jul|aug|sept?|oct|nov|dec)`

	// Date-like suffixes left by weekly or monthly re-releases.
	suffixRes = []*regexp.Regexp{
		regexp.MustCompile(`\s+(?:19|20)\d{2}$`),
		regexp.MustCompile(`(?i)\s+` + months + `\s?\d{1,2}$`),
		regexp.MustCompile(`(?i)\s+\d{1,2}\s?` + months + `$`),
		regexp.MustCompile(`(?i)\s+` + months + `$`),
		regexp.MustCompile(`\s+\d{1,2}/\d{1,2}(?:/\d{2,4})?$`),
	}
)

// CleanName produces the base name of an event: collapsed whitespace, no
// parenthetical qualifiers, no surrounding punctuation, first letter upper
// case and no trailing date-like suffix. CleanName(CleanName(x)) ==
// CleanName(x).
func CleanName(raw string) string {
	s := collapse(raw)

	for {
		next := parenRe.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = openParenRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ")", " ")
	s = trimJunk(collapse(s))

	for {
		next := stripSuffix(s)
		if next == s {
			break
		}
		s = next
	}

	return upperFirst(s)
}

func stripSuffix(s string) string {
	for _, re := range suffixRes {
		if loc := re.FindStringIndex(s); loc != nil {
			trimmed := trimJunk(s[:loc[0]])
			if trimmed == "" {
				return s
			}
			return trimmed
		}
	}
	return s
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func trimJunk(s string) string {
	s = leadingJunkRe.ReplaceAllString(s, "")
	s = trailJunkRe.ReplaceAllString(s, "")
	return s
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
