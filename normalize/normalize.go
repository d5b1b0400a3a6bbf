// Package normalize turns a raw IPTV stream name into a form the classifier
// and team matcher can work with: mojibake repair, prefix/time/date
// stripping, metadata scrubbing, and name-variant canonicalization. Every
// rule here, including the exact mojibake table, the channel-prefix regex,
// and the US-state-parenthetical exception, is ported 1:1 from
// original_source/epg/team_matcher.py's fix_mojibake and _normalize_text.
package normalize

import (
	"regexp"
	"strings"
)

// mojibakeTable fixes UTF-8 bytes that were mis-decoded as Latin-1/CP1252.
// Order matters: the bare "Ã" → "Á" rule must run last so it doesn't eat
// the two-byte sequences above it first.
var mojibakeTable = []struct{ wrong, right string }{
	{"Ã©", "é"},
	{"Ã¨", "è"},
	{"Ã±", "ñ"},
	{"Ã¼", "ü"},
	{"Ã¶", "ö"},
	{"Ã¤", "ä"},
	{"Ã³", "ó"},
	{"Ã¡", "á"},
	{"Ã­", "í"},
	{"Ãº", "ú"},
	{"Ã§", "ç"},
	{"Ã£", "ã"},
	{"Ãµ", "õ"},
	{"Ã", "Á"},
}

// FixMojibake repairs double-encoded UTF-8 byte sequences in text.
func FixMojibake(text string) string {
	if text == "" {
		return text
	}
	for _, m := range mojibakeTable {
		text = strings.ReplaceAll(text, m.wrong, m.right)
	}
	return text
}

// CityNameVariants maps a stream-name spelling of a city or club to the
// provider's canonical spelling. One-way: variant → canonical, never back.
var CityNameVariants = map[string]string{
	"münchen":          "munich",
	"munchen":          "munich",
	"köln":             "cologne",
	"koln":             "cologne",
	"nuremberg":        "nürnberg",
	"nurnberg":         "nürnberg",
	"dusseldorf":       "düsseldorf",
	"furth":            "fürth",
	"monchengladbach":  "mönchengladbach",
	"munster":          "münster",
	"hertha bsc":       "hertha berlin",
	"hamburger sv":     "hamburg sv",
	"sv werder bremen": "werder bremen",
	"inter milan":      "internazionale",
	"inter":            "internazionale",
	"albany":           "ualbany",
	"st leo":           "saint leo",
	"st. leo":          "saint leo",
}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true, "WI": true, "WY": true, "DC": true,
}

var (
	reParens       = regexp.MustCompile(`\(([^)]*)\)`)
	rePrefix       = regexp.MustCompile(`(?i)^(nfl|nba|nhl|mlb|ncaa[mfwb]?|mls|epl|premier\s*league|soccer)\s*:?\s*`)
	reGamePass     = regexp.MustCompile(`(?i)game\s*pass\s*\d*:?\s*`)
	reOnPrefix     = regexp.MustCompile(`(?i)^on\s+`)
	reTimeMinutes  = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(am|pm|et|est|pt|pst|ct|cst|mt|mst)?\s*`)
	reTimeHourOnly = regexp.MustCompile(`(?i)\b\d{1,2}\s*(am|pm)\b\s*`)
	reTZAbbrev     = regexp.MustCompile(`(?i)\b(et|est|pt|pst|ct|cst|mt|mst|gmt|utc)\b`)
	reDateUS       = regexp.MustCompile(`\d{1,2}/\d{1,2}(/\d{2,4})?\s*`)
	reDateISO      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s*`)
	reDateMonth    = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\s*\d{1,2}\s*`)
	reChannelPipe  = regexp.MustCompile(`\|\s*\d+\s*[-:]?\s*`)
	reChannelLead  = regexp.MustCompile(`^\d+\s*[-:]?\s*`)
	reRanking      = regexp.MustCompile(`#?\d+\s+([a-z])`)
	reSpecialChars = regexp.MustCompile(`[|:\-#\[\]]+`)
	rePeriods      = regexp.MustCompile(`\.`)
	reTrailingAt   = regexp.MustCompile(`\s*@\s*$`)
)

// removeNonStateParens strips parenthetical content from text, except a
// two-letter US state abbreviation (e.g. keeps "Miami (OH)" apart from
// plain "Miami" while discarding "(HD)", "(Feed 2)", and similar noise).
func removeNonStateParens(text string) string {
	return reParens.ReplaceAllStringFunc(text, func(match string) string {
		content := strings.ToUpper(strings.TrimSpace(reParens.FindStringSubmatch(match)[1]))
		if usStates[content] {
			return match
		}
		return ""
	})
}

// Text normalizes a raw stream-name fragment for matching: lowercase,
// quote/underscore cleanup, non-state parenthetical removal, league/channel
// prefix stripping, time/date/ranking removal, and whitespace collapse.
// Ported from team_matcher.py's _normalize_text.
func Text(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, "`", "'")
	text = strings.ReplaceAll(text, "_", " ")

	text = removeNonStateParens(text)

	text = rePrefix.ReplaceAllString(text, "")
	text = reGamePass.ReplaceAllString(text, "")
	text = reOnPrefix.ReplaceAllString(text, "")

	text = reTimeMinutes.ReplaceAllString(text, "")
	text = reTimeHourOnly.ReplaceAllString(text, "")
	text = reTZAbbrev.ReplaceAllString(text, "")

	text = reDateUS.ReplaceAllString(text, "")
	text = reDateISO.ReplaceAllString(text, "")
	text = reDateMonth.ReplaceAllString(text, "")

	text = reChannelPipe.ReplaceAllString(text, "")
	text = reChannelLead.ReplaceAllString(text, "")

	text = reRanking.ReplaceAllString(text, "$1")

	text = reSpecialChars.ReplaceAllString(text, " ")
	text = rePeriods.ReplaceAllString(text, "")
	text = reTrailingAt.ReplaceAllString(text, "")

	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// CanonicalizeCityNames rewrites any CityNameVariants match found as a whole
// word or phrase within an already-normalized (lowercase) name.
func CanonicalizeCityNames(normalized string) string {
	for variant, canonical := range CityNameVariants {
		normalized = replaceWholeWord(normalized, variant, canonical)
	}
	return normalized
}

func replaceWholeWord(text, word, replacement string) string {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.ReplaceAllString(text, replacement)
}
