// Date/time extraction and the richer stream-name pipeline that keeps them
// instead of discarding them. Ported from team_matcher.py's
// extract_date_from_text / extract_time_from_text (the four-pattern date
// cascade and the two-pattern time cascade) and _mask_times_in_text /
// _strip_prefix_at_colon / _normalize_for_stream (mask-then-strip-before-
// last-colon, so a metadata prefix like "NCAAB 01:" is removed without
// eating a real kickoff time).
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/unyeco/sportguide/classify"
)

var (
	reCountryPrefix = regexp.MustCompile(`(?i)^\(?\s*(uk|us|usa|ca|au)\b\s*\)?[\s:|]*`)
	reProviderParen = regexp.MustCompile(`(?i)\([^)]*(?:sky|dazn|peacock|tsn|sportsnet|espn|fox|nbc|cbs|abc)[^)]*\)`)

	reTime12Min = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	reTime12Hr  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	reTime24    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)(?::\d{2})?\b`)

	reDateISOExtract = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDateUSYear     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	reDateUSNoYear   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	reDateMonthExtract = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})\b`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// maskSpan blanks out text[start:end) with underscores so later passes keep
// seeing the same byte offsets the original text had.
func maskSpan(text string, start, end int) string {
	return text[:start] + strings.Repeat("_", end-start) + text[end:]
}

func to24Hour(hour int, meridiem string) int {
	meridiem = strings.ToLower(meridiem)
	if meridiem == "am" {
		if hour == 12 {
			return 0
		}
		return hour
	}
	if hour != 12 {
		return hour + 12
	}
	return hour
}

// extractTime finds the first clock-time token in text (12-hour-with-
// minutes, then 12-hour-hour-only, then 24-hour) and returns the masked
// text plus the time of day it denotes. Ported from extract_time_from_text.
func extractTime(text string) (masked string, when *time.Time, found bool) {
	if loc := reTime12Min.FindStringSubmatchIndex(text); loc != nil {
		hour, _ := strconv.Atoi(text[loc[2]:loc[3]])
		minute, _ := strconv.Atoi(text[loc[4]:loc[5]])
		hour = to24Hour(hour, text[loc[6]:loc[7]])
		t := time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	if loc := reTime12Hr.FindStringSubmatchIndex(text); loc != nil {
		hour, _ := strconv.Atoi(text[loc[2]:loc[3]])
		hour = to24Hour(hour, text[loc[4]:loc[5]])
		t := time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	if loc := reTime24.FindStringSubmatchIndex(text); loc != nil {
		hour, _ := strconv.Atoi(text[loc[2]:loc[3]])
		minute, _ := strconv.Atoi(text[loc[4]:loc[5]])
		t := time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	return text, nil, false
}

// rollForward advances a year-less date guess to next year when it would
// otherwise land more than 180 days in the past, matching
// extract_date_from_text's handling of e.g. "Nov 30" parsed in February.
func rollForward(guess, now time.Time) time.Time {
	if now.Sub(guess) > 180*24*time.Hour {
		return guess.AddDate(1, 0, 0)
	}
	return guess
}

// extractDate finds the first date token in text (ISO, then US-with-year,
// then US-without-year, then a text month name) and returns the masked
// text plus the date it denotes. Ported from extract_date_from_text.
func extractDate(text string, now time.Time) (masked string, when *time.Time, found bool) {
	if loc := reDateISOExtract.FindStringSubmatchIndex(text); loc != nil {
		y, _ := strconv.Atoi(text[loc[2]:loc[3]])
		mo, _ := strconv.Atoi(text[loc[4]:loc[5]])
		d, _ := strconv.Atoi(text[loc[6]:loc[7]])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	if loc := reDateUSYear.FindStringSubmatchIndex(text); loc != nil {
		mo, _ := strconv.Atoi(text[loc[2]:loc[3]])
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		y, _ := strconv.Atoi(text[loc[6]:loc[7]])
		if y < 100 {
			y += 2000
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	if loc := reDateUSNoYear.FindStringSubmatchIndex(text); loc != nil {
		mo, _ := strconv.Atoi(text[loc[2]:loc[3]])
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		t := rollForward(time.Date(now.Year(), time.Month(mo), d, 0, 0, 0, 0, time.UTC), now)
		return maskSpan(text, loc[0], loc[1]), &t, true
	}
	if loc := reDateMonthExtract.FindStringSubmatchIndex(text); loc != nil {
		name := strings.ToLower(text[loc[2]:loc[3]])
		d, _ := strconv.Atoi(text[loc[4]:loc[5]])
		if mo, ok := monthNames[name]; ok {
			t := rollForward(time.Date(now.Year(), mo, d, 0, 0, 0, 0, time.UTC), now)
			return maskSpan(text, loc[0], loc[1]), &t, true
		}
	}
	return text, nil, false
}

// stripPrefixAtColon removes everything up to and including the last colon
// that precedes the game separator, using maskedText (time/date tokens
// blanked out, same length as text) to tell a metadata colon from one
// sitting inside a time. Ported from _strip_prefix_at_colon.
func stripPrefixAtColon(text, maskedText string) string {
	_, sepPos := classify.FindSeparator(text)
	if sepPos <= 0 {
		return text
	}
	colonPos := strings.LastIndex(maskedText[:sepPos], ":")
	if colonPos < 0 {
		return text
	}
	return strings.TrimSpace(text[colonPos+1:])
}

// stripExceptionKeywords removes every configured keyword substring
// (case-insensitive) from text, e.g. a language tag like "En Español" that
// would otherwise be mistaken for part of a team name.
func stripExceptionKeywords(text string, keywords []string) string {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		text = regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)).ReplaceAllString(text, " ")
	}
	return strings.Join(strings.Fields(text), " ")
}

// ForStream runs the full pipeline spec.md §4.2 describes: mojibake repair,
// country/provider-prefix strip, time/date masking (captured rather than
// discarded), metadata-colon strip, exception-keyword strip, the existing
// lexical scrub (Text), and city-name canonicalization. Ported from
// _normalize_for_stream, with extract_date_from_text/extract_time_from_text
// folded into the masking step so Tier 3a/3b get real values instead of the
// original's separate, never-reattached extraction pass.
func ForStream(raw string, exceptionKeywords []string, now time.Time) (cleaned string, gameDate *time.Time, gameTime *time.Time) {
	text := FixMojibake(raw)
	text = reCountryPrefix.ReplaceAllString(text, "")
	text = reProviderParen.ReplaceAllString(text, "")

	masked, gameTime, _ := extractTime(text)
	masked, gameDate, _ = extractDate(masked, now)

	text = stripPrefixAtColon(text, masked)
	text = stripExceptionKeywords(text, exceptionKeywords)

	cleaned = CanonicalizeCityNames(Text(text))
	return cleaned, gameDate, gameTime
}
