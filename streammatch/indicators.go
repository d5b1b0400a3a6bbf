package streammatch

import "regexp"

// leagueIndicator pairs a detection pattern with the canonical league code
// it implies, checked in order (first match wins).
//
// The Python source this package is ported from (team_matcher.py's
// extract_raw_matchup) imports LEAGUE_INDICATORS/SPORT_INDICATORS from
// epg.league_detector, but neither dict is actually defined anywhere in
// that module or anywhere else in the retrieval pack — league_detector.py
// only holds strip_team_numbers/strip_accents/normalize_team_name. This
// table is constructed, not ported: it reuses the league-code vocabulary
// already present in normalize.go's rePrefix and model.go, plus the
// obvious league/sport name a stream would actually carry. See DESIGN.md.
type leagueIndicator struct {
	pattern *regexp.Regexp
	league  string
}

var leagueIndicators = []leagueIndicator{
	{regexp.MustCompile(`(?i)\bnfl\b`), "nfl"},
	{regexp.MustCompile(`(?i)\bnba\b`), "nba"},
	{regexp.MustCompile(`(?i)\bnhl\b`), "nhl"},
	{regexp.MustCompile(`(?i)\bmlb\b`), "mlb"},
	{regexp.MustCompile(`(?i)\bmls\b`), "mls"},
	{regexp.MustCompile(`(?i)\bncaaf\b`), "ncaaf"},
	{regexp.MustCompile(`(?i)\bncaaw\b`), "ncaaw"},
	{regexp.MustCompile(`(?i)\bncaab\b`), "ncaab"},
	{regexp.MustCompile(`(?i)\bncaam\b`), "ncaam"},
	{regexp.MustCompile(`(?i)\b(epl|premier\s*league)\b`), "eng.1"},
	{regexp.MustCompile(`(?i)\bufc\b|\bfight\s*night\b`), "ufc"},
}

type sportIndicator struct {
	pattern *regexp.Regexp
	sport   string
}

var sportIndicators = []sportIndicator{
	{regexp.MustCompile(`(?i)\b(college\s+)?football\b`), "football"},
	{regexp.MustCompile(`(?i)\b(college\s+)?basketball\b`), "basketball"},
	{regexp.MustCompile(`(?i)\bhockey\b`), "hockey"},
	{regexp.MustCompile(`(?i)\bbaseball\b`), "baseball"},
	{regexp.MustCompile(`(?i)\bsoccer\b`), "soccer"},
	{regexp.MustCompile(`(?i)\bmma\b`), "mma"},
}

// singleEventKeywords names leagues configured as "one event per day"
// (spec.md §4.5) and the stream-name keyword(s) that identify a candidate
// for that path, without needing team names to resolve.
var singleEventKeywords = map[string][]string{
	"ufc": {"ufc", "fight night"},
}

// detectIndicators scans text — run before the lexical scrub strips league
// prefixes out — for a league or sport hint, league taking precedence per
// spec.md §4.5 Tier 1/Tier 2.
func detectIndicators(text string) (league, sport string) {
	for _, li := range leagueIndicators {
		if li.pattern.MatchString(text) {
			return li.league, ""
		}
	}
	for _, si := range sportIndicators {
		if si.pattern.MatchString(text) {
			return "", si.sport
		}
	}
	return "", ""
}

// singleEventKeywordHit reports whether text names one of league's
// single-event keywords.
func singleEventKeywordHit(text, league string) bool {
	for _, kw := range singleEventKeywords[league] {
		if regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw)).MatchString(text) {
			return true
		}
	}
	return false
}
