// Package teammatch fuzzy-matches a normalized stream-name fragment against
// a league's team roster. The tiered-match algorithm (exact > input-is-
// prefix-of-search-name > whole-word > search-name-is-prefix-of-input) is
// ported from original_source/epg/team_matcher.py's _find_team_in_text and
// _find_all_matching_teams. Accent stripping is ported from
// original_source/epg/league_detector.py's strip_accents (NFD decomposition
// + combining-mark removal), using golang.org/x/text/unicode/norm instead of
// Python's unicodedata. Jaro-Winkler, used only as a secondary disambiguation
// scorer when the tiered match is ambiguous, is ported from the teacher's
// services/sports/channel_matcher.go (yourflock-roost).
package teammatch

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/unyeco/sportguide/model"
)

// Candidate is one team's searchable name set, built once per league
// refresh by leaguecache and reused across every stream match.
type Candidate struct {
	Team           model.Team
	PrimaryNames   []string // nickname, displayName, abbreviation, user aliases
	SecondaryNames []string // location-only names, lower priority than primary
}

// StripAccents removes combining diacritical marks via NFD decomposition,
// so "Nürnberg" and "Nurnberg" compare equal. Ported from strip_accents.
func StripAccents(s string) string {
	t := norm.NFD.String(s)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var reNumbers = regexp.MustCompile(`\b\d+\b`)

// StripNumbers removes standalone numeric tokens (jersey numbers, rankings
// that survived normalization) from a team name. Ported from
// league_detector.py's strip_team_numbers.
func StripNumbers(s string) string {
	return strings.Join(strings.Fields(reNumbers.ReplaceAllString(s, "")), " ")
}

// Find returns the single best-matching candidate for text, or (Candidate{},
// false) if none of the tiered rules produce a match. Mirrors
// _find_team_in_text's four-tier scan with longest-match-wins per tier.
func Find(text string, candidates []Candidate) (Candidate, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Candidate{}, false
	}

	var (
		inputPrefixMatch Candidate
		inputPrefixLen   int
		wordMatch        Candidate
		wordMatchLen     int
		namePrefixMatch  Candidate
		namePrefixLen    int
		haveInputPrefix  bool
		haveWordMatch    bool
		haveNamePrefix   bool
	)

	considerPrimary := func(c Candidate, name string) (exact bool) {
		searchLower := strings.ToLower(name)
		if searchLower == "" {
			return false
		}
		if text == searchLower {
			return true
		}
		if strings.HasPrefix(searchLower, text) && len(text) >= 3 {
			if len(text) > inputPrefixLen {
				inputPrefixMatch, inputPrefixLen, haveInputPrefix = c, len(text), true
			}
		}
		if len(searchLower) >= 3 && wholeWordMatch(text, searchLower) {
			if len(searchLower) > wordMatchLen {
				wordMatch, wordMatchLen, haveWordMatch = c, len(searchLower), true
			}
		}
		if strings.HasPrefix(text, searchLower) && len(searchLower) >= 3 {
			if len(searchLower) > namePrefixLen {
				namePrefixMatch, namePrefixLen, haveNamePrefix = c, len(searchLower), true
			}
		}
		return false
	}

	considerSecondary := func(c Candidate, name string) (exact bool) {
		searchLower := strings.ToLower(name)
		if searchLower == "" {
			return false
		}
		if text == searchLower {
			return true
		}
		if len(searchLower) >= 3 && wholeWordMatch(text, searchLower) {
			if len(searchLower) > wordMatchLen && !haveInputPrefix {
				wordMatch, wordMatchLen, haveWordMatch = c, len(searchLower), true
			}
		}
		return false
	}

	for _, c := range candidates {
		for _, n := range c.PrimaryNames {
			if considerPrimary(c, n) {
				return c, true
			}
		}
	}
	for _, c := range candidates {
		for _, n := range c.SecondaryNames {
			if considerSecondary(c, n) {
				return c, true
			}
		}
	}

	switch {
	case haveInputPrefix && inputPrefixLen >= wordMatchLen:
		return inputPrefixMatch, true
	case haveWordMatch && wordMatchLen > namePrefixLen:
		return wordMatch, true
	case haveInputPrefix:
		return inputPrefixMatch, true
	case haveWordMatch:
		return wordMatch, true
	case haveNamePrefix:
		return namePrefixMatch, true
	default:
		return Candidate{}, false
	}
}

func wholeWordMatch(text, word string) bool {
	pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return pattern.MatchString(text)
}

// FindAll returns up to maxResults candidates matching text, ranked best
// first, for use when Find's single best guess needs disambiguation against
// a second constraint (e.g. an opponent team or a kickoff time). Ported
// from _find_all_matching_teams's tier scoring (4=exact, 3=input-prefix,
// 2=word-boundary, 1=name-prefix), using Jaro-Winkler as the final tie
// break within a tier.
func FindAll(text string, candidates []Candidate, maxResults int) []Candidate {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	var results []scoredCandidate
	seen := map[string]bool{}

	for _, c := range candidates {
		if seen[c.Team.ID] {
			continue
		}
		best := scoredCandidate{c: c}
		for _, n := range append(append([]string{}, c.PrimaryNames...), c.SecondaryNames...) {
			searchLower := strings.ToLower(n)
			if searchLower == "" {
				continue
			}
			var tier, length int
			switch {
			case text == searchLower:
				tier, length = 4, len(searchLower)
			case strings.HasPrefix(searchLower, text) && len(text) >= 3:
				tier, length = 3, len(text)
			case len(searchLower) >= 3 && wholeWordMatch(text, searchLower):
				tier, length = 2, len(searchLower)
			case strings.HasPrefix(text, searchLower) && len(searchLower) >= 3:
				tier, length = 1, len(searchLower)
			default:
				continue
			}
			if tier > best.tier || (tier == best.tier && length > best.length) {
				best.tier, best.length, best.jw = tier, length, jaroWinkler(text, searchLower)
			}
		}
		if best.tier > 0 {
			seen[c.Team.ID] = true
			results = append(results, best)
		}
	}

	sortScored(results)
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = r.c
	}
	return out
}

// scoredCandidate is one FindAll result with its tier/length/Jaro-Winkler
// ranking, kept as a named type so sorting helpers can share it.
type scoredCandidate struct {
	c      Candidate
	tier   int
	length int
	jw     float64
}

func sortScored(s []scoredCandidate) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 && less(s[j], s[j-1]) {
			s[j-1], s[j] = s[j], s[j-1]
			j--
		}
	}
}

func less(a, b scoredCandidate) bool {
	if a.tier != b.tier {
		return a.tier > b.tier
	}
	if a.length != b.length {
		return a.length > b.length
	}
	return a.jw > b.jw
}

// jaroWinkler returns the Jaro-Winkler similarity between two strings
// (0.0-1.0). Ported verbatim from the teacher's channel_matcher.go.
func jaroWinkler(s1, s2 string) float64 {
	jaro := jaroSimilarity(s1, s2)
	prefix := 0
	maxPrefix := 4
	if len(s1) < maxPrefix {
		maxPrefix = len(s1)
	}
	if len(s2) < maxPrefix {
		maxPrefix = len(s2)
	}
	for i := 0; i < maxPrefix; i++ {
		if s1[i] == s2[i] {
			prefix++
		} else {
			break
		}
	}
	const p = 0.1
	return jaro + float64(prefix)*p*(1-jaro)
}

func jaroSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	matchDist := int(math.Max(float64(len(s1)), float64(len(s2)))/2.0) - 1
	if matchDist < 0 {
		matchDist = 0
	}

	s1Matched := make([]bool, len(s1))
	s2Matched := make([]bool, len(s2))

	matches := 0
	transpositions := 0

	for i := 0; i < len(s1); i++ {
		start := i - matchDist
		if start < 0 {
			start = 0
		}
		end := i + matchDist + 1
		if end > len(s2) {
			end = len(s2)
		}
		for j := start; j < end; j++ {
			if s2Matched[j] || s1[i] != s2[j] {
				continue
			}
			s1Matched[i] = true
			s2Matched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < len(s1); i++ {
		if !s1Matched[i] {
			continue
		}
		for k < len(s2) && !s2Matched[k] {
			k++
		}
		if k < len(s2) && s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-float64(transpositions)/2)/m) / 3.0
}
