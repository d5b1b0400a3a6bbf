// Package model defines the provider-neutral entities shared across the
// matching, enrichment and lifecycle packages. Every provider response is
// projected into these types at the provider-client boundary; nothing
// downstream touches a provider's raw JSON shape.
package model

import "time"

// EventState is the lifecycle state of a sporting event.
type EventState string

const (
	EventStatePre        EventState = "pre"
	EventStateInProgress EventState = "in_progress"
	EventStateFinal      EventState = "final"
	EventStatePostponed  EventState = "postponed"
	EventStateCancelled  EventState = "cancelled"
)

// SeasonType distinguishes preseason/regular/postseason games.
type SeasonType string

const (
	SeasonPreseason  SeasonType = "preseason"
	SeasonRegular    SeasonType = "regular"
	SeasonPostseason SeasonType = "postseason"
)

// Team is immutable for the duration of one fetch cycle.
type Team struct {
	ID           string
	League       string
	Name         string
	Abbreviation string
	ShortName    string
	Slug         string
	LogoURL      string
	Color        string
	Rank         *int // nil = unranked
}

// Venue describes where an event is played.
type Venue struct {
	Name   string
	City   string
	State  string
	Indoor bool
}

// EventStatus carries the provider's status projection for an event.
type EventStatus struct {
	State     EventState
	Completed bool
	Detail    string
	Period    int
}

// Broadcast is one network/outlet carrying an event.
type Broadcast struct {
	Name string
}

// Odds is an optional pregame odds block; any field may be absent (nil).
type Odds struct {
	Spread    *float64
	OverUnder *float64
	HomeMoney *int
	AwayMoney *int
	Provider  string
}

// Event is stable within one provider for its lifetime.
// Invariant: Start is always UTC. Scores are nil iff Status.State == EventStatePre.
type Event struct {
	ID           string
	League       string
	SourceLeague string // soccer: the league this instance of the event was discovered under
	Sport        string
	Start        time.Time // UTC
	Home         Team
	Away         Team
	HomeScore    *int
	AwayScore    *int
	Status       EventStatus
	Venue        Venue
	Broadcasts   []Broadcast
	SeasonType   SeasonType
	Odds         *Odds
}

// Record is a team's win/loss/tie summary.
type Record struct {
	Wins       int
	Losses     int
	Ties       int
	WinPercent float64
	Summary    string // e.g. "10-2"
}

// Streak is signed: positive = win streak, negative = loss streak.
// Draws break a streak to 0 in sports that have them.
type Streak struct {
	Value   int
	Display string // "W3" / "L2" / "D"
}

// TeamStats is cached per (team, league) for six hours unless invalidated.
type TeamStats struct {
	Team           Team
	Overall        Record
	Streak         Streak
	HomeStreak     Streak
	AwayStreak     Streak
	PPG            float64
	PAPG           float64
	HomeRecord     Record
	AwayRecord     Record
	DivisionRecord Record
	Last5          Record
	Last10         Record
	PlayoffSeed    *int
	GamesBack      *float64
	Rank           *int
	ConferenceName string
	ConferenceAbbr string
	DivisionName   string
	Leagues        []string // multi-league memberships, e.g. soccer clubs in league + cup
}

// LeagueMapping associates a canonical league code with one provider's
// routing info. Invariant: (LeagueCode, Provider) is unique.
type LeagueMapping struct {
	LeagueCode         string
	Provider           string
	ProviderLeagueID   string
	ProviderLeagueName string
	Sport              string
	DisplayName        string
	LogoURL            string
	Enabled            bool
}

// TeamChannelConfig configures a team-based EPG channel.
type TeamChannelConfig struct {
	TeamID           string
	League           string
	Sport            string
	TemplateID       string
	ChannelID        string // slug, stable EPG key
	Logo             string
	DurationOverride *time.Duration
	PregameEnabled   bool
	PostgameEnabled  bool
	IdleEnabled      bool
}

// ExceptionKeywordMode controls how streams matching an exception keyword
// are grouped into managed channels.
type ExceptionKeywordMode string

const (
	ExceptionSeparate    ExceptionKeywordMode = "separate"
	ExceptionConsolidate ExceptionKeywordMode = "consolidate"
)

// ExceptionKeyword is an ordered synonym list with a grouping behavior.
type ExceptionKeyword struct {
	ID       string
	Synonyms []string
	Mode     ExceptionKeywordMode
}

// EventGroup configures event-group mode matching and lifecycle.
type EventGroup struct {
	ID                string
	IncludeLeagues    []string
	CandidateLeagues  []string // superset of IncludeLeagues
	IncludeRegex      string
	ExcludeRegex      string
	ExceptionKeywords []ExceptionKeyword
	TeamRegex         string
	DateRegex         string
	TimeRegex         string
	CreateTimingHours float64 // 0 = immediate on match
	DeleteGraceMins   int
	DuplicateMode     ExceptionKeywordMode
}

// SyncStatus tracks a ManagedChannel's agreement with the downstream middleware.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncDrifted SyncStatus = "drifted"
	SyncError   SyncStatus = "error"
)

// ManagedChannel is a virtual per-event channel in event-group mode.
// Invariant: at most one non-deleted ManagedChannel per (EventID, GroupID).
type ManagedChannel struct {
	ID                  string
	GroupID             string
	EventID             string
	League              string
	Provider            string
	TvgID               string // stable for the event's lifetime
	Name                string
	MiddlewareChannelID string
	AttachedStreamIDs   []string
	PrimaryStreamID     string
	ExceptionKeywordID  string // set when this channel exists for a keyword-separated duplicate
	ScheduledDeleteAt   time.Time
	DeletedAt           *time.Time
	DeleteReason        string
	SyncStatus          SyncStatus
	CreatedAt           time.Time
}

// ProgramCategory tags the nature of an emitted program.
type ProgramCategory string

const (
	CategoryGame      ProgramCategory = "game"
	CategoryPregame   ProgramCategory = "pregame"
	CategoryPostgame  ProgramCategory = "postgame"
	CategoryIdle      ProgramCategory = "idle"
	CategoryOffseason ProgramCategory = "offseason"
)

// Program is one emitted timeline entry.
// Invariant: End > Start; within a channel, programs are gap-free and ordered.
type Program struct {
	ChannelID   string
	Start       time.Time
	End         time.Time
	Title       string
	Subtitle    string
	Description string
	ArtworkURL  string
	Categories  []ProgramCategory
	TvgID       string
}

// MatchTier is the level at which a stream was resolved to an event.
type MatchTier int

const (
	TierNone MatchTier = iota
	Tier1LeagueIndicator
	Tier2SportIndicator
	Tier3aDateTime
	Tier3bTimeOnly
	Tier3cTeamsOnly
	Tier4aOneTeamDateTime
	Tier4bOneTeamClosest
	TierSingleEventLeague
)

// StreamCacheEntry memoizes a stream-to-event match across generations.
type StreamCacheEntry struct {
	Fingerprint string // stable hash of normalized stream name + date
	EventID     string
	League      string
	Tier        MatchTier
	Generation  int64
	LastSeen    time.Time
}

// StreamCategory is the classifier's output category.
type StreamCategory string

const (
	CategoryTeamVsTeam  StreamCategory = "team_vs_team"
	CategoryEventCard   StreamCategory = "event_card"
	CategoryPlaceholder StreamCategory = "placeholder"
)

// HeadToHead summarizes the completed, scored meetings between a team and
// one opponent found in the extended schedule (no season filter), computed
// by the context builder.
type HeadToHead struct {
	TeamWins       int
	OpponentWins   int
	LastMeeting    *Event
	LastResultText string // e.g. "W 24-17"
	DaysSince      int
}

// GameContext wraps one Event from a specific team's point of view, plus
// the derived signals the template resolver's variables read.
type GameContext struct {
	Event         Event
	IsHome        bool
	Team          Team
	Opponent      Team
	OpponentStats *TeamStats
	H2H           *HeadToHead
	HeadCoach     string // "" when omitted for the sport
	PlayerLeaders map[string]string
}

// TeamConfig is the identity slice of a channel's configuration, the
// template-resolver-facing projection of TeamChannelConfig.
type TeamConfig struct {
	TeamID     string
	League     string
	Sport      string
	TeamName   string
	TeamAbbrev string
}

// TemplateContext is everything the template resolver needs to expand one
// team's templates for one point in its timeline: the current game plus
// independent next/last game contexts.
type TemplateContext struct {
	TeamConfig TeamConfig
	TeamStats  *TeamStats
	Team       Team
	Game       *GameContext // current; nil for pure filler with no adjacent game
	NextGame   *GameContext
	LastGame   *GameContext
}

// SuffixPolicy controls which of {var}/{var.next}/{var.last} a variable
// answers; requesting an out-of-policy suffix resolves to "".
type SuffixPolicy int

const (
	SuffixAll SuffixPolicy = iota
	SuffixBaseOnly
	SuffixLastOnly
)

// ConditionKind enumerates the condition vocabulary a conditional
// description can be gated on.
type ConditionKind string

const (
	CondWinStreak            ConditionKind = "win_streak"
	CondLossStreak           ConditionKind = "loss_streak"
	CondHomeWinStreak        ConditionKind = "home_win_streak"
	CondHomeLossStreak       ConditionKind = "home_loss_streak"
	CondAwayWinStreak        ConditionKind = "away_win_streak"
	CondAwayLossStreak       ConditionKind = "away_loss_streak"
	CondIsRanked             ConditionKind = "is_ranked"
	CondIsRankedOpponent     ConditionKind = "is_ranked_opponent"
	CondIsRankedMatchup      ConditionKind = "is_ranked_matchup"
	CondIsTopTenMatchup      ConditionKind = "is_top_ten_matchup"
	CondIsHome               ConditionKind = "is_home"
	CondIsAway               ConditionKind = "is_away"
	CondIsPlayoff            ConditionKind = "is_playoff"
	CondIsPreseason          ConditionKind = "is_preseason"
	CondIsConferenceGame     ConditionKind = "is_conference_game"
	CondIsRematch            ConditionKind = "is_rematch"
	CondIsNationalBroadcast  ConditionKind = "is_national_broadcast"
	CondHasOdds              ConditionKind = "has_odds"
	CondOpponentNameContains ConditionKind = "opponent_name_contains"
	CondAlways               ConditionKind = "always"
)

// Condition pairs a kind with its optional threshold/pattern value.
type Condition struct {
	Kind  ConditionKind
	Value string // numeric streak thresholds are parsed from this
}

// ConditionalDescription is one entry of a template's description list;
// the resolver evaluates entries in priority order (lower first, 100 is
// the conventional fallback) and selects the first satisfied one, with
// ties at equal priority broken by uniform random choice.
type ConditionalDescription struct {
	Condition Condition
	Priority  int
	Template  string
}

// FillerKind is the classification the filler generator assigns to a gap.
type FillerKind string

const (
	FillerPregame   FillerKind = "pregame"
	FillerPostgame  FillerKind = "postgame"
	FillerIdle      FillerKind = "idle"
	FillerOffseason FillerKind = "offseason"
)

// Template holds one channel's full set of resolvable strings: the game
// templates (title/subtitle/description/artwork, each a `{var}` string)
// plus one title/subtitle/description/artwork template per filler kind,
// and the conditional description list layered on top of the base game
// description.
type Template struct {
	ID                      string
	GameTitle               string
	GameSubtitle            string
	GameDescription         string
	GameArtworkURL          string
	ConditionalDescriptions []ConditionalDescription
	FillerTitle             map[FillerKind]string
	FillerSubtitle          map[FillerKind]string
	FillerDescription       map[FillerKind]string
	FillerArtworkURL        map[FillerKind]string
	PostgameConditional     bool // postgame description branches on final vs not-final
	OffseasonEnabled        bool
	GameDuration            *time.Duration // per-template override
}
