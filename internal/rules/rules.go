// Package rules defines the notification rule model: rules, their scope
// filters and event-type parameters, the per-rule runtime state the engine
// maintains, and the immutable capability table that says which filters and
// params apply to each event type.
//
// Rules are authored by users (HTTP API, CLI import) and validated here
// before they reach a store. Runtime state is written only by the engine.
package rules

import (
	"time"
)

// --------------------------------------------------------------------------
// Enumerations
// --------------------------------------------------------------------------

// EventType identifies the kind of tennis event a rule watches.
type EventType string

const (
	EventUpcomingMatch         EventType = "upcoming_match"
	EventLiveMatchStarts       EventType = "live_match_starts"
	EventSetCompleted          EventType = "set_completed"
	EventMatchResult           EventType = "match_result"
	EventUpsetAlert            EventType = "upset_alert"
	EventCloseMatchDecidingSet EventType = "close_match_deciding_set"
	EventPlayerReachesRound    EventType = "player_reaches_round"
	EventTournamentStage       EventType = "tournament_stage_reminder"
	EventSurfaceSpecificResult EventType = "surface_specific_result"
	EventTimeWindowSchedule    EventType = "time_window_schedule_alert"
	EventRankingMilestone      EventType = "ranking_milestone"
	EventTitleMilestone        EventType = "title_milestone"
	EventHeadToHeadBreaker     EventType = "head_to_head_breaker"
	EventTournamentCompleted   EventType = "tournament_completed"
)

// EventTypes lists every supported event type in display order.
var EventTypes = []EventType{
	EventUpcomingMatch,
	EventLiveMatchStarts,
	EventSetCompleted,
	EventMatchResult,
	EventUpsetAlert,
	EventCloseMatchDecidingSet,
	EventPlayerReachesRound,
	EventTournamentStage,
	EventSurfaceSpecificResult,
	EventTimeWindowSchedule,
	EventRankingMilestone,
	EventTitleMilestone,
	EventHeadToHeadBreaker,
	EventTournamentCompleted,
}

// Known reports whether t is one of the supported event types.
func (t EventType) Known() bool {
	_, ok := capabilities[t]
	return ok
}

// Tour is the professional tour a rule or match belongs to.
type Tour string

const (
	TourATP  Tour = "atp"
	TourWTA  Tour = "wta"
	TourBoth Tour = "both"
)

// Includes reports whether a rule scoped to t accepts a match on other.
func (t Tour) Includes(other Tour) bool {
	return t == TourBoth || t == other
}

// Tours expands t into the concrete tours it covers.
func (t Tour) Tours() []Tour {
	if t == TourBoth {
		return []Tour{TourATP, TourWTA}
	}
	return []Tour{t}
}

// RoundMode controls how RoundValue restricts matches.
type RoundMode string

const (
	RoundAny   RoundMode = "any"
	RoundMin   RoundMode = "min"
	RoundExact RoundMode = "exact"
)

// ConditionGroup combines a rule's extra conditions.
type ConditionGroup string

const (
	GroupAll ConditionGroup = "all"
	GroupAny ConditionGroup = "any"
)

// Condition fields and operators.
const (
	FieldTournamentName = "tournament_name"
	FieldPlayerName     = "player_name"
	FieldCategory       = "category"
	FieldSurface        = "surface"
	FieldRoundRank      = "round_rank"

	OpContains = "contains"
	OpEquals   = "equals"
	OpGTE      = "gte"
	OpLTE      = "lte"
)

// MaxConditions is the most extra conditions a rule may carry.
const MaxConditions = 3

// Severity is the urgency a rule's alerts are rendered with.
type Severity string

const (
	SeverityImportant Severity = "important"
	SeverityNormal    Severity = "normal"
	SeverityDigest    Severity = "digest"
)

// Channel is a delivery channel name.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelDiscord  Channel = "discord"
	ChannelWebPush  Channel = "web_push"
)

// Channels lists every supported delivery channel.
var Channels = []Channel{ChannelEmail, ChannelTelegram, ChannelDiscord, ChannelWebPush}

// Known reports whether c is a supported channel.
func (c Channel) Known() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelDiscord, ChannelWebPush:
		return true
	}
	return false
}

// Deciding modes for close_match_deciding_set.
const (
	DecidingSet      = "deciding_set"
	DecidingTiebreak = "tiebreak"
	DecidingEither   = "either"
)

// Ranking milestone tiers.
const (
	MilestoneTop100     = "top100"
	MilestoneTop50      = "top50"
	MilestoneTop20      = "top20"
	MilestoneTop10      = "top10"
	MilestoneCareerHigh = "career_high"
)

// milestoneCutoffs maps a top-N tier to N.
var milestoneCutoffs = map[string]int{
	MilestoneTop100: 100,
	MilestoneTop50:  50,
	MilestoneTop20:  20,
	MilestoneTop10:  10,
}

// MilestoneCutoff returns N for a top-N tier, or ok=false for career_high
// and unknown tiers.
func MilestoneCutoff(tier string) (int, bool) {
	n, ok := milestoneCutoffs[tier]
	return n, ok
}

// --------------------------------------------------------------------------
// Rule
// --------------------------------------------------------------------------

// Condition is one extra predicate over an occurrence.
type Condition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
}

// Params holds event-type-specific settings. Only the fields the capability
// table lists for a rule's event type are consulted.
type Params struct {
	SetNumber        int      `json:"set_number,omitempty" yaml:"set_number,omitempty"`
	UpsetMinRankGap  int      `json:"upset_min_rank_gap,omitempty" yaml:"upset_min_rank_gap,omitempty"`
	DecidingMode     string   `json:"deciding_mode,omitempty" yaml:"deciding_mode,omitempty"`
	RankingMilestone string   `json:"ranking_milestone,omitempty" yaml:"ranking_milestone,omitempty"`
	TitleTarget      int      `json:"title_target,omitempty" yaml:"title_target,omitempty"`
	RivalPlayer      string   `json:"rival_player,omitempty" yaml:"rival_player,omitempty"`
	H2HMinLosses     int      `json:"h2h_min_losses,omitempty" yaml:"h2h_min_losses,omitempty"`
	SurfaceValue     string   `json:"surface_value,omitempty" yaml:"surface_value,omitempty"`
	WindowHours      int      `json:"window_hours,omitempty" yaml:"window_hours,omitempty"`
	StageRounds      []string `json:"stage_rounds,omitempty" yaml:"stage_rounds,omitempty"`
	EmitOnFirstSeen  bool     `json:"emit_on_first_seen,omitempty" yaml:"emit_on_first_seen,omitempty"`
}

// Param defaults applied when a rule leaves the field zero.
const (
	DefaultSetNumber       = 1
	DefaultUpsetMinRankGap = 10
	DefaultH2HMinLosses    = 3
	DefaultWindowHours     = 24
)

// DefaultStageRounds are the rounds a stage reminder covers by default.
var DefaultStageRounds = []string{"QF", "SF", "F"}

// Rule is a user-authored notification rule.
type Rule struct {
	ID        string    `json:"id" yaml:"id,omitempty"`
	Name      string    `json:"name" yaml:"name"`
	Enabled   bool      `json:"enabled" yaml:"enabled"`
	EventType EventType `json:"event_type" yaml:"event_type"`
	Tour      Tour      `json:"tour" yaml:"tour"`

	// Scope filters
	Categories     []string       `json:"categories,omitempty" yaml:"categories,omitempty"`
	Tournaments    []string       `json:"tournaments,omitempty" yaml:"tournaments,omitempty"`
	Players        []string       `json:"players,omitempty" yaml:"players,omitempty"`
	TrackedPlayer  string         `json:"tracked_player,omitempty" yaml:"tracked_player,omitempty"`
	RoundMode      RoundMode      `json:"round_mode,omitempty" yaml:"round_mode,omitempty"`
	RoundValue     string         `json:"round_value,omitempty" yaml:"round_value,omitempty"`
	ConditionGroup ConditionGroup `json:"condition_group,omitempty" yaml:"condition_group,omitempty"`
	Conditions     []Condition    `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	Params Params `json:"params" yaml:"params,omitempty"`

	// Delivery
	Severity          Severity  `json:"severity" yaml:"severity"`
	Channels          []Channel `json:"channels" yaml:"channels"`
	CooldownMinutes   int       `json:"cooldown_minutes" yaml:"cooldown_minutes"`
	QuietHoursEnabled bool      `json:"quiet_hours_enabled" yaml:"quiet_hours_enabled"`
	QuietStartHour    int       `json:"quiet_start_hour" yaml:"quiet_start_hour"`
	QuietEndHour      int       `json:"quiet_end_hour" yaml:"quiet_end_hour"`
	TimezoneOffset    float64   `json:"timezone_offset" yaml:"timezone_offset"`

	State State `json:"state" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Normalize fills defaulted enum fields so an authored rule with blanks
// still validates.
func (r *Rule) Normalize() {
	if r.Tour == "" {
		r.Tour = TourBoth
	}
	if r.RoundMode == "" {
		r.RoundMode = RoundAny
	}
	if r.ConditionGroup == "" {
		r.ConditionGroup = GroupAll
	}
	if r.Severity == "" {
		r.Severity = SeverityNormal
	}
	if r.RoundValue != "" {
		if code, ok := ParseRound(r.RoundValue); ok {
			r.RoundValue = code
		}
	}
}

// HasChannel reports whether c is one of the rule's channels.
func (r *Rule) HasChannel(c Channel) bool {
	for _, ch := range r.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand rules across goroutines
// without sharing slices or maps.
func (r Rule) Clone() Rule {
	out := r
	out.Categories = append([]string(nil), r.Categories...)
	out.Tournaments = append([]string(nil), r.Tournaments...)
	out.Players = append([]string(nil), r.Players...)
	out.Conditions = append([]Condition(nil), r.Conditions...)
	out.Channels = append([]Channel(nil), r.Channels...)
	out.Params.StageRounds = append([]string(nil), r.Params.StageRounds...)
	out.State = r.State.Clone()
	return out
}

// --------------------------------------------------------------------------
// Runtime state
// --------------------------------------------------------------------------

// Observation is the last-known milestone-relevant value for a player,
// recorded per rule.
type Observation struct {
	Rank       int       `json:"rank,omitempty"`
	Titles     int       `json:"titles,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// State is the engine-owned runtime state of a rule.
type State struct {
	LastSentAt time.Time              `json:"last_sent_at,omitzero"`
	Sent       map[string]time.Time   `json:"sent,omitempty"`
	Observed   map[string]Observation `json:"observed,omitempty"`
}

// HasSent reports whether fingerprint was already recorded.
func (s State) HasSent(fingerprint string) bool {
	_, ok := s.Sent[fingerprint]
	return ok
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{LastSentAt: s.LastSentAt}
	if s.Sent != nil {
		out.Sent = make(map[string]time.Time, len(s.Sent))
		for k, v := range s.Sent {
			out.Sent[k] = v
		}
	}
	if s.Observed != nil {
		out.Observed = make(map[string]Observation, len(s.Observed))
		for k, v := range s.Observed {
			out.Observed[k] = v
		}
	}
	return out
}

// Evict drops fingerprints and observations recorded before cutoff and
// returns how many entries were removed.
func (s *State) Evict(cutoff time.Time) int {
	removed := 0
	for fp, at := range s.Sent {
		if at.Before(cutoff) {
			delete(s.Sent, fp)
			removed++
		}
	}
	for key, obs := range s.Observed {
		if obs.ObservedAt.Before(cutoff) {
			delete(s.Observed, key)
			removed++
		}
	}
	return removed
}
