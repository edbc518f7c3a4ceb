package rules

// Scope is a bit set of the scope filters an event type honours.
type Scope uint16

const (
	ScopeCategories Scope = 1 << iota
	ScopeTournaments
	ScopePlayers
	ScopeTrackedPlayer
	ScopeRound
	ScopeConditions
)

// Has reports whether every bit of other is set in s.
func (s Scope) Has(other Scope) bool {
	return s&other == other
}

// Names returns the JSON filter names enabled in s.
func (s Scope) Names() []string {
	var names []string
	for _, f := range scopeNames {
		if s.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	return names
}

var scopeNames = []struct {
	bit  Scope
	name string
}{
	{ScopeCategories, "categories"},
	{ScopeTournaments, "tournaments"},
	{ScopePlayers, "players"},
	{ScopeTrackedPlayer, "tracked_player"},
	{ScopeRound, "round"},
	{ScopeConditions, "conditions"},
}

// Feed identifies an upstream data feed an event type is derived from.
type Feed string

const (
	FeedLive       Feed = "live"
	FeedUpcoming   Feed = "upcoming"
	FeedResults    Feed = "results"
	FeedPlayers    Feed = "players"
	FeedHeadToHead Feed = "head_to_head"
)

// Capability describes which filters and params apply to an event type and
// which feeds it needs.
type Capability struct {
	Scopes   Scope    `json:"-"`
	Filters  []string `json:"filters"`
	Params   []string `json:"params"`
	Required []string `json:"required,omitempty"`
	Feeds    []Feed   `json:"feeds"`
}

const matchScopes = ScopeCategories | ScopeTournaments | ScopePlayers | ScopeRound | ScopeConditions

// capabilities is the static event-type table. It is never mutated; use
// CapabilityFor to read it.
var capabilities = map[EventType]Capability{
	EventUpcomingMatch: {
		Scopes: matchScopes,
		Feeds:  []Feed{FeedUpcoming},
	},
	EventLiveMatchStarts: {
		Scopes: matchScopes,
		Feeds:  []Feed{FeedLive},
	},
	EventSetCompleted: {
		Scopes: matchScopes,
		Params: []string{"set_number"},
		Feeds:  []Feed{FeedLive, FeedResults},
	},
	EventMatchResult: {
		Scopes: matchScopes,
		Feeds:  []Feed{FeedResults},
	},
	EventUpsetAlert: {
		Scopes: matchScopes,
		Params: []string{"upset_min_rank_gap"},
		Feeds:  []Feed{FeedResults},
	},
	EventCloseMatchDecidingSet: {
		Scopes: matchScopes,
		Params: []string{"deciding_mode"},
		Feeds:  []Feed{FeedLive, FeedResults},
	},
	EventPlayerReachesRound: {
		Scopes:   ScopeCategories | ScopeTournaments | ScopeTrackedPlayer | ScopeRound | ScopeConditions,
		Required: []string{"tracked_player"},
		Feeds:    []Feed{FeedUpcoming, FeedLive, FeedResults},
	},
	EventTournamentStage: {
		Scopes: ScopeCategories | ScopeTournaments | ScopePlayers | ScopeConditions,
		Params: []string{"stage_rounds"},
		Feeds:  []Feed{FeedUpcoming, FeedLive},
	},
	EventSurfaceSpecificResult: {
		Scopes:   matchScopes,
		Params:   []string{"surface_value"},
		Required: []string{"surface_value"},
		Feeds:    []Feed{FeedResults},
	},
	EventTimeWindowSchedule: {
		Scopes: matchScopes,
		Params: []string{"window_hours"},
		Feeds:  []Feed{FeedUpcoming},
	},
	EventRankingMilestone: {
		Scopes:   ScopePlayers | ScopeTrackedPlayer,
		Params:   []string{"ranking_milestone", "emit_on_first_seen"},
		Required: []string{"ranking_milestone"},
		Feeds:    []Feed{FeedPlayers},
	},
	EventTitleMilestone: {
		Scopes:   ScopePlayers | ScopeTrackedPlayer,
		Params:   []string{"title_target", "emit_on_first_seen"},
		Required: []string{"title_target"},
		Feeds:    []Feed{FeedPlayers},
	},
	EventHeadToHeadBreaker: {
		Scopes:   ScopeCategories | ScopeTournaments | ScopeTrackedPlayer,
		Params:   []string{"rival_player", "h2h_min_losses"},
		Required: []string{"tracked_player", "rival_player"},
		Feeds:    []Feed{FeedResults, FeedHeadToHead},
	},
	EventTournamentCompleted: {
		Scopes: ScopeCategories | ScopeTournaments | ScopeConditions,
		Feeds:  []Feed{FeedResults},
	},
}

// CapabilityFor returns the capability entry for t. The returned slices are
// copies. ok is false for unknown event types.
func CapabilityFor(t EventType) (Capability, bool) {
	c, ok := capabilities[t]
	if !ok {
		return Capability{}, false
	}
	c.Filters = c.Scopes.Names()
	c.Params = append([]string(nil), c.Params...)
	c.Required = append([]string(nil), c.Required...)
	c.Feeds = append([]Feed(nil), c.Feeds...)
	return c, true
}
