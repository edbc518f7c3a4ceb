package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() Rule {
	return Rule{
		Name:      "Finals",
		Enabled:   true,
		EventType: EventMatchResult,
		Channels:  []Channel{ChannelEmail},
	}
}

func TestParseRound(t *testing.T) {
	tests := []struct {
		in   string
		code string
		ok   bool
	}{
		{"QF", "QF", true},
		{"qf", "QF", true},
		{" Quarter-Finals ", "QF", true},
		{"Round of 16", "R16", true},
		{"1/8", "R16", true},
		{"Final", "F", true},
		{"Qualification 2", "Q2", true},
		{"", "", false},
		{"Group stage", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, ok := ParseRound(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestRoundRankOrdering(t *testing.T) {
	order := []string{"Q1", "Q2", "Q3", "R128", "R64", "R32", "R16", "QF", "SF", "F"}
	for i := 1; i < len(order); i++ {
		assert.Less(t, RoundRank(order[i-1]), RoundRank(order[i]), "%s < %s", order[i-1], order[i])
	}
	assert.Zero(t, RoundRank("unknown"))

	rank, ok := ParseRoundRank("8")
	assert.True(t, ok)
	assert.Equal(t, 8, rank)

	rank, ok = ParseRoundRank("SF")
	assert.True(t, ok)
	assert.Equal(t, RoundRank("SF"), rank)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "stefanos tsitsipas", NormalizeText("  Stéfanos   Tsitsipás "))
	assert.Equal(t, "roland garros", NormalizeText("Roland\tGarros"))
	assert.Equal(t, "", NormalizeText("   "))
	assert.Equal(t, []string{"monte-carlo", "paris"}, NormalizeList([]string{"Monte-Carlo", " ", "PARÍS"}))
}

func TestCapabilityTableCoversEveryEventType(t *testing.T) {
	for _, et := range EventTypes {
		c, ok := CapabilityFor(et)
		require.True(t, ok, et)
		assert.NotEmpty(t, c.Feeds, et)
		assert.True(t, et.Known())
	}
	_, ok := CapabilityFor("nope")
	assert.False(t, ok)
}

func TestCapabilityForReturnsCopies(t *testing.T) {
	c, _ := CapabilityFor(EventHeadToHeadBreaker)
	c.Required[0] = "mutated"
	c.Feeds[0] = "mutated"

	again, _ := CapabilityFor(EventHeadToHeadBreaker)
	assert.Equal(t, "tracked_player", again.Required[0])
	assert.Equal(t, FeedResults, again.Feeds[0])
	assert.Contains(t, again.Filters, "tracked_player")
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	r := Rule{RoundValue: "quarterfinals"}
	r.Normalize()
	assert.Equal(t, TourBoth, r.Tour)
	assert.Equal(t, RoundAny, r.RoundMode)
	assert.Equal(t, GroupAll, r.ConditionGroup)
	assert.Equal(t, SeverityNormal, r.Severity)
	assert.Equal(t, "QF", r.RoundValue)
}

func TestValidateAcceptsMinimalRule(t *testing.T) {
	r := validRule()
	r.Normalize()
	assert.NoError(t, Validate(&r))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rule)
		want   string
	}{
		{"too many conditions", func(r *Rule) {
			c := Condition{Field: FieldCategory, Operator: OpEquals, Value: "atp"}
			r.Conditions = []Condition{c, c, c, c}
		}, "at most 3 conditions"},
		{"enabled without channel", func(r *Rule) { r.Channels = nil }, "at least one channel"},
		{"min round without value", func(r *Rule) { r.RoundMode = RoundMin }, "round_value is required"},
		{"unknown event type", func(r *Rule) { r.EventType = "bogus" }, "unknown event_type"},
		{"unknown tour", func(r *Rule) { r.Tour = "itf" }, "unknown tour"},
		{"unknown severity", func(r *Rule) { r.Severity = "loud" }, "unknown severity"},
		{"unknown channel", func(r *Rule) { r.Channels = []Channel{"sms"} }, "unknown channel"},
		{"unknown operator", func(r *Rule) {
			r.Conditions = []Condition{{Field: FieldSurface, Operator: "matches", Value: "clay"}}
		}, "unknown operator"},
		{"numeric operator on text field", func(r *Rule) {
			r.Conditions = []Condition{{Field: FieldSurface, Operator: OpGTE, Value: "3"}}
		}, "only applies to round_rank"},
		{"reaches round without player", func(r *Rule) { r.EventType = EventPlayerReachesRound }, "requires tracked_player"},
		{"h2h without rival", func(r *Rule) {
			r.EventType = EventHeadToHeadBreaker
			r.TrackedPlayer = "Sinner"
		}, "requires params.rival_player"},
		{"surface without value", func(r *Rule) { r.EventType = EventSurfaceSpecificResult }, "requires params.surface_value"},
		{"cooldown out of range", func(r *Rule) { r.CooldownMinutes = 1441 }, "cooldown_minutes"},
		{"quiet hour out of range", func(r *Rule) { r.QuietEndHour = 24 }, "quiet_end_hour"},
		{"timezone out of range", func(r *Rule) { r.TimezoneOffset = 15 }, "timezone_offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			r.Normalize()
			tt.mutate(&r)
			err := Validate(&r)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAllowsDisabledRuleWithoutChannels(t *testing.T) {
	r := validRule()
	r.Normalize()
	r.Enabled = false
	r.Channels = nil
	assert.NoError(t, Validate(&r))
}

func TestValidateAllRejectsDuplicateIDs(t *testing.T) {
	a, b := validRule(), validRule()
	a.Normalize()
	b.Normalize()
	a.ID, b.ID = "r1", "r1"
	err := ValidateAll([]Rule{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `id "r1" already used by rule 1`)
}

func TestStateEvict(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := State{
		Sent: map[string]time.Time{
			"old": now.Add(-61 * 24 * time.Hour),
			"new": now.Add(-time.Hour),
		},
		Observed: map[string]Observation{
			"p1": {Rank: 12, ObservedAt: now.Add(-90 * 24 * time.Hour)},
			"p2": {Rank: 3, ObservedAt: now},
		},
	}
	removed := s.Evict(now.Add(-60 * 24 * time.Hour))
	assert.Equal(t, 2, removed)
	assert.True(t, s.HasSent("new"))
	assert.False(t, s.HasSent("old"))
	assert.Contains(t, s.Observed, "p2")
	assert.NotContains(t, s.Observed, "p1")
}

func TestCloneIsDeep(t *testing.T) {
	r := validRule()
	r.Players = []string{"Alcaraz"}
	r.State.Sent = map[string]time.Time{"fp": time.Now()}

	c := r.Clone()
	c.Players[0] = "Sinner"
	c.State.Sent["other"] = time.Now()

	assert.Equal(t, "Alcaraz", r.Players[0])
	assert.Len(t, r.State.Sent, 1)
}
