package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

func resultOccurrence(round string) *Occurrence {
	players := []provider.Competitor{player("Carlos Alcaraz", 2), player("Novak Djoković", 6)}
	return &Occurrence{
		EventType:  rules.EventMatchResult,
		Tour:       rules.TourATP,
		Ref:        "m1",
		Tournament: provider.Tournament{ID: "wimbledon", Name: "Wimbledon", Category: "grand_slam", Surface: "grass"},
		Round:      round,
		Status:     provider.StatusFinished,
		Players:    players,
		Winner:     &players[0],
		Loser:      &players[1],
	}
}

func TestMatchConditionGroup(t *testing.T) {
	rule := gateRule()
	rule.Conditions = []rules.Condition{
		{Field: rules.FieldSurface, Operator: rules.OpEquals, Value: "grass"},
		{Field: rules.FieldTournamentName, Operator: rules.OpContains, Value: "roland"},
	}
	occ := resultOccurrence("F")

	rule.ConditionGroup = rules.GroupAny
	assert.True(t, Match(&rule, occ, rules.State{}), "any: one condition holds")

	rule.ConditionGroup = rules.GroupAll
	assert.False(t, Match(&rule, occ, rules.State{}), "all: one condition fails")

	rule.Conditions[1].Value = "WIMBLE"
	assert.True(t, Match(&rule, occ, rules.State{}))
}

func TestMatchRoundFilter(t *testing.T) {
	tests := []struct {
		mode  rules.RoundMode
		value string
		round string
		want  bool
	}{
		{rules.RoundExact, "F", "F", true},
		{rules.RoundExact, "F", "SF", false},
		{rules.RoundExact, "F", "Final", true},
		{rules.RoundMin, "QF", "QF", true},
		{rules.RoundMin, "QF", "SF", true},
		{rules.RoundMin, "QF", "F", true},
		{rules.RoundMin, "QF", "R16", false},
		{rules.RoundMin, "QF", "", false},
		{rules.RoundAny, "", "R128", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"_"+tt.value+"_"+tt.round, func(t *testing.T) {
			rule := gateRule()
			rule.RoundMode = tt.mode
			rule.RoundValue = tt.value
			assert.Equal(t, tt.want, Match(&rule, resultOccurrence(tt.round), rules.State{}))
		})
	}
}

func TestMatchScope(t *testing.T) {
	occ := resultOccurrence("F")

	t.Run("tour", func(t *testing.T) {
		rule := gateRule()
		rule.Tour = rules.TourWTA
		assert.False(t, Match(&rule, occ, rules.State{}))
		rule.Tour = rules.TourATP
		assert.True(t, Match(&rule, occ, rules.State{}))
	})

	t.Run("players normalized", func(t *testing.T) {
		rule := gateRule()
		rule.Players = []string{"novak djokovic"}
		assert.True(t, Match(&rule, occ, rules.State{}))
		rule.Players = []string{"Jannik Sinner"}
		assert.False(t, Match(&rule, occ, rules.State{}))
		rule.Players = []string{"Alcaraz", "Sinner"}
		assert.True(t, Match(&rule, occ, rules.State{}))
	})

	t.Run("categories", func(t *testing.T) {
		rule := gateRule()
		rule.Categories = []string{"Grand Slam"}
		assert.True(t, Match(&rule, occ, rules.State{}))
		rule.Categories = []string{"masters_1000"}
		assert.False(t, Match(&rule, occ, rules.State{}))
	})

	t.Run("tournaments by id or name", func(t *testing.T) {
		rule := gateRule()
		rule.Tournaments = []string{"wimbledon"}
		assert.True(t, Match(&rule, occ, rules.State{}))
		rule.Tournaments = []string{"US Open"}
		assert.False(t, Match(&rule, occ, rules.State{}))
	})

	t.Run("event type mismatch", func(t *testing.T) {
		rule := gateRule()
		rule.EventType = rules.EventUpsetAlert
		assert.False(t, Match(&rule, occ, rules.State{}))
		rule.EventType = "made_up"
		assert.False(t, Match(&rule, occ, rules.State{}))
	})
}

func TestMatchRoundRankCondition(t *testing.T) {
	rule := gateRule()
	rule.Conditions = []rules.Condition{{Field: rules.FieldRoundRank, Operator: rules.OpGTE, Value: "QF"}}
	assert.True(t, Match(&rule, resultOccurrence("SF"), rules.State{}))
	assert.False(t, Match(&rule, resultOccurrence("R32"), rules.State{}))

	rule.Conditions[0].Operator = rules.OpLTE
	assert.True(t, Match(&rule, resultOccurrence("R32"), rules.State{}))
}

func TestMatchUpsetGap(t *testing.T) {
	rule := gateRule()
	rule.EventType = rules.EventUpsetAlert
	rule.Params.UpsetMinRankGap = 20

	occ := resultOccurrence("R32")
	occ.EventType = rules.EventUpsetAlert
	occ.RankGap = 45
	assert.True(t, Match(&rule, occ, rules.State{}))

	occ.RankGap = 15
	assert.False(t, Match(&rule, occ, rules.State{}))

	rule.Params.UpsetMinRankGap = 0
	occ.RankGap = 10
	assert.True(t, Match(&rule, occ, rules.State{}), "default gap is 10")
}

func TestMatchRankingMilestone(t *testing.T) {
	rule := gateRule()
	rule.EventType = rules.EventRankingMilestone
	rule.Params.RankingMilestone = rules.MilestoneTop10

	occ := &Occurrence{
		EventType: rules.EventRankingMilestone,
		Tour:      rules.TourATP,
		Ref:       "p1",
		Subject:   &provider.Competitor{ID: "p1", Name: "Jakub Mensik"},
		Rank:      9,
	}

	assert.False(t, Match(&rule, occ, rules.State{}), "first sighting stays quiet by default")
	rule.Params.EmitOnFirstSeen = true
	assert.True(t, Match(&rule, occ, rules.State{}))
	rule.Params.EmitOnFirstSeen = false

	crossed := rules.State{Observed: map[string]rules.Observation{"p1": {Rank: 12, ObservedAt: testNow.Add(-24 * time.Hour)}}}
	assert.True(t, Match(&rule, occ, crossed))

	already := rules.State{Observed: map[string]rules.Observation{"p1": {Rank: 10}}}
	assert.False(t, Match(&rule, occ, already))

	rule.Params.RankingMilestone = rules.MilestoneCareerHigh
	occ.CareerHigh = 0
	assert.False(t, Match(&rule, occ, already), "unknown career high")
	occ.CareerHigh = 9
	assert.True(t, Match(&rule, occ, already), "improved to a new career high")
	occ.CareerHigh = 5
	assert.False(t, Match(&rule, occ, already), "improved but still short of the career high")
}

func TestMatchTitleMilestone(t *testing.T) {
	rule := gateRule()
	rule.EventType = rules.EventTitleMilestone
	rule.Params.TitleTarget = 10

	occ := &Occurrence{EventType: rules.EventTitleMilestone, Tour: rules.TourATP, Ref: "p1", Titles: 10}
	before := rules.State{Observed: map[string]rules.Observation{"p1": {Titles: 9}}}
	assert.True(t, Match(&rule, occ, before))

	after := rules.State{Observed: map[string]rules.Observation{"p1": {Titles: 10}}}
	assert.False(t, Match(&rule, occ, after))
}

func TestMatchPlayerReachesRound(t *testing.T) {
	rule := gateRule()
	rule.EventType = rules.EventPlayerReachesRound
	rule.TrackedPlayer = "Alcaraz"
	rule.RoundMode = rules.RoundMin
	rule.RoundValue = "SF"

	occ := resultOccurrence("SF")
	occ.EventType = rules.EventPlayerReachesRound
	occ.Subject = &occ.Players[0]
	assert.True(t, Match(&rule, occ, rules.State{}))

	occ.Subject = &occ.Players[1]
	assert.False(t, Match(&rule, occ, rules.State{}), "other player")

	occ.Subject = &occ.Players[0]
	occ.Round = "QF"
	assert.False(t, Match(&rule, occ, rules.State{}), "round below minimum")
}

func TestMatchStageAndWindow(t *testing.T) {
	stage := gateRule()
	stage.EventType = rules.EventTournamentStage
	occ := resultOccurrence("SF")
	occ.EventType = rules.EventTournamentStage
	assert.True(t, Match(&stage, occ, rules.State{}), "default stages include SF")
	occ.Round = "R16"
	assert.False(t, Match(&stage, occ, rules.State{}))
	stage.Params.StageRounds = []string{"Round of 16"}
	assert.True(t, Match(&stage, occ, rules.State{}))

	window := gateRule()
	window.EventType = rules.EventTimeWindowSchedule
	win := resultOccurrence("R16")
	win.EventType = rules.EventTimeWindowSchedule
	win.HoursUntil = 30
	assert.False(t, Match(&window, win, rules.State{}), "default window is 24h")
	window.Params.WindowHours = 48
	assert.True(t, Match(&window, win, rules.State{}))
}
