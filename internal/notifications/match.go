package notifications

import (
	"slices"
	"strings"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// Match reports whether occ satisfies rule. It is pure: state is read only,
// and consulted only by milestone rules to detect crossings.
func Match(rule *rules.Rule, occ *Occurrence, state rules.State) bool {
	capability, ok := rules.CapabilityFor(rule.EventType)
	if !ok || occ.EventType != rule.EventType {
		return false
	}
	if occ.Tour != "" && !rule.Tour.Includes(occ.Tour) {
		return false
	}
	if !matchScope(rule, occ, capability.Scopes) {
		return false
	}
	if capability.Scopes.Has(rules.ScopeConditions) && !matchConditions(rule, occ) {
		return false
	}
	return matchParams(rule, occ, state)
}

// --------------------------------------------------------------------------
// Scope filters
// --------------------------------------------------------------------------

func matchScope(rule *rules.Rule, occ *Occurrence, scopes rules.Scope) bool {
	if scopes.Has(rules.ScopeCategories) && len(rule.Categories) > 0 {
		if !containsFold(rule.Categories, occ.Tournament.Category, categoryKey) {
			return false
		}
	}
	if scopes.Has(rules.ScopeTournaments) && len(rule.Tournaments) > 0 {
		if !slices.ContainsFunc(rule.Tournaments, func(t string) bool {
			return t == occ.Tournament.ID || wordMatch(t, occ.Tournament.Name)
		}) {
			return false
		}
	}
	if scopes.Has(rules.ScopePlayers) && len(rule.Players) > 0 {
		if !slices.ContainsFunc(rule.Players, func(p string) bool { return involves(occ, p) }) {
			return false
		}
	}
	if scopes.Has(rules.ScopeTrackedPlayer) && strings.TrimSpace(rule.TrackedPlayer) != "" {
		if occ.Subject == nil || !playerMatches(rule.TrackedPlayer, *occ.Subject) {
			return false
		}
	}
	if scopes.Has(rules.ScopeRound) && !matchRound(rule, occ.Round) {
		return false
	}
	return true
}

func matchRound(rule *rules.Rule, round string) bool {
	switch rule.RoundMode {
	case rules.RoundMin:
		have, want := rules.RoundRank(round), rules.RoundRank(rule.RoundValue)
		return have > 0 && have >= want
	case rules.RoundExact:
		have, want := rules.RoundRank(round), rules.RoundRank(rule.RoundValue)
		return have > 0 && have == want
	}
	return true
}

func involves(occ *Occurrence, player string) bool {
	for _, c := range occ.Players {
		if playerMatches(player, c) {
			return true
		}
	}
	return occ.Subject != nil && playerMatches(player, *occ.Subject)
}

// playerMatches compares a user-entered player against a competitor by id or
// by name, where "Alcaraz" matches "Carlos Alcaraz".
func playerMatches(player string, c provider.Competitor) bool {
	if player == "" {
		return false
	}
	if c.ID != "" && player == c.ID {
		return true
	}
	return wordMatch(player, c.Name)
}

// wordMatch reports whether the normalized needle equals haystack or appears
// in it on word boundaries.
func wordMatch(needle, haystack string) bool {
	n, h := rules.NormalizeText(needle), rules.NormalizeText(haystack)
	if n == "" || h == "" {
		return false
	}
	return n == h || strings.Contains(" "+h+" ", " "+n+" ")
}

// categoryKey folds "Grand_Slam", "grand-slam" and "Grand Slam" together.
func categoryKey(s string) string {
	return rules.NormalizeText(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

func containsFold(list []string, value string, key func(string) string) bool {
	v := key(value)
	if v == "" {
		return false
	}
	return slices.ContainsFunc(list, func(s string) bool { return key(s) == v })
}

// --------------------------------------------------------------------------
// Conditions
// --------------------------------------------------------------------------

func matchConditions(rule *rules.Rule, occ *Occurrence) bool {
	if len(rule.Conditions) == 0 {
		return true
	}
	for _, c := range rule.Conditions {
		ok := matchCondition(c, occ)
		if rule.ConditionGroup == rules.GroupAny && ok {
			return true
		}
		if rule.ConditionGroup != rules.GroupAny && !ok {
			return false
		}
	}
	return rule.ConditionGroup != rules.GroupAny
}

func matchCondition(c rules.Condition, occ *Occurrence) bool {
	if c.Field == rules.FieldRoundRank {
		have := rules.RoundRank(occ.Round)
		want, ok := rules.ParseRoundRank(c.Value)
		if have == 0 || !ok {
			return false
		}
		switch c.Operator {
		case rules.OpGTE:
			return have >= want
		case rules.OpLTE:
			return have <= want
		default:
			return have == want
		}
	}

	var values []string
	switch c.Field {
	case rules.FieldTournamentName:
		values = []string{occ.Tournament.Name}
	case rules.FieldPlayerName:
		values = occ.Names()
	case rules.FieldCategory:
		values = []string{categoryKey(occ.Tournament.Category)}
	case rules.FieldSurface:
		values = []string{occ.Tournament.Surface}
	default:
		return false
	}

	want := rules.NormalizeText(c.Value)
	if c.Field == rules.FieldCategory {
		want = categoryKey(c.Value)
	}
	for _, v := range values {
		have := rules.NormalizeText(v)
		switch c.Operator {
		case rules.OpContains:
			if want != "" && strings.Contains(have, want) {
				return true
			}
		case rules.OpEquals:
			if have == want {
				return true
			}
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Event-type params
// --------------------------------------------------------------------------

func matchParams(rule *rules.Rule, occ *Occurrence, state rules.State) bool {
	p := rule.Params
	switch rule.EventType {
	case rules.EventSetCompleted:
		return occ.SetNumber >= orDefault(p.SetNumber, rules.DefaultSetNumber)

	case rules.EventUpsetAlert:
		return occ.RankGap >= orDefault(p.UpsetMinRankGap, rules.DefaultUpsetMinRankGap)

	case rules.EventCloseMatchDecidingSet:
		switch p.DecidingMode {
		case rules.DecidingSet, rules.DecidingTiebreak:
			return occ.DecidingKind == p.DecidingMode
		}
		return true

	case rules.EventPlayerReachesRound:
		return occ.Subject != nil && playerMatches(rule.TrackedPlayer, *occ.Subject)

	case rules.EventTournamentStage:
		stages := p.StageRounds
		if len(stages) == 0 {
			stages = rules.DefaultStageRounds
		}
		round, ok := rules.ParseRound(occ.Round)
		if !ok {
			return false
		}
		return slices.ContainsFunc(stages, func(s string) bool {
			code, _ := rules.ParseRound(s)
			return code == round
		})

	case rules.EventSurfaceSpecificResult:
		return rules.NormalizeText(occ.Tournament.Surface) == rules.NormalizeText(p.SurfaceValue)

	case rules.EventTimeWindowSchedule:
		return occ.HoursUntil <= float64(orDefault(p.WindowHours, rules.DefaultWindowHours))

	case rules.EventRankingMilestone:
		return rankingCrossed(p, occ, state)

	case rules.EventTitleMilestone:
		return titlesCrossed(p, occ, state)

	case rules.EventHeadToHeadBreaker:
		if occ.Subject == nil || occ.Rival == nil {
			return false
		}
		return playerMatches(rule.TrackedPlayer, *occ.Subject) &&
			playerMatches(p.RivalPlayer, *occ.Rival) &&
			occ.LossStreak >= orDefault(p.H2HMinLosses, rules.DefaultH2HMinLosses)
	}
	return true
}

// rankingCrossed compares the current rank against the last observation for
// the same player. A first sighting only fires with EmitOnFirstSeen.
func rankingCrossed(p rules.Params, occ *Occurrence, state rules.State) bool {
	prev, seen := state.Observed[occ.Ref]
	if !seen || prev.Rank == 0 {
		return p.EmitOnFirstSeen && rankQualifies(p.RankingMilestone, occ)
	}
	if cutoff, ok := rules.MilestoneCutoff(p.RankingMilestone); ok {
		return prev.Rank > cutoff && occ.Rank <= cutoff
	}
	if p.RankingMilestone == rules.MilestoneCareerHigh {
		// An unknown career high (0) never counts as a new one.
		return occ.CareerHigh > 0 && occ.Rank < prev.Rank && occ.Rank <= occ.CareerHigh
	}
	return false
}

func rankQualifies(tier string, occ *Occurrence) bool {
	if cutoff, ok := rules.MilestoneCutoff(tier); ok {
		return occ.Rank <= cutoff
	}
	if tier == rules.MilestoneCareerHigh {
		return occ.CareerHigh > 0 && occ.Rank <= occ.CareerHigh
	}
	return false
}

func titlesCrossed(p rules.Params, occ *Occurrence, state rules.State) bool {
	if p.TitleTarget <= 0 {
		return false
	}
	prev, seen := state.Observed[occ.Ref]
	if !seen {
		return p.EmitOnFirstSeen && occ.Titles >= p.TitleTarget
	}
	return prev.Titles < p.TitleTarget && occ.Titles >= p.TitleTarget
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
