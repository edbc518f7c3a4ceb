package rules

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in an authored rule.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid rule: " + strings.Join(e.Problems, "; ")
}

// Limits on delivery settings.
const (
	MaxCooldownMinutes = 1440
	MinTimezoneOffset  = -12.0
	MaxTimezoneOffset  = 14.0
	MaxWindowHours     = 72
	MaxSetNumber       = 5
)

// Validate checks r against the rule invariants. It does not mutate r; call
// Normalize first to apply defaults. The returned error is a
// *ValidationError.
func Validate(r *Rule) error {
	var v validator

	if strings.TrimSpace(r.Name) == "" {
		v.add("name is required")
	}

	capability, known := capabilities[r.EventType]
	if !known {
		v.add("unknown event_type %q", r.EventType)
	}

	switch r.Tour {
	case TourATP, TourWTA, TourBoth:
	default:
		v.add("unknown tour %q", r.Tour)
	}

	switch r.RoundMode {
	case RoundAny:
	case RoundMin, RoundExact:
		if strings.TrimSpace(r.RoundValue) == "" {
			v.add("round_value is required when round_mode is %s", r.RoundMode)
		} else if _, ok := ParseRound(r.RoundValue); !ok {
			v.add("unknown round_value %q", r.RoundValue)
		}
	default:
		v.add("unknown round_mode %q", r.RoundMode)
	}

	switch r.ConditionGroup {
	case GroupAll, GroupAny:
	default:
		v.add("unknown condition_group %q", r.ConditionGroup)
	}

	if len(r.Conditions) > MaxConditions {
		v.add("at most %d conditions allowed, got %d", MaxConditions, len(r.Conditions))
	}
	for i, c := range r.Conditions {
		validateCondition(&v, i, c)
	}

	switch r.Severity {
	case SeverityImportant, SeverityNormal, SeverityDigest:
	default:
		v.add("unknown severity %q", r.Severity)
	}

	seen := make(map[Channel]bool, len(r.Channels))
	for _, ch := range r.Channels {
		if !ch.Known() {
			v.add("unknown channel %q", ch)
			continue
		}
		if seen[ch] {
			v.add("duplicate channel %q", ch)
		}
		seen[ch] = true
	}
	if r.Enabled && len(r.Channels) == 0 {
		v.add("an enabled rule needs at least one channel")
	}

	if r.CooldownMinutes < 0 || r.CooldownMinutes > MaxCooldownMinutes {
		v.add("cooldown_minutes must be within 0..%d", MaxCooldownMinutes)
	}
	if r.QuietStartHour < 0 || r.QuietStartHour > 23 {
		v.add("quiet_start_hour must be within 0..23")
	}
	if r.QuietEndHour < 0 || r.QuietEndHour > 23 {
		v.add("quiet_end_hour must be within 0..23")
	}
	if r.TimezoneOffset < MinTimezoneOffset || r.TimezoneOffset > MaxTimezoneOffset {
		v.add("timezone_offset must be within %g..%g", MinTimezoneOffset, MaxTimezoneOffset)
	}

	if known {
		validateParams(&v, r, capability)
	}

	return v.err()
}

// ValidateAll validates each rule and additionally rejects duplicate IDs
// within the batch. Problems are prefixed with the rule's position.
func ValidateAll(list []Rule) error {
	var v validator
	ids := make(map[string]int, len(list))
	for i := range list {
		r := &list[i]
		if err := Validate(r); err != nil {
			for _, p := range err.(*ValidationError).Problems {
				v.add("rule %d (%s): %s", i+1, r.Name, p)
			}
		}
		if r.ID == "" {
			continue
		}
		if first, dup := ids[r.ID]; dup {
			v.add("rule %d: id %q already used by rule %d", i+1, r.ID, first)
			continue
		}
		ids[r.ID] = i + 1
	}
	return v.err()
}

func validateCondition(v *validator, i int, c Condition) {
	n := i + 1
	switch c.Field {
	case FieldTournamentName, FieldPlayerName, FieldCategory, FieldSurface, FieldRoundRank:
	default:
		v.add("condition %d: unknown field %q", n, c.Field)
		return
	}
	switch c.Operator {
	case OpContains, OpEquals:
	case OpGTE, OpLTE:
		if c.Field != FieldRoundRank {
			v.add("condition %d: operator %s only applies to %s", n, c.Operator, FieldRoundRank)
			return
		}
	default:
		v.add("condition %d: unknown operator %q", n, c.Operator)
		return
	}
	if strings.TrimSpace(c.Value) == "" {
		v.add("condition %d: value is required", n)
		return
	}
	if c.Field == FieldRoundRank {
		if _, ok := ParseRoundRank(c.Value); !ok {
			v.add("condition %d: %q is not a round or round rank", n, c.Value)
		}
	}
}

func validateParams(v *validator, r *Rule, capability Capability) {
	p := r.Params

	for _, field := range capability.Required {
		switch field {
		case "tracked_player":
			if strings.TrimSpace(r.TrackedPlayer) == "" {
				v.add("%s requires tracked_player", r.EventType)
			}
		case "rival_player":
			if strings.TrimSpace(p.RivalPlayer) == "" {
				v.add("%s requires params.rival_player", r.EventType)
			}
		case "surface_value":
			if strings.TrimSpace(p.SurfaceValue) == "" {
				v.add("%s requires params.surface_value", r.EventType)
			}
		case "ranking_milestone":
			if p.RankingMilestone == "" {
				v.add("%s requires params.ranking_milestone", r.EventType)
			}
		case "title_target":
			if p.TitleTarget <= 0 {
				v.add("%s requires a positive params.title_target", r.EventType)
			}
		}
	}

	if p.SetNumber < 0 || p.SetNumber > MaxSetNumber {
		v.add("params.set_number must be within 1..%d", MaxSetNumber)
	}
	if p.UpsetMinRankGap < 0 {
		v.add("params.upset_min_rank_gap must not be negative")
	}
	if p.H2HMinLosses < 0 {
		v.add("params.h2h_min_losses must not be negative")
	}
	if p.WindowHours < 0 || p.WindowHours > MaxWindowHours {
		v.add("params.window_hours must be within 1..%d", MaxWindowHours)
	}
	switch p.DecidingMode {
	case "", DecidingSet, DecidingTiebreak, DecidingEither:
	default:
		v.add("unknown params.deciding_mode %q", p.DecidingMode)
	}
	if p.RankingMilestone != "" && p.RankingMilestone != MilestoneCareerHigh {
		if _, ok := MilestoneCutoff(p.RankingMilestone); !ok {
			v.add("unknown params.ranking_milestone %q", p.RankingMilestone)
		}
	}
	for _, round := range p.StageRounds {
		if _, ok := ParseRound(round); !ok {
			v.add("unknown round %q in params.stage_rounds", round)
		}
	}
	if r.EventType == EventHeadToHeadBreaker && r.TrackedPlayer != "" &&
		NormalizeText(r.TrackedPlayer) == NormalizeText(p.RivalPlayer) {
		v.add("tracked_player and params.rival_player must differ")
	}
}

type validator struct {
	problems []string
}

func (v *validator) add(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}
