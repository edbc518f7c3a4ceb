package notifications

import (
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// Extract derives every occurrence a snapshot supports. The sequence is lazy
// and can be ranged over more than once; each pass yields the same
// occurrences with the same fingerprints.
//
// Thresholds (set number, rank gap, window, milestone tier, h2h losses) are
// not applied here. The matcher applies them per rule.
func Extract(s Snapshot) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		played := mergeMatches(s.Results, s.Live)
		for _, step := range []func(Snapshot, []provider.Match, func(Occurrence) bool) bool{
			extractUpcoming,
			extractLive,
			extractSets,
			extractResults,
			extractDeciding,
			extractRounds,
			extractStages,
			extractPlayers,
			extractHeadToHead,
		} {
			if !step(s, played, yield) {
				return
			}
		}
	}
}

// mergeMatches concatenates match lists, keeping the first copy of each id.
// Results come first so a match that just finished wins over its stale live
// copy.
func mergeMatches(lists ...[]provider.Match) []provider.Match {
	seen := make(map[string]bool)
	var out []provider.Match
	for _, list := range lists {
		for _, m := range list {
			if m.ID != "" && seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Per-event extraction
// --------------------------------------------------------------------------

func extractUpcoming(s Snapshot, _ []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range s.Upcoming {
		start := m.ScheduledAt.UTC().Format(time.RFC3339)
		o := matchOccurrence(rules.EventUpcomingMatch, m)
		o.Fingerprint = Fingerprint(o.EventType, m.ID, start)
		if !yield(o) {
			return false
		}

		until := m.ScheduledAt.Sub(s.Now)
		if until < 0 || until > timeWindowHorizon {
			continue
		}
		o = matchOccurrence(rules.EventTimeWindowSchedule, m)
		o.HoursUntil = until.Hours()
		o.Fingerprint = Fingerprint(o.EventType, m.ID, start)
		if !yield(o) {
			return false
		}
	}
	return true
}

func extractLive(s Snapshot, _ []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range s.Live {
		o := matchOccurrence(rules.EventLiveMatchStarts, m)
		o.Fingerprint = Fingerprint(o.EventType, m.ID)
		if !yield(o) {
			return false
		}
	}
	return true
}

func extractSets(_ Snapshot, played []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range played {
		for i := range m.Sets {
			if !m.SetComplete(i) {
				continue
			}
			o := matchOccurrence(rules.EventSetCompleted, m)
			o.SetNumber = i + 1
			o.Sets = m.Sets[:i+1]
			o.Fingerprint = Fingerprint(o.EventType, m.ID, "set", strconv.Itoa(i+1))
			if w := m.SetWinner(i); w >= 0 {
				o.Winner, o.Loser = &o.Players[w], &o.Players[1-w]
			}
			if !yield(o) {
				return false
			}
		}
	}
	return true
}

// extractResults covers the events derived from a decided, finished match.
func extractResults(_ Snapshot, played []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range played {
		w := m.Winner()
		if w < 0 {
			continue
		}
		winner, loser := m.Players[w], m.Players[1-w]

		o := decidedOccurrence(rules.EventMatchResult, m, w)
		o.Fingerprint = Fingerprint(o.EventType, m.ID, winner.Key(), o.ScoreLine)
		if !yield(o) {
			return false
		}

		if winner.Rank > 0 && loser.Rank > 0 && winner.Rank > loser.Rank {
			o = decidedOccurrence(rules.EventUpsetAlert, m, w)
			o.RankGap = winner.Rank - loser.Rank
			o.Fingerprint = Fingerprint(o.EventType, m.ID, winner.Key())
			if !yield(o) {
				return false
			}
		}

		if m.Tournament.Surface != "" {
			o = decidedOccurrence(rules.EventSurfaceSpecificResult, m, w)
			o.Fingerprint = Fingerprint(o.EventType, m.ID, winner.Key())
			if !yield(o) {
				return false
			}
		}

		if m.Round == "F" {
			o = decidedOccurrence(rules.EventTournamentCompleted, m, w)
			o.Ref = tournamentRef(m)
			o.Subject = o.Winner
			o.Fingerprint = Fingerprint(o.EventType, o.Ref, winner.Key())
			if !yield(o) {
				return false
			}
		}
	}
	return true
}

func extractDeciding(_ Snapshot, played []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range played {
		if m.Status != provider.StatusLive && m.Status != provider.StatusFinished {
			continue
		}
		var kinds []string
		if m.ReachedDecidingSet() {
			kinds = append(kinds, rules.DecidingSet)
		}
		if m.HadTiebreak() {
			kinds = append(kinds, rules.DecidingTiebreak)
		}
		for _, kind := range kinds {
			o := matchOccurrence(rules.EventCloseMatchDecidingSet, m)
			if w := m.Winner(); w >= 0 {
				o.Winner, o.Loser = &o.Players[w], &o.Players[1-w]
			}
			o.DecidingKind = kind
			o.Fingerprint = Fingerprint(o.EventType, m.ID, kind)
			if !yield(o) {
				return false
			}
		}
	}
	return true
}

// extractRounds emits player_reaches_round for both players of upcoming and
// live matches and for the winner of finished ones. The fingerprint is keyed
// by player, tournament and round, so one player reaching one round yields a
// single event however many feeds report it.
func extractRounds(s Snapshot, played []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range mergeMatches(played, s.Upcoming) {
		var sides []int
		switch m.Status {
		case provider.StatusFinished:
			if w := m.Winner(); w >= 0 {
				sides = []int{w}
			}
		default:
			sides = []int{0, 1}
		}
		for _, side := range sides {
			o := matchOccurrence(rules.EventPlayerReachesRound, m)
			o.Subject = &o.Players[side]
			o.Ref = o.Subject.Key()
			o.Fingerprint = Fingerprint(o.EventType, o.Ref, tournamentRef(m), m.Round)
			if !yield(o) {
				return false
			}
		}
	}
	return true
}

func extractStages(s Snapshot, _ []provider.Match, yield func(Occurrence) bool) bool {
	for _, m := range mergeMatches(s.Live, s.Upcoming) {
		if m.Status == provider.StatusFinished {
			continue
		}
		o := matchOccurrence(rules.EventTournamentStage, m)
		o.Fingerprint = Fingerprint(o.EventType, m.ID, m.Round)
		if !yield(o) {
			return false
		}
	}
	return true
}

func extractPlayers(s Snapshot, _ []provider.Match, yield func(Occurrence) bool) bool {
	for _, p := range s.Players {
		subject := provider.Competitor{ID: p.ID, Name: p.Name, Rank: p.Rank, ImageURL: p.ImageURL}
		key := p.Key()
		if p.Rank > 0 {
			o := playerOccurrence(rules.EventRankingMilestone, p, subject)
			o.Fingerprint = Fingerprint(o.EventType, key, strconv.Itoa(p.Rank))
			if !yield(o) {
				return false
			}
		}
		if p.Titles > 0 {
			o := playerOccurrence(rules.EventTitleMilestone, p, subject)
			o.Fingerprint = Fingerprint(o.EventType, key, strconv.Itoa(p.Titles))
			if !yield(o) {
				return false
			}
		}
	}
	return true
}

// extractHeadToHead walks each requested pair's history oldest first and
// emits when the tracked player beats the rival after one or more straight
// losses. Only wins present in the current results feed are emitted; older
// meetings only build up the streak.
func extractHeadToHead(s Snapshot, _ []provider.Match, yield func(Occurrence) bool) bool {
	recent := make(map[string]bool, len(s.Results))
	for _, m := range s.Results {
		recent[m.ID] = true
	}
	for _, pair := range s.HeadToHead {
		history := mergeMatches(pair.Matches, pairResults(s.Results, pair))
		sortMatches(history)
		streak := 0
		for _, m := range history {
			w := m.Winner()
			if w < 0 {
				continue
			}
			tracked := sideOf(m, pair.Tracked)
			if tracked < 0 || sideOf(m, pair.Rival) != 1-tracked {
				continue
			}
			if w != tracked {
				streak++
				continue
			}
			if streak > 0 && recent[m.ID] {
				o := decidedOccurrence(rules.EventHeadToHeadBreaker, m, w)
				o.Subject = &o.Players[tracked]
				o.Rival = &o.Players[1-tracked]
				o.LossStreak = streak
				o.Fingerprint = Fingerprint(o.EventType, m.ID, o.Subject.Key())
				if !yield(o) {
					return false
				}
			}
			streak = 0
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func matchOccurrence(t rules.EventType, m provider.Match) Occurrence {
	players := []provider.Competitor{m.Players[0], m.Players[1]}
	return Occurrence{
		EventType:   t,
		Tour:        m.Tour,
		Ref:         m.ID,
		Tournament:  m.Tournament,
		Round:       m.Round,
		Status:      m.Status,
		ScheduledAt: m.ScheduledAt,
		Players:     players,
		Sets:        m.Sets,
		ScoreLine:   m.ScoreLine(),
	}
}

func decidedOccurrence(t rules.EventType, m provider.Match, winner int) Occurrence {
	o := matchOccurrence(t, m)
	o.Winner, o.Loser = &o.Players[winner], &o.Players[1-winner]
	return o
}

func playerOccurrence(t rules.EventType, p provider.Player, subject provider.Competitor) Occurrence {
	return Occurrence{
		EventType:  t,
		Tour:       p.Tour,
		Ref:        p.Key(),
		Subject:    &subject,
		Rank:       p.Rank,
		CareerHigh: p.CareerHigh,
		Titles:     p.Titles,
	}
}

func tournamentRef(m provider.Match) string {
	if m.Tournament.ID != "" {
		return m.Tournament.ID
	}
	return rules.NormalizeText(m.Tournament.Name)
}

// sideOf returns the side (0 or 1) the named player plays on, or -1.
func sideOf(m provider.Match, player string) int {
	for i, c := range m.Players {
		if playerMatches(player, c) {
			return i
		}
	}
	return -1
}

func pairResults(results []provider.Match, pair HeadToHead) []provider.Match {
	var out []provider.Match
	for _, m := range results {
		if sideOf(m, pair.Tracked) >= 0 && sideOf(m, pair.Rival) >= 0 {
			out = append(out, m)
		}
	}
	return out
}

func sortMatches(matches []provider.Match) {
	slices.SortStableFunc(matches, func(a, b provider.Match) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
}
