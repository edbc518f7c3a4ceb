package provider

import (
	"strconv"
	"strings"

	"github.com/albapepper/courtwatch/internal/rules"
)

// MaxSets returns the number of sets the match is played over. When upstream
// omits it, men's Grand Slam matches are best of five and everything else
// best of three.
func (m *Match) MaxSets() int {
	switch {
	case m.BestOf == 5:
		return 5
	case m.BestOf == 0 && m.Tour == rules.TourATP && m.Tournament.Category == "grand_slam":
		return 5
	}
	return 3
}

// SetComplete reports whether set i (0-based) is over. A set is complete once
// a later set has started, once the match finished normally, or when the
// games satisfy the scoring rules (6+ with a two-game lead, or 7-6/7-5). The
// last set of a retirement only counts if it was already decided.
func (m *Match) SetComplete(i int) bool {
	if i < 0 || i >= len(m.Sets) {
		return false
	}
	if i < len(m.Sets)-1 {
		return true
	}
	if m.Status == StatusFinished && m.Ending == EndingCompleted {
		return true
	}
	a, b := m.Sets[i].Games[0], m.Sets[i].Games[1]
	return setDecided(a, b)
}

func setDecided(a, b int) bool {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	switch {
	case hi >= 6 && hi-lo >= 2:
		return true
	case hi == 7 && (lo == 6 || lo == 5):
		return true
	}
	return false
}

// SetWinner returns 0 or 1 for the side that took set i, or -1 when the set
// is level or not complete.
func (m *Match) SetWinner(i int) int {
	if !m.SetComplete(i) {
		return -1
	}
	s := m.Sets[i]
	switch {
	case s.Games[0] > s.Games[1]:
		return 0
	case s.Games[1] > s.Games[0]:
		return 1
	case s.Tiebreak[0] > s.Tiebreak[1]:
		return 0
	case s.Tiebreak[1] > s.Tiebreak[0]:
		return 1
	}
	return -1
}

// SetsWon counts completed sets per side.
func (m *Match) SetsWon() [2]int {
	var won [2]int
	for i := range m.Sets {
		if w := m.SetWinner(i); w >= 0 {
			won[w]++
		}
	}
	return won
}

// Winner returns the index of the side that won a finished match. The
// upstream winner is used when present; otherwise a normally completed match
// is resolved from sets won. Retirements and walkovers without an upstream
// winner, unfinished matches and undecidable ones return -1.
func (m *Match) Winner() int {
	if m.Status != StatusFinished {
		return -1
	}
	if m.WinnerSide == 1 || m.WinnerSide == 2 {
		return m.WinnerSide - 1
	}
	if m.Ending != EndingCompleted {
		return -1
	}
	won := m.SetsWon()
	switch {
	case won[0] > won[1]:
		return 0
	case won[1] > won[0]:
		return 1
	}
	return -1
}

// ReachedDecidingSet reports whether the match got to its final possible set.
func (m *Match) ReachedDecidingSet() bool {
	return len(m.Sets) >= m.MaxSets()
}

// HadTiebreak reports whether any set went to a tiebreak.
func (m *Match) HadTiebreak() bool {
	for _, s := range m.Sets {
		if s.Tiebreak[0] > 0 || s.Tiebreak[1] > 0 {
			return true
		}
		hi, lo := s.Games[0], s.Games[1]
		if lo > hi {
			hi, lo = lo, hi
		}
		if hi == 7 && lo == 6 {
			return true
		}
	}
	return false
}

// ScoreLine renders the sets as "6-4 3-6 7-6(5)" from side 0's view.
func (m *Match) ScoreLine() string {
	parts := make([]string, 0, len(m.Sets))
	for _, s := range m.Sets {
		p := strconv.Itoa(s.Games[0]) + "-" + strconv.Itoa(s.Games[1])
		if s.Tiebreak[0] > 0 || s.Tiebreak[1] > 0 {
			p += "(" + strconv.Itoa(min(s.Tiebreak[0], s.Tiebreak[1])) + ")"
		}
		parts = append(parts, p)
	}
	switch m.Ending {
	case EndingRetired:
		parts = append(parts, "ret.")
	case EndingWalkover:
		parts = append(parts, "w/o")
	}
	return strings.Join(parts, " ")
}

// Involves reports whether the competitor identified by key plays in m.
func (m *Match) Involves(key string) bool {
	return m.Players[0].Key() == key || m.Players[1].Key() == key
}
