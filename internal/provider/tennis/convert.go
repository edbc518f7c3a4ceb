package tennis

import (
	"slices"
	"strings"
	"time"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

type wireTournament struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Surface  string `json:"surface"`
}

type wireCompetitor struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Ranking provider.Int `json:"ranking"`
	Image   string       `json:"image"`
}

type wireSet struct {
	Home         int `json:"home"`
	Away         int `json:"away"`
	HomeTiebreak int `json:"home_tiebreak"`
	AwayTiebreak int `json:"away_tiebreak"`
}

type wireMatch struct {
	ID         string         `json:"id"`
	Tour       string         `json:"tour"`
	Tournament wireTournament `json:"tournament"`
	Round      string         `json:"round"`
	Status     string         `json:"status"`
	BestOf     int            `json:"best_of"`
	StartTime  time.Time      `json:"start_time"`
	Home       wireCompetitor `json:"home"`
	Away       wireCompetitor `json:"away"`
	Scores     []wireSet      `json:"scores"`
	Winner     string         `json:"winner"` // "home", "away" or a competitor id
}

type wirePlayer struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Country    string       `json:"country"`
	Ranking    provider.Int `json:"ranking"`
	CareerHigh provider.Int `json:"career_high"`
	Titles     provider.Int `json:"titles"`
	Image      string       `json:"image"`
}

// statusAliases maps upstream status labels onto canonical statuses.
var statusAliases = map[string]provider.MatchStatus{
	"notstarted": provider.StatusScheduled,
	"scheduled":  provider.StatusScheduled,
	"upcoming":   provider.StatusScheduled,
	"inprogress": provider.StatusLive,
	"live":       provider.StatusLive,
	"finished":   provider.StatusFinished,
	"ended":      provider.StatusFinished,
	"retired":    provider.StatusFinished,
	"walkover":   provider.StatusFinished,
}

// endingAliases marks finished statuses that were not played to completion.
var endingAliases = map[string]provider.Ending{
	"retired":  provider.EndingRetired,
	"walkover": provider.EndingWalkover,
}

func toMatches(wire []wireMatch, tour rules.Tour) []provider.Match {
	out := make([]provider.Match, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toMatch(tour))
	}
	return out
}

func (w wireMatch) toMatch(fallback rules.Tour) provider.Match {
	tour := rules.Tour(strings.ToLower(w.Tour))
	if tour != rules.TourATP && tour != rules.TourWTA {
		tour = fallback
	}
	round := w.Round
	if code, ok := rules.ParseRound(w.Round); ok {
		round = code
	}
	status := strings.ToLower(strings.ReplaceAll(w.Status, " ", ""))
	m := provider.Match{
		ID:   w.ID,
		Tour: tour,
		Tournament: provider.Tournament{
			ID:       w.Tournament.ID,
			Name:     w.Tournament.Name,
			Category: strings.ToLower(w.Tournament.Category),
			Surface:  strings.ToLower(w.Tournament.Surface),
		},
		Round:       round,
		Status:      statusAliases[status],
		Ending:      endingAliases[status],
		WinnerSide:  w.winnerSide(),
		BestOf:      w.BestOf,
		ScheduledAt: w.StartTime.UTC(),
		Players:     [2]provider.Competitor{w.Home.toCompetitor(), w.Away.toCompetitor()},
	}
	if m.Status == "" {
		m.Status = provider.StatusScheduled
	}
	for _, s := range w.Scores {
		m.Sets = append(m.Sets, provider.SetScore{
			Games:    [2]int{s.Home, s.Away},
			Tiebreak: [2]int{s.HomeTiebreak, s.AwayTiebreak},
		})
	}
	return m
}

func (w wireMatch) winnerSide() int {
	switch v := strings.ToLower(strings.TrimSpace(w.Winner)); {
	case v == "":
		return 0
	case v == "home" || v == "1" || strings.EqualFold(v, w.Home.ID):
		return 1
	case v == "away" || v == "2" || strings.EqualFold(v, w.Away.ID):
		return 2
	}
	return 0
}

func (w wireCompetitor) toCompetitor() provider.Competitor {
	return provider.Competitor{
		ID:       w.ID,
		Name:     strings.TrimSpace(w.Name),
		Rank:     int(w.Ranking),
		ImageURL: w.Image,
	}
}

func (w wirePlayer) toPlayer(tour rules.Tour) provider.Player {
	return provider.Player{
		ID:         w.ID,
		Name:       strings.TrimSpace(w.Name),
		Tour:       tour,
		Country:    w.Country,
		Rank:       int(w.Ranking),
		CareerHigh: int(w.CareerHigh),
		Titles:     int(w.Titles),
		ImageURL:   w.Image,
	}
}

func sortByStart(matches []provider.Match) {
	slices.SortStableFunc(matches, func(a, b provider.Match) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})
}
