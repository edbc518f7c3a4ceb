package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/albapepper/courtwatch/internal/delivery"
	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

var testNow = time.Date(2026, 7, 12, 14, 0, 0, 0, time.UTC)

func sets(games ...[2]int) []provider.SetScore {
	out := make([]provider.SetScore, len(games))
	for i, g := range games {
		out[i] = provider.SetScore{Games: g}
	}
	return out
}

func finished(id string, tour rules.Tour, a, b provider.Competitor, score []provider.SetScore) provider.Match {
	return provider.Match{
		ID:          id,
		Tour:        tour,
		Tournament:  provider.Tournament{ID: "wimbledon", Name: "Wimbledon", Category: "grand_slam", Surface: "grass"},
		Round:       "F",
		Status:      provider.StatusFinished,
		BestOf:      5,
		ScheduledAt: testNow.Add(-3 * time.Hour),
		Players:     [2]provider.Competitor{a, b},
		Sets:        score,
	}
}

func player(name string, rank int) provider.Competitor {
	return provider.Competitor{Name: name, Rank: rank}
}

// stubSource serves fixed feeds and counts calls.
type stubSource struct {
	mu       sync.Mutex
	live     []provider.Match
	upcoming []provider.Match
	results  []provider.Match
	players  []provider.Player
	h2h      []provider.Match
	err      map[rules.Feed]error
	calls    map[rules.Feed]int
}

func (s *stubSource) record(feed rules.Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[rules.Feed]int)
	}
	s.calls[feed]++
	return s.err[feed]
}

func (s *stubSource) Calls(feed rules.Feed) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[feed]
}

func (s *stubSource) Live(_ context.Context, tour rules.Tour, _ bool) ([]provider.Match, error) {
	return byTour(s.live, tour), s.record(rules.FeedLive)
}

func (s *stubSource) Upcoming(_ context.Context, tour rules.Tour, _ time.Duration, _ bool) ([]provider.Match, error) {
	return byTour(s.upcoming, tour), s.record(rules.FeedUpcoming)
}

func (s *stubSource) Results(_ context.Context, tour rules.Tour, _ time.Time, _ bool) ([]provider.Match, error) {
	return byTour(s.results, tour), s.record(rules.FeedResults)
}

func (s *stubSource) Players(_ context.Context, tour rules.Tour, _ bool) ([]provider.Player, error) {
	var out []provider.Player
	for _, p := range s.players {
		if p.Tour == tour {
			out = append(out, p)
		}
	}
	return out, s.record(rules.FeedPlayers)
}

func (s *stubSource) HeadToHead(context.Context, string, string, bool) ([]provider.Match, error) {
	return s.h2h, s.record(rules.FeedHeadToHead)
}

func byTour(matches []provider.Match, tour rules.Tour) []provider.Match {
	var out []provider.Match
	for _, m := range matches {
		if m.Tour == tour {
			out = append(out, m)
		}
	}
	return out
}

// stubChannel records messages and fails with err when set.
type stubChannel struct {
	name rules.Channel
	err  error

	mu   sync.Mutex
	sent []delivery.Message
}

func (c *stubChannel) Name() rules.Channel { return c.name }
func (c *stubChannel) Configured(rules.Settings) bool { return true }

func (c *stubChannel) Send(_ context.Context, _ rules.Settings, msg delivery.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *stubChannel) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// collect runs Extract and keeps occurrences of one event type.
func collect(s Snapshot, t rules.EventType) []Occurrence {
	var out []Occurrence
	for o := range Extract(s) {
		if o.EventType == t {
			out = append(out, o)
		}
	}
	return out
}
