// Package notifications turns upstream tennis data into user alerts.
//
// Pipeline: fetch feeds → extract occurrences → match rules → gate (dedup,
// quiet hours, cooldown) → dispatch → record. A cron scheduler drives
// periodic runs; manual runs come from the API and CLI.
package notifications

import (
	"context"
	"time"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// timeWindowHorizon bounds time_window_schedule_alert occurrences.
	timeWindowHorizon = 72 * time.Hour

	defaultRunTimeout   = 2 * time.Minute
	defaultFetchTimeout = 20 * time.Second
	defaultFetchRetries = 3
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 8 * time.Second
	defaultWorkers      = 4
	maxFeedConcurrency  = 6
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Source is the upstream tennis data collaborator. fresh asks the source to
// bypass any response cache.
type Source interface {
	Live(ctx context.Context, tour rules.Tour, fresh bool) ([]provider.Match, error)
	Upcoming(ctx context.Context, tour rules.Tour, lookahead time.Duration, fresh bool) ([]provider.Match, error)
	Results(ctx context.Context, tour rules.Tour, since time.Time, fresh bool) ([]provider.Match, error)
	Players(ctx context.Context, tour rules.Tour, fresh bool) ([]provider.Player, error)
	HeadToHead(ctx context.Context, playerA, playerB string, fresh bool) ([]provider.Match, error)
}

// HeadToHead is the meeting history of a (tracked, rival) pair named by a
// head_to_head_breaker rule.
type HeadToHead struct {
	Tracked string
	Rival   string
	Matches []provider.Match
}

// Snapshot is everything fetched for one run.
type Snapshot struct {
	Now        time.Time
	Live       []provider.Match
	Upcoming   []provider.Match
	Results    []provider.Match
	Players    []provider.Player
	HeadToHead []HeadToHead
}

// Occurrence is one concrete event extracted from a snapshot.
type Occurrence struct {
	EventType   rules.EventType
	Tour        rules.Tour
	Ref         string // match id, player key or tournament id
	Fingerprint string

	Tournament  provider.Tournament
	Round       string
	Status      provider.MatchStatus
	ScheduledAt time.Time
	Players     []provider.Competitor
	Sets        []provider.SetScore
	ScoreLine   string

	// Winner and Loser are set for decided matches.
	Winner *provider.Competitor
	Loser  *provider.Competitor

	// Subject is the player a player-centric event is about.
	Subject *provider.Competitor
	Rival   *provider.Competitor

	SetNumber    int
	RankGap      int
	DecidingKind string
	Rank         int
	CareerHigh   int
	Titles       int
	LossStreak   int
	HoursUntil   float64
}

// Names returns the names of every player the occurrence involves.
func (o *Occurrence) Names() []string {
	names := make([]string, 0, len(o.Players)+1)
	for _, p := range o.Players {
		names = append(names, p.Name)
	}
	if o.Subject != nil && len(o.Players) == 0 {
		names = append(names, o.Subject.Name)
	}
	return names
}

// Alert is an admitted occurrence for one rule, ready for dispatch.
type Alert struct {
	Rule       rules.Rule
	Occurrence Occurrence
	Channels   []rules.Channel
}
