package notifications

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// feedPlan lists the feeds the enabled rules need. Only those are fetched.
type feedPlan struct {
	tours map[rules.Feed][]rules.Tour
	pairs []HeadToHead // Tracked and Rival only
}

// feedOrder fixes the order feeds are reported in.
var feedOrder = []rules.Feed{rules.FeedLive, rules.FeedUpcoming, rules.FeedResults, rules.FeedPlayers}

func planFeeds(active []rules.Rule) feedPlan {
	plan := feedPlan{tours: make(map[rules.Feed][]rules.Tour)}
	seenPair := make(map[string]bool)
	for i := range active {
		r := &active[i]
		capability, ok := rules.CapabilityFor(r.EventType)
		if !ok {
			continue
		}
		for _, feed := range capability.Feeds {
			if feed == rules.FeedHeadToHead {
				key := pairKey(r.TrackedPlayer, r.Params.RivalPlayer)
				if r.TrackedPlayer == "" || r.Params.RivalPlayer == "" || seenPair[key] {
					continue
				}
				seenPair[key] = true
				plan.pairs = append(plan.pairs, HeadToHead{Tracked: r.TrackedPlayer, Rival: r.Params.RivalPlayer})
				continue
			}
			for _, tour := range r.Tour.Tours() {
				if !containsTour(plan.tours[feed], tour) {
					plan.tours[feed] = append(plan.tours[feed], tour)
				}
			}
		}
	}
	return plan
}

func pairKey(tracked, rival string) string {
	return rules.NormalizeText(tracked) + "|" + rules.NormalizeText(rival)
}

func containsTour(list []rules.Tour, t rules.Tour) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// fetchReport records which feeds failed.
type fetchReport struct {
	statuses    []rules.FeedStatus
	total       int
	failed      int
	failedTours map[rules.Feed]map[rules.Tour]bool
	failedPairs map[string]bool
}

// blocks reports whether a feed r depends on failed. Such a rule gets an
// error row instead of a misleading no_match.
func (f fetchReport) blocks(r *rules.Rule) bool {
	if f.failed == 0 {
		return false
	}
	capability, ok := rules.CapabilityFor(r.EventType)
	if !ok {
		return false
	}
	for _, feed := range capability.Feeds {
		if feed == rules.FeedHeadToHead {
			if f.failedPairs[pairKey(r.TrackedPlayer, r.Params.RivalPlayer)] {
				return true
			}
			continue
		}
		for _, tour := range r.Tour.Tours() {
			if f.failedTours[feed][tour] {
				return true
			}
		}
	}
	return false
}

// fetchTask is one feed call. Exactly one of the result fields is set on
// success.
type fetchTask struct {
	feed rules.Feed
	tour rules.Tour
	pair HeadToHead

	matches  []provider.Match
	players  []provider.Player
	attempts int
	err      error
}

// fetch calls every planned feed concurrently with retries. Failed feeds
// contribute nothing to the snapshot.
func (e *Engine) fetch(ctx context.Context, plan feedPlan, fresh bool, now time.Time) (Snapshot, fetchReport) {
	var tasks []*fetchTask
	for _, feed := range feedOrder {
		for _, tour := range plan.tours[feed] {
			tasks = append(tasks, &fetchTask{feed: feed, tour: tour})
		}
	}
	for _, pair := range plan.pairs {
		tasks = append(tasks, &fetchTask{feed: rules.FeedHeadToHead, pair: pair})
	}

	var g errgroup.Group
	g.SetLimit(maxFeedConcurrency)
	for _, t := range tasks {
		g.Go(func() error {
			t.attempts, t.err = e.retry(ctx, func(ctx context.Context) error {
				return e.call(ctx, t, fresh, now)
			})
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{Now: now}
	report := fetchReport{
		total:       len(tasks),
		failedTours: make(map[rules.Feed]map[rules.Tour]bool),
		failedPairs: make(map[string]bool),
	}
	for _, t := range tasks {
		status := rules.FeedStatus{Feed: t.feed, Tour: t.tour, OK: t.err == nil, Attempts: t.attempts}
		if t.err != nil {
			ferr := &FetchError{Feed: t.feed, Tour: t.tour, Attempts: t.attempts, Err: t.err}
			e.logger.Warn("feed fetch failed", "feed", t.feed, "tour", t.tour, "attempts", t.attempts, "error", ferr)
			status.Error = fetchErrorClass(t.err)
			report.failed++
			if t.feed == rules.FeedHeadToHead {
				report.failedPairs[pairKey(t.pair.Tracked, t.pair.Rival)] = true
			} else {
				if report.failedTours[t.feed] == nil {
					report.failedTours[t.feed] = make(map[rules.Tour]bool)
				}
				report.failedTours[t.feed][t.tour] = true
			}
			report.statuses = append(report.statuses, status)
			continue
		}

		switch t.feed {
		case rules.FeedLive:
			snap.Live = append(snap.Live, t.matches...)
			status.Items = len(t.matches)
		case rules.FeedUpcoming:
			snap.Upcoming = append(snap.Upcoming, t.matches...)
			status.Items = len(t.matches)
		case rules.FeedResults:
			snap.Results = append(snap.Results, t.matches...)
			status.Items = len(t.matches)
		case rules.FeedPlayers:
			snap.Players = append(snap.Players, t.players...)
			status.Items = len(t.players)
		case rules.FeedHeadToHead:
			pair := t.pair
			pair.Matches = t.matches
			snap.HeadToHead = append(snap.HeadToHead, pair)
			status.Items = len(t.matches)
		}
		report.statuses = append(report.statuses, status)
	}
	return snap, report
}

func (e *Engine) call(ctx context.Context, t *fetchTask, fresh bool, now time.Time) error {
	var err error
	switch t.feed {
	case rules.FeedLive:
		t.matches, err = e.source.Live(ctx, t.tour, fresh)
	case rules.FeedUpcoming:
		t.matches, err = e.source.Upcoming(ctx, t.tour, e.opts.UpcomingLookahead, fresh)
	case rules.FeedResults:
		t.matches, err = e.source.Results(ctx, t.tour, now.Add(-e.opts.ResultsLookback), fresh)
	case rules.FeedPlayers:
		t.players, err = e.source.Players(ctx, t.tour, fresh)
	case rules.FeedHeadToHead:
		t.matches, err = e.source.HeadToHead(ctx, t.pair.Tracked, t.pair.Rival, fresh)
	}
	return err
}

// retry calls fn until it succeeds, the error is permanent, or the attempts
// run out. Each attempt gets its own timeout; backoff doubles up to a cap.
func (e *Engine) retry(ctx context.Context, fn func(context.Context) error) (int, error) {
	backoff := e.opts.RetryBackoff
	var err error
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return attempt, nil
		}
		if attempt >= e.opts.FetchRetries || !retryable(err) || ctx.Err() != nil {
			return attempt, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

// retryable treats errors as transient unless they say otherwise.
func retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

// fetchErrorClass is the user-facing description of a fetch failure.
func fetchErrorClass(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case !retryable(err):
		return "rejected"
	}
	return "unavailable"
}
