package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/albapepper/courtwatch/internal/delivery"
	"github.com/albapepper/courtwatch/internal/runlock"
	"github.com/albapepper/courtwatch/internal/rules"
)

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// Store is the persistence the engine reads rules from and writes runtime
// state and history back to.
type Store interface {
	ListRules() []rules.Rule
	Settings() rules.Settings
	RecordDelivery(ctx context.Context, ruleID, fingerprint string, sent bool, at time.Time) error
	RecordObservations(ctx context.Context, ruleID string, obs map[string]rules.Observation) error
	AppendHistory(ctx context.Context, result rules.RunResult) error
}

// Dispatcher delivers rendered messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, settings rules.Settings, msg delivery.Message, channels []rules.Channel) []rules.ChannelResult
	Test(ctx context.Context, settings rules.Settings, name rules.Channel) rules.ChannelResult
}

// Locker guards against overlapping runs.
type Locker interface {
	TryAcquire(ctx context.Context) (runlock.Release, error)
}

// Options tune an Engine. Zero values take defaults.
type Options struct {
	Workers           int
	RunTimeout        time.Duration
	FetchTimeout      time.Duration
	FetchRetries      int
	RetryBackoff      time.Duration
	UpcomingLookahead time.Duration
	ResultsLookback   time.Duration
	Now               func() time.Time
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = defaultRunTimeout
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = defaultFetchTimeout
	}
	if o.FetchRetries <= 0 {
		o.FetchRetries = defaultFetchRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.UpcomingLookahead <= 0 {
		o.UpcomingLookahead = timeWindowHorizon
	}
	if o.ResultsLookback <= 0 {
		o.ResultsLookback = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Engine runs the notification pipeline. One run at a time.
type Engine struct {
	source     Source
	store      Store
	dispatcher Dispatcher
	lock       Locker
	opts       Options
	logger     *slog.Logger
	phase      atomic.Value // rules.Phase
}

// NewEngine wires an engine. A nil lock defaults to an in-process lock.
func NewEngine(source Source, store Store, dispatcher Dispatcher, lock Locker, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if lock == nil {
		lock = runlock.NewLocal()
	}
	opts.setDefaults()
	e := &Engine{
		source:     source,
		store:      store,
		dispatcher: dispatcher,
		lock:       lock,
		opts:       opts,
		logger:     logger,
	}
	e.phase.Store(rules.PhaseIdle)
	return e
}

// Phase returns the phase of the run in flight, or idle.
func (e *Engine) Phase() rules.Phase {
	return e.phase.Load().(rules.Phase)
}

func (e *Engine) setPhase(result *rules.RunResult, p rules.Phase) {
	result.Phase = p
	e.phase.Store(p)
}

// TestDelivery sends a test message on one channel using the saved
// settings.
func (e *Engine) TestDelivery(ctx context.Context, channel rules.Channel) (rules.ChannelResult, error) {
	if !channel.Known() {
		return rules.ChannelResult{}, &rules.ValidationError{Problems: []string{fmt.Sprintf("unknown channel %q", channel)}}
	}
	return e.dispatcher.Test(ctx, e.store.Settings(), channel), nil
}

// --------------------------------------------------------------------------
// Run
// --------------------------------------------------------------------------

// Run executes one pass of the pipeline and records it in history. It
// returns ErrRunInProgress if another run holds the lock. A run whose feeds
// all failed is returned with status failed and a nil error.
func (e *Engine) Run(ctx context.Context, mode rules.Mode) (*rules.RunResult, error) {
	release, err := e.lock.TryAcquire(ctx)
	if errors.Is(err, runlock.ErrHeld) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("release run lock failed", "error", err)
		}
	}()
	defer e.phase.Store(rules.PhaseIdle)

	ctx, cancel := context.WithTimeout(ctx, e.opts.RunTimeout)
	defer cancel()

	now := e.opts.Now().UTC()
	result := &rules.RunResult{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: now,
		Rules:     []rules.RuleOutcome{},
	}
	e.logger.Info("Notification run started", "run_id", result.ID, "mode", mode)

	all := e.store.ListRules()
	var active []rules.Rule
	for _, r := range all {
		if r.Enabled {
			active = append(active, r)
		}
	}

	if len(active) == 0 {
		for _, r := range all {
			result.Rules = append(result.Rules, disabledOutcome(&r))
		}
		e.setPhase(result, rules.PhaseDone)
		result.Status = rules.RunNoMatch
		result.Summary = "No enabled rules"
		return e.finish(ctx, result), nil
	}

	// FETCHING
	e.setPhase(result, rules.PhaseFetching)
	snap, fetched := e.fetch(ctx, planFeeds(active), mode == rules.ModeManual, now)
	result.Feeds = fetched.statuses
	if fetched.total > 0 && fetched.failed == fetched.total {
		e.setPhase(result, rules.PhaseFailed)
		result.Status = rules.RunFailed
		result.Summary = fmt.Sprintf("All %d feeds failed; nothing was dispatched", fetched.total)
		for _, r := range all {
			if !r.Enabled {
				result.Rules = append(result.Rules, disabledOutcome(&r))
				continue
			}
			result.Rules = append(result.Rules, rules.RuleOutcome{
				RuleID: r.ID, Name: r.Name, EventType: r.EventType,
				Status: rules.OutcomeError, Reason: "source unavailable",
			})
		}
		return e.finish(ctx, result), nil
	}

	// EXTRACTING
	e.setPhase(result, rules.PhaseExtracting)
	occs := slices.Collect(Extract(snap))

	// MATCHING
	e.setPhase(result, rules.PhaseMatching)
	evals := e.matchAll(ctx, active, occs, fetched, now)

	// GATING
	e.setPhase(result, rules.PhaseGating)
	gate := Gate{Mode: mode}
	var alerts []*pendingAlert
	for i := range evals {
		ev := &evals[i]
		if ev.err != nil || ev.unavailable {
			continue
		}
		state := ev.rule.State.Clone()
		// Fingerprints admitted earlier in this run. Manual mode only skips
		// fingerprints recorded by previous runs, never these.
		admitted := make(map[string]bool, len(ev.matched))
		for j := range ev.matched {
			occ := &ev.matched[j]
			d := gate.Admit(&ev.rule, state, occ, now)
			if d.Allow && admitted[occ.Fingerprint] {
				d = Decision{Status: rules.OutcomeDeduped, Reason: ReasonDeduped}
			}
			if !d.Allow {
				if d.Err != nil {
					e.logger.Warn("rule cannot deliver", "rule_id", ev.rule.ID, "error", d.Err)
				}
				ev.note(d)
				if d.Status != rules.OutcomeDeduped {
					ev.held(occ.Ref)
				}
				continue
			}
			admitted[occ.Fingerprint] = true
			state.LastSentAt = now
			alerts = append(alerts, &pendingAlert{
				eval:  ev,
				alert: Alert{Rule: ev.rule, Occurrence: *occ, Channels: ev.rule.Channels},
			})
		}
	}

	// DISPATCHING
	e.setPhase(result, rules.PhaseDispatching)
	e.dispatchAll(ctx, alerts, now)

	// Observations are written after dispatch so a held milestone can fire
	// on a later run.
	for i := range evals {
		ev := &evals[i]
		if len(ev.observed) == 0 {
			continue
		}
		if err := e.store.RecordObservations(context.WithoutCancel(ctx), ev.rule.ID, ev.observed); err != nil {
			e.logger.Warn("record observations failed", "rule_id", ev.rule.ID, "error", err)
		}
	}

	byID := make(map[string]*evaluation, len(evals))
	for i := range evals {
		byID[evals[i].rule.ID] = &evals[i]
	}
	for _, r := range all {
		ev, ok := byID[r.ID]
		if !ok {
			result.Rules = append(result.Rules, disabledOutcome(&r))
			continue
		}
		row := ev.outcome()
		result.Matched += row.Matched
		result.Sent += row.Sent
		result.Rules = append(result.Rules, row)
	}

	e.setPhase(result, rules.PhaseDone)
	result.Status, result.Summary = summarize(result, fetched)
	return e.finish(ctx, result), nil
}

func (e *Engine) finish(ctx context.Context, result *rules.RunResult) *rules.RunResult {
	result.FinishedAt = e.opts.Now().UTC()
	if err := e.store.AppendHistory(context.WithoutCancel(ctx), *result); err != nil {
		e.logger.Warn("append history failed", "run_id", result.ID, "error", err)
	}
	e.logger.Info("Notification run finished",
		"run_id", result.ID,
		"status", result.Status,
		"matched", result.Matched,
		"sent", result.Sent,
		"duration", result.Duration())
	return result
}

func disabledOutcome(r *rules.Rule) rules.RuleOutcome {
	return rules.RuleOutcome{
		RuleID:    r.ID,
		Name:      r.Name,
		EventType: r.EventType,
		Status:    rules.OutcomeSkipped,
		Reason:    ReasonDisabled,
	}
}

func summarize(result *rules.RunResult, fetched fetchReport) (rules.RunStatus, string) {
	errored := 0
	for _, row := range result.Rules {
		if row.Status == rules.OutcomeError {
			errored++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matched, %d sent", result.Matched, result.Sent)
	if errored > 0 {
		fmt.Fprintf(&b, ", %d rules with errors", errored)
	}
	if fetched.failed > 0 {
		fmt.Fprintf(&b, ", %d of %d feeds failed", fetched.failed, fetched.total)
	}

	switch {
	case errored > 0 || fetched.failed > 0:
		return rules.RunPartial, b.String()
	case result.Matched == 0:
		return rules.RunNoMatch, "No rule matched"
	}
	return rules.RunOK, b.String()
}

// --------------------------------------------------------------------------
// Matching
// --------------------------------------------------------------------------

// evaluation is one rule's progress through a run.
type evaluation struct {
	rule        rules.Rule
	matched     []Occurrence
	observed    map[string]rules.Observation
	err         error
	unavailable bool

	mu         sync.Mutex
	deduped    int
	skipped    int
	sent       int
	failed     int
	reason     string
	deliveries []rules.Delivery
}

func (ev *evaluation) note(d Decision) {
	if d.Status == rules.OutcomeDeduped {
		ev.deduped++
	} else {
		ev.skipped++
	}
	if ev.reason == "" {
		ev.reason = d.Reason
	}
}

// held drops the observation for ref so the milestone is evaluated against
// the old value again next run.
func (ev *evaluation) held(ref string) {
	delete(ev.observed, ref)
}

func (ev *evaluation) outcome() rules.RuleOutcome {
	row := rules.RuleOutcome{
		RuleID:     ev.rule.ID,
		Name:       ev.rule.Name,
		EventType:  ev.rule.EventType,
		Matched:    len(ev.matched),
		Sent:       ev.sent,
		Deduped:    ev.deduped,
		Skipped:    ev.skipped,
		Failed:     ev.failed,
		Reason:     ev.reason,
		Deliveries: ev.deliveries,
	}
	switch {
	case ev.unavailable:
		row.Status, row.Reason = rules.OutcomeError, "source unavailable"
	case ev.err != nil:
		row.Status, row.Reason = rules.OutcomeError, "evaluation failed"
	case ev.sent > 0:
		row.Status = rules.OutcomeSent
	case ev.failed > 0:
		row.Status = rules.OutcomeError
		if row.Reason == "" {
			row.Reason = "delivery failed"
		}
	case row.Matched == 0:
		row.Status = rules.OutcomeNoMatch
	default:
		row.Status = rules.OutcomeSkipped
	}
	return row
}

func isMilestone(t rules.EventType) bool {
	return t == rules.EventRankingMilestone || t == rules.EventTitleMilestone
}

// matchAll evaluates every rule against the occurrences on a bounded pool.
// A panic or error in one rule only marks that rule.
func (e *Engine) matchAll(ctx context.Context, active []rules.Rule, occs []Occurrence, fetched fetchReport, now time.Time) []evaluation {
	evals := make([]evaluation, len(active))
	for i := range active {
		evals[i].rule = active[i]
	}

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i := range evals {
		ev := &evals[i]
		if fetched.blocks(&ev.rule) {
			ev.unavailable = true
			continue
		}
		g.Go(func() error {
			ev.err = evaluate(ctx, ev, occs, now)
			if ev.err != nil {
				e.logger.Warn("rule evaluation failed", "rule_id", ev.rule.ID, "error", ev.err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return evals
}

func evaluate(ctx context.Context, ev *evaluation, occs []Occurrence, now time.Time) (err error) {
	rule := &ev.rule
	defer func() {
		if r := recover(); r != nil {
			ev.matched, ev.observed = nil, nil
			err = &RuleEvaluationError{RuleID: rule.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if !rule.EventType.Known() {
		return &RuleEvaluationError{RuleID: rule.ID, Err: fmt.Errorf("unknown event type %q", rule.EventType)}
	}
	milestone := isMilestone(rule.EventType)
	if milestone {
		ev.observed = make(map[string]rules.Observation)
	}

	for i := range occs {
		if i%256 == 0 && ctx.Err() != nil {
			return &RuleEvaluationError{RuleID: rule.ID, Err: ctx.Err()}
		}
		occ := &occs[i]
		if occ.EventType != rule.EventType {
			continue
		}
		if Match(rule, occ, rule.State) {
			o := *occ
			if milestone {
				o.Fingerprint = MilestoneFingerprint(&o, rule.State)
			}
			ev.matched = append(ev.matched, o)
		}
		if milestone && rule.Tour.Includes(occ.Tour) {
			ev.observed[occ.Ref] = rules.Observation{Rank: occ.Rank, Titles: occ.Titles, ObservedAt: now}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Dispatching
// --------------------------------------------------------------------------

type pendingAlert struct {
	eval  *evaluation
	alert Alert
}

func (e *Engine) dispatchAll(ctx context.Context, alerts []*pendingAlert, now time.Time) {
	if len(alerts) == 0 {
		return
	}
	settings := e.store.Settings()

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for _, pa := range alerts {
		g.Go(func() error {
			e.deliver(ctx, settings, pa, now)
			return nil
		})
	}
	_ = g.Wait()
}

// deliver dispatches one alert and records it: any channel sent records the
// fingerprint and moves the cooldown clock; errors without a send record the
// fingerprint only; all skipped records nothing.
func (e *Engine) deliver(ctx context.Context, settings rules.Settings, pa *pendingAlert, now time.Time) {
	a := &pa.alert
	ev := pa.eval
	msg := Render(a)
	results := e.dispatcher.Dispatch(ctx, settings, msg, a.Channels)

	status := rules.OutcomeSkipped
	for _, r := range results {
		if r.Status == rules.OutcomeSent {
			status = rules.OutcomeSent
			break
		}
		if r.Status == rules.OutcomeError {
			status = rules.OutcomeError
		}
	}

	if status != rules.OutcomeSkipped {
		err := e.store.RecordDelivery(context.WithoutCancel(ctx), a.Rule.ID, a.Occurrence.Fingerprint, status == rules.OutcomeSent, now)
		if err != nil {
			e.logger.Warn("record delivery failed", "rule_id", a.Rule.ID, "fingerprint", a.Occurrence.Fingerprint, "error", err)
		}
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.deliveries = append(ev.deliveries, rules.Delivery{
		Fingerprint: a.Occurrence.Fingerprint,
		Title:       msg.Title,
		Status:      status,
		Channels:    results,
	})
	switch status {
	case rules.OutcomeSent:
		ev.sent++
	case rules.OutcomeError:
		ev.failed++
		ev.held(a.Occurrence.Ref)
	default:
		ev.skipped++
		ev.held(a.Occurrence.Ref)
		if ev.reason == "" {
			ev.reason = "channels not configured"
		}
	}
}
