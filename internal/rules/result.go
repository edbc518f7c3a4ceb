package rules

import "time"

// Mode says how a run was triggered.
type Mode string

const (
	ModeScheduled Mode = "scheduled"
	ModeManual    Mode = "manual"
)

// Phase is the orchestrator's progress through a run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseExtracting  Phase = "extracting"
	PhaseMatching    Phase = "matching"
	PhaseGating      Phase = "gating"
	PhaseDispatching Phase = "dispatching"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// RunStatus summarises a finished run.
type RunStatus string

const (
	RunOK      RunStatus = "ok"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
	RunNoMatch RunStatus = "no_match"
)

// Outcome is the status of one rule in a run, or of one channel delivery.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeDeduped Outcome = "deduped"
)

// ChannelResult is the result of delivering one alert on one channel.
// Detail is a sanitized class, never raw transport error text.
type ChannelResult struct {
	Channel Channel `json:"channel"`
	Status  Outcome `json:"status"`
	Detail  string  `json:"detail,omitempty"`
}

// Delivery groups the channel results for one alert.
type Delivery struct {
	Fingerprint string          `json:"fingerprint"`
	Title       string          `json:"title"`
	Status      Outcome         `json:"status"`
	Channels    []ChannelResult `json:"channels"`
}

// RuleOutcome is one rule's row in a run result.
type RuleOutcome struct {
	RuleID     string     `json:"rule_id"`
	Name       string     `json:"name"`
	EventType  EventType  `json:"event_type"`
	Status     Outcome    `json:"status"`
	Matched    int        `json:"matched"`
	Sent       int        `json:"sent"`
	Deduped    int        `json:"deduped"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Reason     string     `json:"reason,omitempty"`
	Deliveries []Delivery `json:"deliveries,omitempty"`
}

// FeedStatus reports how one upstream feed fetch went.
type FeedStatus struct {
	Feed     Feed   `json:"feed"`
	Tour     Tour   `json:"tour,omitempty"`
	OK       bool   `json:"ok"`
	Items    int    `json:"items"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// RunResult is the record of one engine run, kept in the history log.
type RunResult struct {
	ID         string        `json:"id"`
	Mode       Mode          `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Phase      Phase         `json:"phase"`
	Status     RunStatus     `json:"status"`
	Matched    int           `json:"matched"`
	Sent       int           `json:"sent"`
	Summary    string        `json:"summary"`
	Feeds      []FeedStatus  `json:"feeds,omitempty"`
	Rules      []RuleOutcome `json:"rules"`
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
