package notifications

import (
	"time"

	"github.com/albapepper/courtwatch/internal/rules"
)

// Gate reasons reported on rule rows.
const (
	ReasonDisabled   = "disabled"
	ReasonDeduped    = "deduped"
	ReasonQuietHours = "quiet_hours"
	ReasonCooldown   = "cooldown"
	ReasonNoChannels = "no_channels"
)

// Decision is the gate's verdict on one occurrence for one rule.
type Decision struct {
	Allow  bool
	Status rules.Outcome
	Reason string
	Err    error // set when the rule itself is misconfigured
}

// Gate admits or rejects matched occurrences. It never writes state; the
// orchestrator records deliveries after dispatch.
type Gate struct {
	// Mode manual bypasses dedup against earlier runs. Quiet hours and cooldown
	// still apply.
	Mode rules.Mode
}

// Admit checks, in order: enabled, dedup, quiet hours, cooldown, channels.
func (g Gate) Admit(rule *rules.Rule, state rules.State, occ *Occurrence, now time.Time) Decision {
	if !rule.Enabled {
		return Decision{Status: rules.OutcomeSkipped, Reason: ReasonDisabled}
	}
	if g.Mode != rules.ModeManual && state.HasSent(occ.Fingerprint) {
		return Decision{Status: rules.OutcomeDeduped, Reason: ReasonDeduped}
	}
	if InQuietHours(rule, now) {
		return Decision{Status: rules.OutcomeSkipped, Reason: ReasonQuietHours}
	}
	if InCooldown(rule, state, now) {
		return Decision{Status: rules.OutcomeSkipped, Reason: ReasonCooldown}
	}
	if len(rule.Channels) == 0 {
		return Decision{
			Status: rules.OutcomeSkipped,
			Reason: ReasonNoChannels,
			Err:    &ConfigurationError{RuleID: rule.ID, Reason: "no delivery channels"},
		}
	}
	return Decision{Allow: true}
}

// InCooldown reports whether now is within CooldownMinutes of the rule's
// last successful send.
func InCooldown(rule *rules.Rule, state rules.State, now time.Time) bool {
	if rule.CooldownMinutes <= 0 || state.LastSentAt.IsZero() {
		return false
	}
	return now.Sub(state.LastSentAt) < time.Duration(rule.CooldownMinutes)*time.Minute
}
