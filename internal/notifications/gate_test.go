package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtwatch/internal/rules"
)

func gateRule() rules.Rule {
	return rules.Rule{
		ID:        "r1",
		Name:      "Results",
		Enabled:   true,
		EventType: rules.EventMatchResult,
		Tour:      rules.TourBoth,
		Channels:  []rules.Channel{rules.ChannelEmail},
	}
}

func TestGateCooldownMonotonic(t *testing.T) {
	rule := gateRule()
	rule.CooldownMinutes = 30
	t0 := testNow
	state := rules.State{LastSentAt: t0}
	occ := &Occurrence{Fingerprint: "new"}
	g := Gate{Mode: rules.ModeScheduled}

	for _, offset := range []time.Duration{0, time.Minute, 29*time.Minute + 59*time.Second} {
		d := g.Admit(&rule, state, occ, t0.Add(offset))
		assert.False(t, d.Allow, "offset %s", offset)
		assert.Equal(t, ReasonCooldown, d.Reason)
		assert.Equal(t, rules.OutcomeSkipped, d.Status)
	}

	d := g.Admit(&rule, state, occ, t0.Add(30*time.Minute))
	assert.True(t, d.Allow, "cooldown ends at t0+C")
}

func TestQuietHoursWrapAround(t *testing.T) {
	rule := gateRule()
	rule.QuietHoursEnabled = true
	rule.QuietStartHour = 23
	rule.QuietEndHour = 7

	day := time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC)
	for h := range 24 {
		now := day.Add(time.Duration(h) * time.Hour)
		want := h >= 23 || h < 7
		assert.Equal(t, want, InQuietHours(&rule, now), "hour %d", h)
	}

	d := Gate{}.Admit(&rule, rules.State{}, &Occurrence{Fingerprint: "fp"}, day.Add(2*time.Hour))
	assert.Equal(t, ReasonQuietHours, d.Reason)
}

func TestQuietHoursTimezoneOffset(t *testing.T) {
	rule := gateRule()
	rule.QuietHoursEnabled = true
	rule.QuietStartHour = 22
	rule.QuietEndHour = 6

	// 17:00 UTC is 22:30 at +5.5.
	rule.TimezoneOffset = 5.5
	assert.True(t, InQuietHours(&rule, time.Date(2026, 7, 12, 17, 0, 0, 0, time.UTC)))

	// 03:00 UTC is 23:00 the previous day at -4.
	rule.TimezoneOffset = -4
	assert.True(t, InQuietHours(&rule, time.Date(2026, 7, 12, 3, 0, 0, 0, time.UTC)))
	assert.False(t, InQuietHours(&rule, time.Date(2026, 7, 12, 12, 0, 0, 0, time.UTC)))

	rule.QuietEndHour = rule.QuietStartHour
	assert.False(t, InQuietHours(&rule, time.Date(2026, 7, 12, 3, 0, 0, 0, time.UTC)), "empty window")
}

func TestGateDedup(t *testing.T) {
	rule := gateRule()
	state := rules.State{Sent: map[string]time.Time{"fp": testNow.Add(-time.Hour)}}
	occ := &Occurrence{Fingerprint: "fp"}

	d := Gate{Mode: rules.ModeScheduled}.Admit(&rule, state, occ, testNow)
	assert.False(t, d.Allow)
	assert.Equal(t, rules.OutcomeDeduped, d.Status)

	d = Gate{Mode: rules.ModeManual}.Admit(&rule, state, occ, testNow)
	assert.True(t, d.Allow, "manual runs bypass dedup")
}

func TestGateOrder(t *testing.T) {
	rule := gateRule()
	rule.Enabled = false
	rule.Channels = nil
	rule.CooldownMinutes = 60
	state := rules.State{LastSentAt: testNow, Sent: map[string]time.Time{"fp": testNow}}
	occ := &Occurrence{Fingerprint: "fp"}

	assert.Equal(t, ReasonDisabled, Gate{}.Admit(&rule, state, occ, testNow).Reason)
	rule.Enabled = true
	assert.Equal(t, ReasonDeduped, Gate{}.Admit(&rule, state, occ, testNow).Reason)
	occ.Fingerprint = "other"
	assert.Equal(t, ReasonCooldown, Gate{}.Admit(&rule, state, occ, testNow).Reason)
	rule.CooldownMinutes = 0
	d := Gate{}.Admit(&rule, state, occ, testNow)
	assert.Equal(t, ReasonNoChannels, d.Reason)
	assert.Equal(t, rules.OutcomeSkipped, d.Status)
	var cerr *ConfigurationError
	require.ErrorAs(t, d.Err, &cerr)
	assert.Equal(t, "r1", cerr.RuleID)

	rule.Channels = []rules.Channel{rules.ChannelEmail}
	assert.NoError(t, Gate{}.Admit(&rule, state, occ, testNow).Err)
}
