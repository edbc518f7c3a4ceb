package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/courtwatch/internal/delivery"
	"github.com/albapepper/courtwatch/internal/rules"
)

func TestRenderMatchResult(t *testing.T) {
	occ := resultOccurrence("SF")
	occ.ScoreLine = "6-3 6-4"
	occ.Fingerprint = "abc"
	rule := gateRule()
	rule.Severity = rules.SeverityImportant

	msg := Render(&Alert{Rule: rule, Occurrence: *occ})
	assert.Equal(t, "Carlos Alcaraz def. Novak Djoković", msg.Title)
	assert.Equal(t, rules.SeverityImportant, msg.Severity)
	assert.Equal(t, "abc", msg.Tag)
	assert.Contains(t, msg.Fields, delivery.Field{Name: "Round", Value: "Semifinal"})
	assert.Contains(t, msg.Fields, delivery.Field{Name: "Surface", Value: "Grass"})
	assert.Contains(t, msg.Fields, delivery.Field{Name: "Rule", Value: "Results"})
}

func TestRenderSetCompleted(t *testing.T) {
	occ := resultOccurrence("QF")
	occ.EventType = rules.EventSetCompleted
	occ.SetNumber = 2

	msg := Render(&Alert{Rule: gateRule(), Occurrence: *occ})
	assert.Equal(t, "2nd set: Carlos Alcaraz vs Novak Djoković", msg.Title)
	assert.Equal(t, rules.SeverityNormal, msg.Severity, "empty severity renders as normal")
}

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 102: "102nd"} {
		assert.Equal(t, want, ordinal(n))
	}
}
