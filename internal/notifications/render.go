package notifications

import (
	"fmt"
	"strings"

	"github.com/albapepper/courtwatch/internal/delivery"
	"github.com/albapepper/courtwatch/internal/provider"
	"github.com/albapepper/courtwatch/internal/rules"
)

// roundNames are the display names for canonical round codes.
var roundNames = map[string]string{
	"Q1":   "Qualifying R1",
	"Q2":   "Qualifying R2",
	"Q3":   "Qualifying R3",
	"R128": "Round of 128",
	"R64":  "Round of 64",
	"R32":  "Round of 32",
	"R16":  "Round of 16",
	"QF":   "Quarterfinal",
	"SF":   "Semifinal",
	"F":    "Final",
}

// Render turns an alert into a channel-neutral message.
func Render(a *Alert) delivery.Message {
	o := &a.Occurrence
	msg := delivery.Message{
		Title:     title(o),
		Body:      body(o),
		Severity:  a.Rule.Severity,
		Tag:       o.Fingerprint,
		Timestamp: o.ScheduledAt,
	}
	if msg.Severity == "" {
		msg.Severity = rules.SeverityNormal
	}
	if o.Subject != nil {
		msg.ImageURL = o.Subject.ImageURL
	} else if o.Winner != nil {
		msg.ImageURL = o.Winner.ImageURL
	}

	if o.Tournament.Name != "" {
		msg.Fields = append(msg.Fields, delivery.Field{Name: "Tournament", Value: o.Tournament.Name})
	}
	if o.Round != "" {
		msg.Fields = append(msg.Fields, delivery.Field{Name: "Round", Value: roundName(o.Round)})
	}
	if o.Tournament.Surface != "" {
		msg.Fields = append(msg.Fields, delivery.Field{Name: "Surface", Value: titleCase(o.Tournament.Surface)})
	}
	if o.ScoreLine != "" {
		msg.Fields = append(msg.Fields, delivery.Field{Name: "Score", Value: o.ScoreLine})
	}
	msg.Fields = append(msg.Fields, delivery.Field{Name: "Rule", Value: a.Rule.Name})
	return msg
}

func title(o *Occurrence) string {
	switch o.EventType {
	case rules.EventUpcomingMatch:
		return "Upcoming: " + versus(o)
	case rules.EventLiveMatchStarts:
		return "Live now: " + versus(o)
	case rules.EventSetCompleted:
		return fmt.Sprintf("%s set: %s", ordinal(o.SetNumber), versus(o))
	case rules.EventMatchResult:
		return fmt.Sprintf("%s def. %s", name(o.Winner), name(o.Loser))
	case rules.EventUpsetAlert:
		return fmt.Sprintf("Upset: %s def. %s", name(o.Winner), name(o.Loser))
	case rules.EventCloseMatchDecidingSet:
		if o.DecidingKind == rules.DecidingTiebreak {
			return "Tiebreak: " + versus(o)
		}
		return "Deciding set: " + versus(o)
	case rules.EventPlayerReachesRound:
		return fmt.Sprintf("%s reaches the %s", name(o.Subject), roundName(o.Round))
	case rules.EventTournamentStage:
		return fmt.Sprintf("%s %s: %s", o.Tournament.Name, roundName(o.Round), versus(o))
	case rules.EventSurfaceSpecificResult:
		return fmt.Sprintf("%s result: %s def. %s", titleCase(o.Tournament.Surface), name(o.Winner), name(o.Loser))
	case rules.EventTimeWindowSchedule:
		return fmt.Sprintf("Starting in %s: %s", hoursLabel(o.HoursUntil), versus(o))
	case rules.EventRankingMilestone:
		return fmt.Sprintf("%s reaches No. %d", name(o.Subject), o.Rank)
	case rules.EventTitleMilestone:
		return fmt.Sprintf("%s wins %s title", name(o.Subject), ordinal(o.Titles))
	case rules.EventHeadToHeadBreaker:
		return fmt.Sprintf("%s snaps losing streak against %s", name(o.Subject), name(o.Rival))
	case rules.EventTournamentCompleted:
		return fmt.Sprintf("%s wins %s", name(o.Winner), o.Tournament.Name)
	}
	return string(o.EventType)
}

func body(o *Occurrence) string {
	switch o.EventType {
	case rules.EventUpcomingMatch, rules.EventTournamentStage, rules.EventTimeWindowSchedule:
		if o.ScheduledAt.IsZero() {
			return versus(o) + ", time to be announced."
		}
		return fmt.Sprintf("%s, scheduled %s UTC.", versus(o), o.ScheduledAt.UTC().Format("Mon 2 Jan 15:04"))
	case rules.EventLiveMatchStarts:
		return versus(o) + " is underway."
	case rules.EventSetCompleted:
		return fmt.Sprintf("%s set completed. Score: %s.", ordinal(o.SetNumber), o.ScoreLine)
	case rules.EventMatchResult, rules.EventSurfaceSpecificResult, rules.EventTournamentCompleted:
		return fmt.Sprintf("%s def. %s %s.", name(o.Winner), name(o.Loser), o.ScoreLine)
	case rules.EventUpsetAlert:
		return fmt.Sprintf("%s (No. %d) def. %s (No. %d) %s, a gap of %d places.",
			name(o.Winner), o.Winner.Rank, name(o.Loser), o.Loser.Rank, o.ScoreLine, o.RankGap)
	case rules.EventCloseMatchDecidingSet:
		if o.DecidingKind == rules.DecidingTiebreak {
			return fmt.Sprintf("%s went to a tiebreak. Score: %s.", versus(o), o.ScoreLine)
		}
		return fmt.Sprintf("%s went the distance. Score: %s.", versus(o), o.ScoreLine)
	case rules.EventPlayerReachesRound:
		return fmt.Sprintf("%s is into the %s at %s.", name(o.Subject), roundName(o.Round), o.Tournament.Name)
	case rules.EventRankingMilestone:
		if o.CareerHigh > 0 && o.Rank <= o.CareerHigh {
			return fmt.Sprintf("%s is ranked No. %d, a career high.", name(o.Subject), o.Rank)
		}
		return fmt.Sprintf("%s is ranked No. %d.", name(o.Subject), o.Rank)
	case rules.EventTitleMilestone:
		return fmt.Sprintf("%s now has %d career titles.", name(o.Subject), o.Titles)
	case rules.EventHeadToHeadBreaker:
		return fmt.Sprintf("%s beat %s %s after %d straight losses.", name(o.Subject), name(o.Rival), o.ScoreLine, o.LossStreak)
	}
	return ""
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func name(c *provider.Competitor) string {
	if c == nil || c.Name == "" {
		return "TBD"
	}
	return c.Name
}

func versus(o *Occurrence) string {
	if len(o.Players) < 2 {
		return strings.Join(o.Names(), ", ")
	}
	return name(&o.Players[0]) + " vs " + name(&o.Players[1])
}

func roundName(round string) string {
	if code, ok := rules.ParseRound(round); ok {
		return roundNames[code]
	}
	return round
}

func hoursLabel(h float64) string {
	switch {
	case h < 1:
		return fmt.Sprintf("%d min", int(h*60))
	case h < 1.5:
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", int(h+0.5))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func ordinal(n int) string {
	return fmt.Sprintf("%d%s", n, ordinalSuffix(n))
}

func ordinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
