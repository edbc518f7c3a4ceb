// Package provider defines the canonical tennis data types every upstream
// source normalizes into. These structs are the contract between a data
// client and the notification engine: clients output these, the event
// extractor reads them.
//
// Adding a new data source means implementing functions that return these
// types. The extractor and the rule matcher never change.
package provider

import (
	"time"

	"github.com/albapepper/courtwatch/internal/rules"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusFinished  MatchStatus = "finished"
)

// Ending says how a finished match was decided.
type Ending string

const (
	EndingCompleted Ending = ""
	EndingRetired   Ending = "retired"
	EndingWalkover  Ending = "walkover"
)

// Tournament is the canonical tournament shape.
type Tournament struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"` // "grand_slam", "masters_1000", "atp_500", ...
	Surface  string `json:"surface,omitempty"`  // "hard", "clay", "grass"
}

// Competitor is one side of a match.
type Competitor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Rank     int    `json:"rank,omitempty"` // 0 = unranked or unknown
	ImageURL string `json:"image_url,omitempty"`
}

// SetScore holds the games of one set. Tiebreak points are zero when the set
// had no tiebreak.
type SetScore struct {
	Games    [2]int `json:"games"`
	Tiebreak [2]int `json:"tiebreak,omitempty"`
}

// Match is the canonical match shape.
type Match struct {
	ID          string        `json:"id"`
	Tour        rules.Tour    `json:"tour"`
	Tournament  Tournament    `json:"tournament"`
	Round       string        `json:"round"`
	Status      MatchStatus   `json:"status"`
	BestOf      int           `json:"best_of,omitempty"` // 3 or 5, 0 = unknown (see MaxSets)
	ScheduledAt time.Time     `json:"scheduled_at"`
	Players     [2]Competitor `json:"players"`
	Sets        []SetScore    `json:"sets,omitempty"`
	Ending      Ending        `json:"ending,omitempty"`
	WinnerSide  int           `json:"winner_side,omitempty"` // 1 or 2 when upstream names the winner, 0 = unknown
}

// Player is the canonical ranking-list entry.
type Player struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Tour       rules.Tour `json:"tour"`
	Country    string     `json:"country,omitempty"`
	Rank       int        `json:"rank,omitempty"`
	CareerHigh int        `json:"career_high,omitempty"`
	Titles     int        `json:"titles,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
}

// Key identifies a player across feeds: the upstream id when present,
// otherwise the normalized name.
func (p Player) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return rules.NormalizeText(p.Name)
}

// Key identifies a competitor the same way Player.Key does.
func (c Competitor) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return rules.NormalizeText(c.Name)
}
