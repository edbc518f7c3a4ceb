package rules

import (
	"strconv"
	"strings"
)

// Round codes ordered from earliest to latest. The rank of a round is its
// index + 1.
var roundOrder = []string{"Q1", "Q2", "Q3", "R128", "R64", "R32", "R16", "QF", "SF", "F"}

// roundAliases maps the spellings upstream feeds use onto round codes.
var roundAliases = map[string]string{
	"qualifying 1":         "Q1",
	"qualification 1":      "Q1",
	"1st round qualifying": "Q1",

	"qualifying 2":         "Q2",
	"qualification 2":      "Q2",
	"2nd round qualifying": "Q2",

	"qualifying 3":         "Q3",
	"qualification 3":      "Q3",
	"3rd round qualifying": "Q3",

	"round of 128": "R128",
	"1/64":         "R128",

	"round of 64": "R64",
	"1/32":        "R64",

	"round of 32": "R32",
	"1/16":        "R32",

	"round of 16": "R16",
	"1/8":         "R16",

	"quarterfinal":   "QF",
	"quarterfinals":  "QF",
	"quarter-final":  "QF",
	"quarter-finals": "QF",
	"1/4":            "QF",

	"semifinal":   "SF",
	"semifinals":  "SF",
	"semi-final":  "SF",
	"semi-finals": "SF",
	"1/2":         "SF",

	"final":  "F",
	"finals": "F",
}

// ParseRound resolves a round label ("QF", "Quarter-finals", "1/8") to its
// canonical code.
func ParseRound(label string) (string, bool) {
	s := strings.TrimSpace(label)
	if s == "" {
		return "", false
	}
	upper := strings.ToUpper(s)
	for _, code := range roundOrder {
		if upper == code {
			return code, true
		}
	}
	if code, ok := roundAliases[strings.ToLower(s)]; ok {
		return code, true
	}
	return "", false
}

// RoundRank returns the 1-based rank of a round label, or 0 when the label
// is not recognised.
func RoundRank(label string) int {
	code, ok := ParseRound(label)
	if !ok {
		return 0
	}
	for i, c := range roundOrder {
		if c == code {
			return i + 1
		}
	}
	return 0
}

// ParseRoundRank accepts either a round label or a numeric rank, as used by
// round_rank conditions.
func ParseRoundRank(value string) (int, bool) {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n, n > 0
	}
	rank := RoundRank(value)
	return rank, rank > 0
}
