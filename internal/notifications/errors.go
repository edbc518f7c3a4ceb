package notifications

import (
	"errors"
	"fmt"

	"github.com/albapepper/courtwatch/internal/rules"
)

// ErrRunInProgress is returned when a run is triggered while another holds
// the run lock.
var ErrRunInProgress = errors.New("notification run already in progress")

// FetchError is a feed that could not be fetched after all retries.
type FetchError struct {
	Feed     rules.Feed
	Tour     rules.Tour
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Tour != "" {
		return fmt.Sprintf("fetch %s/%s after %d attempts: %v", e.Feed, e.Tour, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s after %d attempts: %v", e.Feed, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RuleEvaluationError is a failure while evaluating one rule. It only ever
// affects that rule's row.
type RuleEvaluationError struct {
	RuleID string
	Err    error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("evaluate rule %s: %v", e.RuleID, e.Err)
}

func (e *RuleEvaluationError) Unwrap() error { return e.Err }

// ConfigurationError is a rule that cannot deliver as configured, such as an
// enabled rule without channels.
type ConfigurationError struct {
	RuleID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("rule %s misconfigured: %s", e.RuleID, e.Reason)
}
