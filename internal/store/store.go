// Package store holds the persisted notification state: delivery settings,
// rules with their runtime state, and the bounded run history.
//
// The Store keeps the whole document in memory and writes it through a
// Backend after every mutation. A failed save rolls the in-memory copy back,
// so memory and backend never diverge.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/courtwatch/internal/rules"
)

// ErrNotFound is returned when a rule id does not exist.
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit bounds the run history when no limit is configured.
const DefaultHistoryLimit = 100

// Snapshot is the full persisted document.
type Snapshot struct {
	Settings rules.Settings    `json:"settings"`
	Rules    []rules.Rule      `json:"rules"`
	History  []rules.RunResult `json:"history"` // newest first
}

func (s *Snapshot) clone() Snapshot {
	out := Snapshot{
		Settings: s.Settings.Clone(),
		Rules:    make([]rules.Rule, len(s.Rules)),
		History:  append([]rules.RunResult(nil), s.History...),
	}
	for i := range s.Rules {
		out.Rules[i] = s.Rules[i].Clone()
	}
	return out
}

// Backend persists snapshots. Load returns an empty snapshot when nothing
// has been saved yet.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Ping(ctx context.Context) error
}

// Store is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	backend      Backend
	snap         Snapshot
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Open loads the current snapshot from backend.
func Open(ctx context.Context, backend Backend, historyLimit int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	s := &Store{
		backend:      backend,
		snap:         snap.clone(),
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}
	if len(s.snap.History) > historyLimit {
		s.snap.History = s.snap.History[:historyLimit]
	}
	logger.Info("Store loaded", "rules", len(s.snap.Rules), "history", len(s.snap.History))
	return s, nil
}

// mutate applies fn to the snapshot and saves it. On any error the snapshot
// is restored to its previous value.
func (s *Store) mutate(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snap.clone()
	if err := fn(&s.snap); err != nil {
		s.snap = prev
		return err
	}
	if err := s.backend.Save(ctx, &s.snap); err != nil {
		s.snap = prev
		return fmt.Errorf("save store: %w", err)
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.snap.Rules {
		if s.snap.Rules[i].ID == id {
			return i
		}
	}
	return -1
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// --------------------------------------------------------------------------
// Settings
// --------------------------------------------------------------------------

// Settings returns a copy of the delivery settings.
func (s *Store) Settings() rules.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Settings.Clone()
}

// UpdateSettings validates and replaces the delivery settings.
func (s *Store) UpdateSettings(ctx context.Context, settings rules.Settings) (rules.Settings, error) {
	if err := rules.ValidateSettings(&settings); err != nil {
		return rules.Settings{}, err
	}
	settings = settings.Clone()
	settings.UpdatedAt = s.now().UTC()
	err := s.mutate(ctx, func(snap *Snapshot) error {
		snap.Settings = settings
		return nil
	})
	if err != nil {
		return rules.Settings{}, err
	}
	return settings.Clone(), nil
}

// --------------------------------------------------------------------------
// Rules
// --------------------------------------------------------------------------

// ListRules returns copies of every rule in store order.
func (s *Store) ListRules() []rules.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rules.Rule, len(s.snap.Rules))
	for i := range s.snap.Rules {
		out[i] = s.snap.Rules[i].Clone()
	}
	return out
}

// GetRule returns a copy of one rule.
func (s *Store) GetRule(id string) (rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return rules.Rule{}, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return s.snap.Rules[i].Clone(), nil
}

// CreateRule validates r, assigns a fresh id and appends it. Runtime state
// supplied by the caller is discarded.
func (s *Store) CreateRule(ctx context.Context, r rules.Rule) (rules.Rule, error) {
	r = r.Clone()
	r.Normalize()
	r.ID = uuid.NewString()
	r.State = rules.State{}
	if err := rules.Validate(&r); err != nil {
		return rules.Rule{}, err
	}
	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	err := s.mutate(ctx, func(snap *Snapshot) error {
		snap.Rules = append(snap.Rules, r)
		return nil
	})
	if err != nil {
		return rules.Rule{}, err
	}
	return r.Clone(), nil
}

// UpdateRule replaces the authored fields of rule id with r. Runtime state
// and creation time are kept.
func (s *Store) UpdateRule(ctx context.Context, id string, r rules.Rule) (rules.Rule, error) {
	r = r.Clone()
	r.Normalize()
	r.ID = id
	if err := rules.Validate(&r); err != nil {
		return rules.Rule{}, err
	}

	var updated rules.Rule
	err := s.mutate(ctx, func(snap *Snapshot) error {
		i := s.indexOf(id)
		if i < 0 {
			return fmt.Errorf("rule %s: %w", id, ErrNotFound)
		}
		existing := snap.Rules[i]
		r.State = existing.State
		r.CreatedAt = existing.CreatedAt
		r.UpdatedAt = s.now().UTC()
		if existing.EventType != r.EventType {
			// Fingerprints and observations of another event type can never
			// match again.
			r.State = rules.State{LastSentAt: existing.State.LastSentAt}
		}
		snap.Rules[i] = r
		updated = r.Clone()
		return nil
	})
	if err != nil {
		return rules.Rule{}, err
	}
	return updated, nil
}

// DeleteRule removes rule id.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		i := s.indexOf(id)
		if i < 0 {
			return fmt.Errorf("rule %s: %w", id, ErrNotFound)
		}
		snap.Rules = append(snap.Rules[:i], snap.Rules[i+1:]...)
		return nil
	})
}

// SetEnabled toggles rule id. Enabling re-validates the rule, since an
// enabled rule must have at least one channel.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) (rules.Rule, error) {
	var updated rules.Rule
	err := s.mutate(ctx, func(snap *Snapshot) error {
		i := s.indexOf(id)
		if i < 0 {
			return fmt.Errorf("rule %s: %w", id, ErrNotFound)
		}
		r := &snap.Rules[i]
		r.Enabled = enabled
		if enabled {
			if err := rules.Validate(r); err != nil {
				return err
			}
		}
		r.UpdatedAt = s.now().UTC()
		updated = r.Clone()
		return nil
	})
	if err != nil {
		return rules.Rule{}, err
	}
	return updated, nil
}

// ImportRules validates a batch and stores it. Rules with an id that already
// exists replace that rule and keep its runtime state; rules without an id
// get a fresh one. With replace set, rules absent from the batch are
// deleted. The batch is rejected as a whole on any validation problem.
func (s *Store) ImportRules(ctx context.Context, batch []rules.Rule, replace bool) ([]rules.Rule, error) {
	incoming := make([]rules.Rule, len(batch))
	for i := range batch {
		r := batch[i].Clone()
		r.Normalize()
		r.State = rules.State{}
		incoming[i] = r
	}
	if err := rules.ValidateAll(incoming); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var imported []rules.Rule
	err := s.mutate(ctx, func(snap *Snapshot) error {
		existing := make(map[string]rules.Rule, len(snap.Rules))
		for _, r := range snap.Rules {
			existing[r.ID] = r
		}

		next := snap.Rules
		if replace {
			next = make([]rules.Rule, 0, len(incoming))
		}
		for _, r := range incoming {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			r.CreatedAt, r.UpdatedAt = now, now
			if prev, ok := existing[r.ID]; ok {
				r.CreatedAt = prev.CreatedAt
				if prev.EventType == r.EventType {
					r.State = prev.State
				}
			}
			if i := indexIn(next, r.ID); i >= 0 {
				next[i] = r
			} else {
				next = append(next, r)
			}
			imported = append(imported, r.Clone())
		}
		snap.Rules = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

func indexIn(list []rules.Rule, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// --------------------------------------------------------------------------
// Runtime state
// --------------------------------------------------------------------------

// RecordDelivery stores fingerprint as handled for rule id. sent moves
// the rule's cooldown clock; an attempted but failed delivery records only
// the fingerprint. A rule deleted mid-run is ignored.
func (s *Store) RecordDelivery(ctx context.Context, id, fingerprint string, sent bool, at time.Time) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		i := s.indexOf(id)
		if i < 0 {
			return nil
		}
		st := &snap.Rules[i].State
		if st.Sent == nil {
			st.Sent = make(map[string]time.Time)
		}
		st.Sent[fingerprint] = at
		if sent && at.After(st.LastSentAt) {
			st.LastSentAt = at
		}
		return nil
	})
}

// RecordObservations merges milestone observations into rule id's state.
func (s *Store) RecordObservations(ctx context.Context, id string, obs map[string]rules.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	return s.mutate(ctx, func(snap *Snapshot) error {
		i := s.indexOf(id)
		if i < 0 {
			return nil
		}
		st := &snap.Rules[i].State
		if st.Observed == nil {
			st.Observed = make(map[string]rules.Observation, len(obs))
		}
		for k, v := range obs {
			st.Observed[k] = v
		}
		return nil
	})
}

// EvictBefore drops fingerprints and observations recorded before cutoff
// from every rule and returns how many entries were removed.
func (s *Store) EvictBefore(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(snap *Snapshot) error {
		removed = 0
		for i := range snap.Rules {
			removed += snap.Rules[i].State.Evict(cutoff)
		}
		if removed == 0 {
			return errNothingChanged
		}
		return nil
	})
	if errors.Is(err, errNothingChanged) {
		return 0, nil
	}
	return removed, err
}

// errNothingChanged aborts a mutation without saving.
var errNothingChanged = errors.New("nothing changed")

// --------------------------------------------------------------------------
// History
// --------------------------------------------------------------------------

// AppendHistory prepends a run result, keeping at most the configured
// number of entries.
func (s *Store) AppendHistory(ctx context.Context, result rules.RunResult) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		snap.History = append([]rules.RunResult{result}, snap.History...)
		if len(snap.History) > s.historyLimit {
			snap.History = snap.History[:s.historyLimit]
		}
		return nil
	})
}

// History returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) History(limit int) []rules.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.snap.History)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]rules.RunResult(nil), s.snap.History[:n]...)
}

// ClearHistory deletes every history entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.mutate(ctx, func(snap *Snapshot) error {
		snap.History = nil
		return nil
	})
}

// PruneHistory deletes entries that started before cutoff.
func (s *Store) PruneHistory(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(snap *Snapshot) error {
		kept := snap.History[:0:0]
		for _, h := range snap.History {
			if h.StartedAt.Before(cutoff) {
				continue
			}
			kept = append(kept, h)
		}
		removed = len(snap.History) - len(kept)
		if removed == 0 {
			return errNothingChanged
		}
		snap.History = kept
		return nil
	})
	if errors.Is(err, errNothingChanged) {
		return 0, nil
	}
	return removed, err
}
