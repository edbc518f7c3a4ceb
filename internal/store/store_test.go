package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/courtwatch/internal/config"
	"github.com/albapepper/courtwatch/internal/db"
	"github.com/albapepper/courtwatch/internal/rules"
)

func sampleRule(name string) rules.Rule {
	return rules.Rule{
		Name:      name,
		Enabled:   true,
		EventType: rules.EventMatchResult,
		Tour:      rules.TourATP,
		Channels:  []rules.Channel{rules.ChannelEmail},
	}
}

func openMemory(t *testing.T, limit int) (*Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend(nil)
	s, err := Open(context.Background(), backend, limit, nil)
	require.NoError(t, err)
	return s, backend
}

func TestCreateRuleAssignsIDAndStripsState(t *testing.T) {
	s, backend := openMemory(t, 10)
	ctx := context.Background()

	in := sampleRule("Results")
	in.ID = "client-chosen"
	in.State.Sent = map[string]time.Time{"fp": time.Now()}

	created, err := s.CreateRule(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Len(t, created.ID, 36)
	assert.Empty(t, created.State.Sent)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, rules.RoundAny, created.RoundMode, "normalized")
	assert.Equal(t, 1, backend.Saves())

	got, err := s.GetRule(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
}

func TestCreateRuleRejectsInvalid(t *testing.T) {
	s, backend := openMemory(t, 10)

	r := sampleRule("No channels")
	r.Channels = nil
	_, err := s.CreateRule(context.Background(), r)

	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, s.ListRules())
	assert.Zero(t, backend.Saves())
}

func TestUpdateRuleKeepsState(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()

	created, err := s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordDelivery(ctx, created.ID, "fp-1", true, at))

	edit := sampleRule("Renamed")
	edit.State = rules.State{} // ignored
	updated, err := s.UpdateRule(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.State.HasSent("fp-1"))
	assert.Equal(t, at, updated.State.LastSentAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	edit.EventType = rules.EventUpsetAlert
	updated, err = s.UpdateRule(ctx, created.ID, edit)
	require.NoError(t, err)
	assert.False(t, updated.State.HasSent("fp-1"), "event type change drops fingerprints")
	assert.Equal(t, at, updated.State.LastSentAt)

	_, err = s.UpdateRule(ctx, "missing", edit)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAndSetEnabled(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()

	r := sampleRule("Draft")
	r.Enabled = false
	r.Channels = nil
	created, err := s.CreateRule(ctx, r)
	require.NoError(t, err)

	_, err = s.SetEnabled(ctx, created.ID, true)
	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr, "enabled rule needs a channel")
	got, _ := s.GetRule(created.ID)
	assert.False(t, got.Enabled, "rolled back")

	disabled, err := s.SetEnabled(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)

	require.NoError(t, s.DeleteRule(ctx, created.ID))
	assert.ErrorIs(t, s.DeleteRule(ctx, created.ID), ErrNotFound)
	_, err = s.GetRule(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveFailureRollsBack(t *testing.T) {
	s, backend := openMemory(t, 10)
	ctx := context.Background()

	backend.Err = errors.New("disk full")
	_, err := s.CreateRule(ctx, sampleRule("Results"))
	require.Error(t, err)
	assert.Empty(t, s.ListRules())

	backend.Err = nil
	_, err = s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)
	assert.Len(t, s.ListRules(), 1)
}

func TestImportRules(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()

	first, err := s.ImportRules(ctx, []rules.Rule{
		{ID: "a", Name: "A", Enabled: true, EventType: rules.EventMatchResult, Channels: []rules.Channel{rules.ChannelEmail}},
		{Name: "B", Enabled: true, EventType: rules.EventUpsetAlert, Channels: []rules.Channel{rules.ChannelDiscord}},
	}, false)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].ID)
	assert.NotEmpty(t, first[1].ID)
	require.NoError(t, s.RecordDelivery(ctx, "a", "fp", true, time.Now()))

	t.Run("merge keeps state", func(t *testing.T) {
		_, err := s.ImportRules(ctx, []rules.Rule{
			{ID: "a", Name: "A2", Enabled: true, EventType: rules.EventMatchResult, Channels: []rules.Channel{rules.ChannelEmail}},
		}, false)
		require.NoError(t, err)
		assert.Len(t, s.ListRules(), 2)
		a, err := s.GetRule("a")
		require.NoError(t, err)
		assert.Equal(t, "A2", a.Name)
		assert.True(t, a.State.HasSent("fp"))
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		_, err := s.ImportRules(ctx, []rules.Rule{
			{ID: "x", Name: "X", EventType: rules.EventMatchResult},
			{ID: "x", Name: "Y", EventType: rules.EventMatchResult},
		}, false)
		var verr *rules.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, s.ListRules(), 2)
	})

	t.Run("replace drops absent rules", func(t *testing.T) {
		_, err := s.ImportRules(ctx, []rules.Rule{
			{ID: "a", Name: "A3", Enabled: true, EventType: rules.EventMatchResult, Channels: []rules.Channel{rules.ChannelEmail}},
		}, true)
		require.NoError(t, err)
		list := s.ListRules()
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0].ID)
	})
}

func TestRecordDelivery(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()
	created, err := s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)

	t0 := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordDelivery(ctx, created.ID, "failed-fp", false, t0))
	got, _ := s.GetRule(created.ID)
	assert.True(t, got.State.HasSent("failed-fp"))
	assert.True(t, got.State.LastSentAt.IsZero(), "failed attempt does not start cooldown")

	require.NoError(t, s.RecordDelivery(ctx, created.ID, "sent-fp", true, t0.Add(time.Minute)))
	got, _ = s.GetRule(created.ID)
	assert.Equal(t, t0.Add(time.Minute), got.State.LastSentAt)

	assert.NoError(t, s.RecordDelivery(ctx, "deleted", "fp", true, t0), "unknown rule ignored")
}

func TestObservationsAndEviction(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()
	created, err := s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.AddDate(0, 3, 0)
	require.NoError(t, s.RecordDelivery(ctx, created.ID, "old", true, old))
	require.NoError(t, s.RecordDelivery(ctx, created.ID, "new", true, recent))
	require.NoError(t, s.RecordObservations(ctx, created.ID, map[string]rules.Observation{
		"sinner":  {Rank: 1, ObservedAt: old},
		"alcaraz": {Rank: 2, ObservedAt: recent},
	}))

	removed, err := s.EvictBefore(ctx, old.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, _ := s.GetRule(created.ID)
	assert.False(t, got.State.HasSent("old"))
	assert.True(t, got.State.HasSent("new"))
	assert.NotContains(t, got.State.Observed, "sinner")
	assert.Contains(t, got.State.Observed, "alcaraz")

	removed, err = s.EvictBefore(ctx, old)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestHistoryBounded(t *testing.T) {
	s, _ := openMemory(t, 3)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, s.AppendHistory(ctx, rules.RunResult{
			ID:        string(rune('a' + i)),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	all := s.History(0)
	require.Len(t, all, 3)
	assert.Equal(t, "e", all[0].ID, "newest first")
	assert.Equal(t, "c", all[2].ID)
	assert.Len(t, s.History(2), 2)

	removed, err := s.PruneHistory(ctx, base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, s.History(0), 1)

	require.NoError(t, s.ClearHistory(ctx))
	assert.Empty(t, s.History(0))
}

func TestUpdateSettings(t *testing.T) {
	s, _ := openMemory(t, 10)
	ctx := context.Background()

	_, err := s.UpdateSettings(ctx, rules.Settings{NotificationEmail: "not an address"})
	var verr *rules.ValidationError
	require.ErrorAs(t, err, &verr)

	saved, err := s.UpdateSettings(ctx, rules.Settings{NotificationEmail: "fan@example.com", TelegramChatID: "12345"})
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.Equal(t, "fan@example.com", s.Settings().NotificationEmail)
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	ctx := context.Background()

	s, err := Open(ctx, NewFileBackend(path), 10, nil)
	require.NoError(t, err)
	created, err := s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)
	require.NoError(t, s.RecordDelivery(ctx, created.ID, "fp", true, time.Now().UTC()))
	require.NoError(t, s.AppendHistory(ctx, rules.RunResult{ID: "run-1", Status: rules.RunOK}))

	reopened, err := Open(ctx, NewFileBackend(path), 10, nil)
	require.NoError(t, err)
	got, err := reopened.GetRule(created.ID)
	require.NoError(t, err)
	assert.True(t, got.State.HasSent("fp"))
	require.Len(t, reopened.History(0), 1)
	assert.Equal(t, rules.RunOK, reopened.History(0)[0].Status)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
	assert.NoError(t, reopened.Ping(ctx))
}

func TestFileBackendCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(context.Background(), NewFileBackend(path), 10, nil)
	assert.Error(t, err)
}

func TestPostgresBackend(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.New(ctx, &config.Config{
		DatabaseURL:    url,
		DBPoolMinConns: 1,
		DBPoolMaxConns: 2,
		DBPoolMaxLife:  time.Minute,
	})
	require.NoError(t, err)
	defer pool.Close()

	backend := NewPostgresBackend(pool)
	require.NoError(t, backend.Save(ctx, &Snapshot{}))

	s, err := Open(ctx, backend, 10, nil)
	require.NoError(t, err)
	created, err := s.CreateRule(ctx, sampleRule("Results"))
	require.NoError(t, err)
	require.NoError(t, s.AppendHistory(ctx, rules.RunResult{ID: "run-1", StartedAt: time.Now().UTC()}))

	snap, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rules, 1)
	assert.Equal(t, created.ID, snap.Rules[0].ID)
	require.Len(t, snap.History, 1)

	require.NoError(t, s.DeleteRule(ctx, created.ID))
	snap, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Rules)
}
