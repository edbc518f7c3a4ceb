package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps snapshots in process memory. Used by tests and by
// dry runs that must not touch the configured store.
type MemoryBackend struct {
	mu    sync.Mutex
	snap  Snapshot
	saves int
	Err   error // returned by Save when set
}

// NewMemoryBackend returns a backend seeded with snap (may be nil).
func NewMemoryBackend(snap *Snapshot) *MemoryBackend {
	b := &MemoryBackend{}
	if snap != nil {
		b.snap = snap.clone()
	}
	return b
}

func (b *MemoryBackend) Load(context.Context) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snap.clone()
	return &snap, nil
}

func (b *MemoryBackend) Save(_ context.Context, snap *Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.snap = snap.clone()
	b.saves++
	return nil
}

func (b *MemoryBackend) Ping(context.Context) error { return nil }

// Saves returns how many successful saves happened.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Snapshot returns a copy of the last saved snapshot.
func (b *MemoryBackend) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap.clone()
}
