// Package storage provides the room's durable collaborators: an opaque
// keyed snapshot store for room state and a stats store for gallery
// careers. In-memory implementations back both when no backend is
// configured; the in-memory room state stays authoritative either way.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/gallery"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore persists room state keyed by room code. Read on wake,
// written after mutating commands.
type SnapshotStore interface {
	Save(ctx context.Context, code string, state engine.State) error
	Load(ctx context.Context, code string) (engine.State, error)
	Delete(ctx context.Context, code string) error
}

// StatsStore persists gallery careers across games.
type StatsStore interface {
	SaveStats(ctx context.Context, stats []gallery.Stats) error
	LoadStats(ctx context.Context, spectatorIDs []string) ([]gallery.Stats, error)
}

// MemorySnapshotStore is the default store for rooms without redis.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	rooms map[string]engine.State
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{rooms: map[string]engine.State{}}
}

func (m *MemorySnapshotStore) Save(_ context.Context, code string, state engine.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[code] = state
	return nil
}

func (m *MemorySnapshotStore) Load(_ context.Context, code string) (engine.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rooms[code]
	if !ok {
		return engine.State{}, ErrNotFound
	}
	return s, nil
}

func (m *MemorySnapshotStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

// MemoryStatsStore is the default stats store without postgres.
type MemoryStatsStore struct {
	mu    sync.Mutex
	stats map[string]gallery.Stats
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{stats: map[string]gallery.Stats{}}
}

func (m *MemoryStatsStore) SaveStats(_ context.Context, stats []gallery.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stats {
		m.stats[s.SpectatorID] = s
	}
	return nil
}

func (m *MemoryStatsStore) LoadStats(_ context.Context, spectatorIDs []string) ([]gallery.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []gallery.Stats
	for _, id := range spectatorIDs {
		if s, ok := m.stats[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
