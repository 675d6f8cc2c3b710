// Package catalog resolves public track names to object-store keys.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrTrackNotFound reports that no track is registered under a name.
var ErrTrackNotFound = errors.New("track not found")

// Track is a catalog record. ObjectKey locates the audio bytes in the object
// store; ContentType, when set, overrides the type reported by the store.
type Track struct {
	Name        string
	ObjectKey   string
	ContentType string
}

// Repository looks up tracks by public name.
type Repository interface {
	Resolve(ctx context.Context, name string) (Track, error)
	Close(ctx context.Context) error
}

// MemoryRepository serves a fixed track set from process memory. It backs
// catalog-less test setups and small single-node deployments.
type MemoryRepository struct {
	mu     sync.RWMutex
	tracks map[string]Track
}

// NewMemoryRepository builds a repository holding the provided tracks.
func NewMemoryRepository(tracks ...Track) *MemoryRepository {
	repo := &MemoryRepository{tracks: make(map[string]Track, len(tracks))}
	for _, track := range tracks {
		repo.tracks[track.Name] = track
	}
	return repo
}

// Put registers or replaces a track.
func (r *MemoryRepository) Put(track Track) {
	r.mu.Lock()
	r.tracks[track.Name] = track
	r.mu.Unlock()
}

func (r *MemoryRepository) Resolve(_ context.Context, name string) (Track, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	track, ok := r.tracks[strings.TrimSpace(name)]
	if !ok {
		return Track{}, ErrTrackNotFound
	}
	return track, nil
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

// Names lists registered track names in stable order, for diagnostics.
func (r *MemoryRepository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tracks))
	for name := range r.tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
