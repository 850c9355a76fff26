package storage

import (
	"context"
	"slices"
	"sync"
)

// Artifacts tracks the temporary files owned by a single operation so they
// can all be removed when the operation settles, whatever the outcome.
type Artifacts struct {
	store Storage

	mu    sync.Mutex
	paths []string
}

// NewArtifacts creates an empty artifact set backed by store.
func NewArtifacts(store Storage) *Artifacts {
	return &Artifacts{store: store}
}

// Allocate reserves a fresh temp path and tracks it.
func (a *Artifacts) Allocate(stem, tag, ext string) string {
	p := a.store.TempPath(stem, tag, ext)
	a.Track(p)
	return p
}

// Track adds an externally created path to the set.
func (a *Artifacts) Track(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !slices.Contains(a.paths, path) {
		a.paths = append(a.paths, path)
	}
}

// Release stops tracking path without removing it. Used when an artifact is
// promoted to a caller-visible output.
func (a *Artifacts) Release(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = slices.DeleteFunc(a.paths, func(p string) bool { return p == path })
}

// Discard removes path immediately and stops tracking it.
func (a *Artifacts) Discard(ctx context.Context, path string) error {
	a.Release(path)
	return a.store.CleanupTemp(context.WithoutCancel(ctx), []string{path})
}

// Paths returns a copy of the tracked paths.
func (a *Artifacts) Paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.paths)
}

// Cleanup removes every tracked path. It runs even when ctx is already
// cancelled and returns the first removal failure.
func (a *Artifacts) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	paths := a.paths
	a.paths = nil
	a.mu.Unlock()

	if len(paths) == 0 {
		return nil
	}
	return a.store.CleanupTemp(context.WithoutCancel(ctx), paths)
}
