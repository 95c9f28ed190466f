// Package store keeps fitted cointegration models in memory, refreshing
// them when they pass their expiry and persisting every update through a
// pluggable repository.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// Repository persists the full model mapping. Saves are wholesale: the
// entire mapping is written on every update so the on-disk copy never
// holds a partial view.
type Repository interface {
	LoadModels() (map[string]*models.CointegrationModel, error)
	SaveModels(map[string]*models.CointegrationModel) error
}

// FitFunc produces a fresh model for a pair. It is invoked outside the
// store's read lock so concurrent refreshes of different pairs proceed
// in parallel.
type FitFunc func(pair models.Pair) (*models.CointegrationModel, error)

// ModelStore is safe for concurrent use. Refreshes for the same pair are
// serialized; refreshes for distinct pairs are not.
type ModelStore struct {
	mu     sync.RWMutex
	models map[string]*models.CointegrationModel

	expiry time.Duration
	repo   Repository

	refreshMu sync.Mutex
	refreshes map[string]*sync.Mutex
}

// NewModelStore loads any persisted models through repo, discarding
// entries that are already expired at load time.
func NewModelStore(repo Repository, expiry time.Duration, now time.Time) (*ModelStore, error) {
	s := &ModelStore{
		models:    make(map[string]*models.CointegrationModel),
		expiry:    expiry,
		repo:      repo,
		refreshes: make(map[string]*sync.Mutex),
	}

	if repo != nil {
		loaded, err := repo.LoadModels()
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted models: %w", err)
		}
		for key, model := range loaded {
			if model == nil {
				continue
			}
			if now.Sub(model.FittedAt) >= expiry {
				continue
			}
			s.models[key] = model
		}
	}

	return s, nil
}

// Get returns the current model for the pair, expired or not. Callers
// that care about freshness use NeedsRefresh.
func (s *ModelStore) Get(pair models.Pair) (*models.CointegrationModel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, ok := s.models[pair.Key()]
	return model, ok
}

// NeedsRefresh reports whether the pair is absent or its model has
// reached the expiry interval. It does not mutate the store, so calling
// it repeatedly yields the same answer until a Put lands.
func (s *ModelStore) NeedsRefresh(pair models.Pair, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, ok := s.models[pair.Key()]
	if !ok {
		return true
	}
	return now.Sub(model.FittedAt) >= s.expiry
}

// Put replaces the pair's entry wholesale and persists the full mapping.
// The previous model stays in place if persistence fails.
func (s *ModelStore) Put(pair models.Pair, model *models.CointegrationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadPrevious := s.models[pair.Key()]
	s.models[pair.Key()] = model

	if s.repo != nil {
		if err := s.repo.SaveModels(s.snapshotLocked()); err != nil {
			if hadPrevious {
				s.models[pair.Key()] = previous
			} else {
				delete(s.models, pair.Key())
			}
			return fmt.Errorf("failed to persist models: %w", err)
		}
	}

	return nil
}

// Refresh fits a new model for the pair if its current one is missing or
// expired. At most one fit per pair runs at a time; a second caller for
// the same pair blocks, then observes the first caller's result and
// returns it without refitting.
func (s *ModelStore) Refresh(pair models.Pair, now time.Time, fit FitFunc) (*models.CointegrationModel, error) {
	if !s.NeedsRefresh(pair, now) {
		model, _ := s.Get(pair)
		return model, nil
	}

	lock := s.pairLock(pair)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited.
	if !s.NeedsRefresh(pair, now) {
		model, _ := s.Get(pair)
		return model, nil
	}

	model, err := fit(pair)
	if err != nil {
		return nil, err
	}
	if err := s.Put(pair, model); err != nil {
		return nil, err
	}
	return model, nil
}

// Snapshot returns a copy of the current mapping for display.
func (s *ModelStore) Snapshot() map[string]*models.CointegrationModel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

func (s *ModelStore) snapshotLocked() map[string]*models.CointegrationModel {
	out := make(map[string]*models.CointegrationModel, len(s.models))
	for key, model := range s.models {
		out[key] = model
	}
	return out
}

func (s *ModelStore) pairLock(pair models.Pair) *sync.Mutex {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	lock, ok := s.refreshes[pair.Key()]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshes[pair.Key()] = lock
	}
	return lock
}
