// Package testutil provides shared test doubles and helpers.
package testutil

import (
	"context"
	"sync"

	"github.com/GabrielNunesIT/log-indexer/internal/model"
	"github.com/GabrielNunesIT/log-indexer/internal/sink"
)

// MemorySink records index actions in memory. It implements sink.Sink.
type MemorySink struct {
	mu       sync.Mutex
	actions  []model.IndexAction
	indexErr error
	started  bool
	stopped  bool
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes every subsequent Index call return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexErr = err
}

func (s *MemorySink) Name() string {
	return "memory"
}

func (s *MemorySink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *MemorySink) Index(ctx context.Context, action model.IndexAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexErr != nil {
		return s.indexErr
	}
	s.actions = append(s.actions, action)
	return nil
}

func (s *MemorySink) Stop(ctx context.Context) (sink.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return sink.Stats{Indexed: uint64(len(s.actions))}, nil
}

func (s *MemorySink) Stats() sink.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sink.Stats{Indexed: uint64(len(s.actions))}
}

// Actions returns a copy of everything indexed so far.
func (s *MemorySink) Actions() []model.IndexAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.IndexAction, len(s.actions))
	copy(out, s.actions)
	return out
}

func (s *MemorySink) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *MemorySink) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
