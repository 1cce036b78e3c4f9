package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dori/taskdeck/internal/model"
)

// Stats holds the latest consistent count snapshot from the server
type Stats struct {
	repo   Repository
	logger *slog.Logger

	mu   sync.Mutex
	snap model.TaskStats
	have bool
	err  error
	gen  uint64
}

// NewStats creates an empty stats holder
func NewStats(repo Repository, logger *slog.Logger) *Stats {
	return &Stats{repo: repo, logger: orDiscard(logger)}
}

// Refresh fetches a new snapshot. Snapshots where the counts do not add up
// are rejected and the previous snapshot is kept.
func (s *Stats) Refresh(ctx context.Context) (model.TaskStats, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	st, err := s.repo.Stats(ctx)
	if err == nil && !st.Consistent() {
		err = fmt.Errorf("%w: total=%d completed=%d pending=%d",
			ErrInconsistentStats, st.Total, st.Completed, st.Pending)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return model.TaskStats{}, ErrStale
	}
	if err != nil {
		s.err = err
		s.logger.Warn("refresh stats failed", "err", err)
		return model.TaskStats{}, err
	}
	s.snap = st
	s.have = true
	s.err = nil
	return st, nil
}

// Snapshot returns the last accepted snapshot
func (s *Stats) Snapshot() (model.TaskStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.have
}

func (s *Stats) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
