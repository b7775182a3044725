package cachestore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Sweeper prunes expired cache references on a cron schedule, so long-lived
// processes don't accumulate dead registry rows.
type Sweeper struct {
	registry Registry
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper over a registry. schedule is a standard cron
// expression ("0 * * * *" for hourly); empty disables sweeping.
func NewSweeper(registry Registry, schedule string) *Sweeper {
	return &Sweeper{
		registry: registry,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cachestore.sweeper"),
	}
}

// Start begins scheduled pruning. A sweeper with no schedule starts as a
// no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.schedule == "" {
		s.logger.Debug("prune schedule not configured, sweeper idle")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("scheduling prune: %w", err)
	}
	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts scheduled pruning, waiting for an in-progress sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

func (s *Sweeper) sweep(ctx context.Context) {
	pruned, err := s.registry.PruneExpired(ctx)
	if err != nil {
		s.logger.Warn("cache prune failed", "error", err)
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned expired cache references", "count", pruned)
	}
}
