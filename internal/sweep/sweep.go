// Package sweep runs the periodic featured-flag sweeper.
//
// Featured expiry is time-driven: reads already derive the real state, but
// the stored flags still need to be written back so queries and dashboards
// see honest data. The sweeper does that write-back on an interval.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/metrics"
	"github.com/mtaani/soko/internal/repository"
)

// Sweeper periodically clears expired featured flags.
type Sweeper struct {
	listings repository.ListingStore
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a Sweeper. Start it with Start() and stop it with Stop().
func New(listings repository.ListingStore, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		listings: listings,
		interval: interval,
		clock:    clk,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in a background goroutine. One sweep runs
// immediately so a restart does not leave stale flags waiting a full
// interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("featured-flag sweeper started", "interval", s.interval)
}

// Stop signals the sweeper to stop and waits for the in-flight sweep.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("featured-flag sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cleared, err := s.listings.ClearExpiredFeatured(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("featured-flag sweep failed", "error", err)
		return
	}
	if cleared > 0 {
		metrics.FeaturedFlagsSwept.Add(float64(cleared))
		s.logger.Info("cleared expired featured flags", "count", cleared)
	}
}
