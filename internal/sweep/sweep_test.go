package sweep

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mtaani/soko/internal/clock"
	"github.com/mtaani/soko/internal/repository"
)

type stubListings struct {
	repository.ListingStore
	calls   atomic.Int64
	cleared int64
}

func (s *stubListings) ClearExpiredFeatured(_ context.Context, _ time.Time) (int64, error) {
	s.calls.Add(1)
	return s.cleared, nil
}

func TestSweeper_RunsImmediatelyAndStops(t *testing.T) {
	store := &stubListings{cleared: 2}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(store, time.Hour, clock.System(), logger)
	s.Start(context.Background())

	// The first sweep fires on start, not after the first interval.
	deadline := time.After(2 * time.Second)
	for store.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not run an initial sweep")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()
	assert.GreaterOrEqual(t, store.calls.Load(), int64(1))
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	store := &stubListings{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	s := New(store, 10*time.Millisecond, clock.System(), logger)
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not exit on context cancel")
	}
}
