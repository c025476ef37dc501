// Package scheduler runs daily housekeeping: it prunes playback history older
// than the configured retention.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jvsview/internal/logger"
)

const DefaultPruneTimeout = time.Minute

// Pruner deletes history that ended before cutoff.
type Pruner interface {
	PrunePlayback(ctx context.Context, cutoff time.Time) (int64, error)
}

type Scheduler struct {
	pruner       Pruner
	retention    time.Duration
	pruneTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Scheduler)

func WithPruneTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.pruneTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a scheduler that keeps retention worth of history. A
// non-positive retention disables pruning.
func New(p Pruner, retention time.Duration, opts ...Option) *Scheduler {
	sch := &Scheduler{
		pruner:       p,
		retention:    retention,
		pruneTimeout: DefaultPruneTimeout,
		log:          logger.Discard(),
		now:          time.Now,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sch)
	}
	return sch
}

// Start prunes immediately, then daily at 3 AM local time.
func (sch *Scheduler) Start(ctx context.Context) {
	sch.startOnce.Do(func() {
		ctx, sch.cancel = context.WithCancel(ctx)
		go sch.run(ctx)
	})
}

func (sch *Scheduler) Stop() {
	if sch.cancel != nil {
		sch.cancel()
		<-sch.done
	}
}

func (sch *Scheduler) run(ctx context.Context) {
	defer close(sch.done)

	if sch.retention <= 0 {
		sch.log.Info("history retention disabled")
		<-ctx.Done()
		return
	}

	if _, err := sch.Prune(ctx); err != nil {
		sch.log.Warn("initial history prune failed", "error", err)
	}

	timer := time.NewTimer(durationUntil3AM(sch.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := sch.Prune(ctx); err != nil {
				sch.log.Warn("daily history prune failed", "error", err)
			}
			// Recalculate to handle DST transitions
			timer.Reset(durationUntil3AM(sch.now()))
		}
	}
}

// Prune deletes playback history older than the retention window.
func (sch *Scheduler) Prune(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sch.pruneTimeout)
	defer cancel()

	cutoff := sch.now().UTC().Add(-sch.retention)
	n, err := sch.pruner.PrunePlayback(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sch.log.Info("pruned playback history", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}

func durationUntil3AM(now time.Time) time.Duration {
	next3AM := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
	if !now.Before(next3AM) {
		next3AM = time.Date(now.Year(), now.Month(), now.Day()+1, 3, 0, 0, 0, now.Location())
	}
	return next3AM.Sub(now)
}
