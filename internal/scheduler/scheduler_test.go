package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUntil3AM(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"before 3 AM today", time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC), time.Hour},
		{"at 3 AM exactly", time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC), 24 * time.Hour},
		{"after 3 AM", time.Date(2024, 1, 15, 15, 30, 0, 0, time.UTC), 11*time.Hour + 30*time.Minute},
		{"just before midnight", time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC), 3*time.Hour + time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, durationUntil3AM(tt.now))
		})
	}
}

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PrunePlayback(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 2, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestPruneCutoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &fakePruner{}
	sch := New(p, 30*24*time.Hour, WithClock(func() time.Time { return now }))

	n, err := sch.Prune(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC), p.cutoffs[0])
}

func TestPruneError(t *testing.T) {
	p := &fakePruner{err: errors.New("disk full")}
	_, err := New(p, time.Hour).Prune(context.Background())
	assert.Error(t, err)
}

func TestStartPrunesImmediately(t *testing.T) {
	p := &fakePruner{}
	sch := New(p, time.Hour)
	sch.Start(context.Background())
	defer sch.Stop()

	require.Eventually(t, func() bool { return p.calls() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDisabledRetention(t *testing.T) {
	p := &fakePruner{}
	sch := New(p, 0)
	sch.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	sch.Stop()
	assert.Zero(t, p.calls())
}
