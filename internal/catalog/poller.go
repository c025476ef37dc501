package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jvsview/internal/logger"
	"jvsview/internal/models"
)

const DefaultInterval = 10 * time.Second

// Lister is the part of Client the poller depends on.
type Lister interface {
	ListStreams(ctx context.Context) ([]models.StreamSummary, error)
}

// Recorder receives refresh outcomes, typically the metrics registry.
type Recorder interface {
	RefreshSucceeded(streams int)
	RefreshFailed()
}

// Snapshot is the result of the last successful refresh.
type Snapshot struct {
	Streams   []models.StreamSummary
	FetchedAt time.Time
	Seq       uint64
}

// Poller refreshes the catalog on a fixed interval and on demand, and fans
// each new snapshot out to subscribers. A failed refresh keeps the previous
// snapshot and publishes nothing.
type Poller struct {
	lister   Lister
	interval time.Duration
	log      *slog.Logger
	recorder Recorder

	mu      sync.RWMutex
	current Snapshot
	paused  bool

	subMu       sync.Mutex
	subscribers map[chan Snapshot]struct{}

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}

	trigger    chan struct{}
	pollNotify chan struct{}
}

type PollerOption func(*Poller)

func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.log = l }
}

func WithRecorder(r Recorder) PollerOption {
	return func(p *Poller) { p.recorder = r }
}

func NewPoller(l Lister, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		lister:      l,
		interval:    interval,
		log:         logger.Discard(),
		subscribers: make(map[chan Snapshot]struct{}),
		trigger:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		p.done = make(chan struct{})
		go p.run(ctx)
	})
}

func (p *Poller) Stop() {
	if p.cancel != nil && p.done != nil {
		p.cancel()
		<-p.done
	}
}

// Refresh requests an immediate refresh. Requests made while one is already
// pending are coalesced. Refresh runs even while the poller is paused.
func (p *Poller) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Pause suppresses timer-driven refreshes until Resume is called.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.log.Debug("background refresh paused")
	}
	p.paused = true
}

func (p *Poller) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.log.Debug("background refresh resumed")
	}
	p.paused = false
}

func (p *Poller) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// Current returns the last successful snapshot. Seq is 0 until the first
// refresh succeeds.
func (p *Poller) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Poller) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 1)
	p.subMu.Lock()
	p.subscribers[ch] = struct{}{}
	p.subMu.Unlock()
	return ch
}

func (p *Poller) Unsubscribe(ch chan Snapshot) {
	p.subMu.Lock()
	_, exists := p.subscribers[ch]
	delete(p.subscribers, ch)
	p.subMu.Unlock()
	if exists {
		close(ch)
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Paused() {
				continue
			}
			p.poll(ctx)
		case <-p.trigger:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	defer p.notifyPolled()

	p.log.Debug("loading catalog")
	streams, err := p.lister.ListStreams(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("catalog refresh failed", "error", err)
		if p.recorder != nil {
			p.recorder.RefreshFailed()
		}
		return
	}

	p.mu.Lock()
	p.current = Snapshot{
		Streams:   streams,
		FetchedAt: time.Now().UTC(),
		Seq:       p.current.Seq + 1,
	}
	snapshot := p.current
	p.mu.Unlock()

	p.log.Debug("catalog loaded", "streams", len(streams), "seq", snapshot.Seq)
	if p.recorder != nil {
		p.recorder.RefreshSucceeded(len(streams))
	}
	p.publish(snapshot)
}

func (p *Poller) publish(snapshot Snapshot) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for ch := range p.subscribers {
		// Drop a stale pending snapshot so subscribers always see the latest.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (p *Poller) notifyPolled() {
	if p.pollNotify != nil {
		select {
		case p.pollNotify <- struct{}{}:
		default:
		}
	}
}
