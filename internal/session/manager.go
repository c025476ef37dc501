package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jvsview/internal/logger"
	"jvsview/internal/models"
	"jvsview/internal/player"
)

var (
	ErrUnsupported = errors.New("runtime does not support the player")
	ErrClosed      = errors.New("session manager closed")
	ErrEmptyID     = errors.New("stream id is required")
)

const (
	DefaultClockSyncURI = "http://time.akamai.com/?iso"
	DefaultFetchTimeout = 15 * time.Second
	DefaultLoadTimeout  = time.Minute
	recordTimeout       = 5 * time.Second
	eventBuffer         = 16
)

// Fetcher resolves a stream id to its playback details.
type Fetcher interface {
	GetStreamDetail(ctx context.Context, id string) (models.StreamDetail, error)
}

// View is the playback panel wrapped around the video surface.
type View interface {
	ShowPlayback()
	HidePlayback()
}

// Recorder persists finished sessions.
type Recorder interface {
	RecordPlayback(ctx context.Context, rec models.PlaybackRecord) error
}

type Metrics interface {
	SessionStarted()
	SessionClosed(outcome models.PlaybackOutcome)
	PlayerError(code int)
}

type noopMetrics struct{}

func (noopMetrics) SessionStarted()                      {}
func (noopMetrics) SessionClosed(models.PlaybackOutcome) {}
func (noopMetrics) PlayerError(int)                      {}

// Session is the one live playback session. It is owned by the manager's
// event loop and never shared.
type Session struct {
	ID        uuid.UUID
	StreamID  string
	Manifest  string
	Surface   player.Surface
	Player    player.Player
	StartedAt time.Time

	gen     uint64
	reached bool
}

type event interface{}

type selectEvent struct{ id string }

type dismissEvent struct{}

type detailEvent struct {
	gen    uint64
	id     string
	detail models.StreamDetail
	err    error
}

type loadEvent struct {
	gen uint64
	err error
}

type playerErrorEvent struct {
	gen uint64
	err *player.Error
}

// Manager drives the Idle → Loading → Active lifecycle of the single
// playback session. All transitions run on one goroutine; public methods
// only enqueue events.
type Manager struct {
	fetcher   Fetcher
	library   player.Library
	surface   player.Surface
	view      View
	presenter *Presenter
	recorder  Recorder
	metrics   Metrics
	log       *slog.Logger
	now       func() time.Time

	clockSyncURI string
	fetchTimeout time.Duration
	loadTimeout  time.Duration

	events  chan event
	done    chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc

	// Owned by the event loop.
	state       State
	session     *Session
	gen         uint64
	pendingID   string
	viewVisible bool
	lastErr     string

	mu   sync.RWMutex
	snap Snapshot

	subMu       sync.Mutex
	subscribers map[chan Snapshot]struct{}
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithPresenter(p *Presenter) Option {
	return func(m *Manager) { m.presenter = p }
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

func WithMetrics(mt Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithClockSyncURI(uri string) Option {
	return func(m *Manager) { m.clockSyncURI = uri }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) { m.fetchTimeout = d }
}

func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) { m.loadTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(f Fetcher, lib player.Library, surface player.Surface, view View, opts ...Option) *Manager {
	m := &Manager{
		fetcher:      f,
		library:      lib,
		surface:      surface,
		view:         view,
		metrics:      noopMetrics{},
		log:          logger.Discard(),
		now:          time.Now,
		clockSyncURI: DefaultClockSyncURI,
		fetchTimeout: DefaultFetchTimeout,
		loadTimeout:  DefaultLoadTimeout,
		events:       make(chan event, eventBuffer),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
		subscribers:  make(map[chan Snapshot]struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.presenter == nil {
		m.presenter = NewPresenter(m.log, nil, m.metrics)
	}
	m.snap = Snapshot{State: StateIdle}
	return m
}

func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)
		m.started.Store(true)
		go m.run()
	})
}

// Close tears down any live session and stops the event loop.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	if m.started.Load() {
		<-m.stopped
	}
}

// Select starts playback of stream id, replacing any current session.
func (m *Manager) Select(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return m.submit(selectEvent{id: id})
}

// Dismiss closes the playback view and unloads the player.
func (m *Manager) Dismiss() error {
	return m.submit(dismissEvent{})
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Manager) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 1)
	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()
	return ch
}

func (m *Manager) Unsubscribe(ch chan Snapshot) {
	m.subMu.Lock()
	_, exists := m.subscribers[ch]
	delete(m.subscribers, ch)
	m.subMu.Unlock()
	if exists {
		close(ch)
	}
}

func (m *Manager) submit(ev event) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}
	select {
	case m.events <- ev:
		return nil
	case <-m.done:
		return ErrClosed
	case <-m.stopped:
		return ErrClosed
	}
}

// post is used by background goroutines; it gives up once the loop exits.
func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.stopped:
	}
}

func (m *Manager) run() {
	defer close(m.stopped)
	defer m.shutdown()

	for {
		select {
		case <-m.done:
			return
		case <-m.ctx.Done():
			return
		case ev := <-m.events:
			m.dispatch(ev)
		}
	}
}

func (m *Manager) shutdown() {
	m.teardown(models.OutcomeShutdown, 0)
	m.hideView()
	m.state = StateIdle
	m.publish()
	m.cancel()
}

func (m *Manager) dispatch(ev event) {
	switch ev := ev.(type) {
	case selectEvent:
		m.handleSelect(ev.id)
	case detailEvent:
		m.handleDetail(ev)
	case loadEvent:
		m.handleLoad(ev)
	case playerErrorEvent:
		m.handlePlayerError(ev)
	case dismissEvent:
		m.handleDismiss()
	}
}

func (m *Manager) handleSelect(id string) {
	m.log.Info("playback requested", "stream_id", id)

	// The previous player must be gone before a new one can be built.
	m.teardown(models.OutcomeSuperseded, 0)
	if m.viewVisible {
		m.hideView()
	}

	m.gen++
	m.state = StateLoading
	m.pendingID = id
	m.lastErr = ""
	m.publish()

	go m.fetch(m.gen, id)
}

func (m *Manager) fetch(gen uint64, id string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.fetchTimeout)
	defer cancel()
	d, err := m.fetcher.GetStreamDetail(ctx, id)
	m.post(detailEvent{gen: gen, id: id, detail: d, err: err})
}

func (m *Manager) handleDetail(ev detailEvent) {
	if ev.gen != m.gen || m.state != StateLoading || m.session != nil {
		m.log.Debug("discarding stale stream detail", "stream_id", ev.id)
		return
	}
	if ev.err != nil {
		m.log.Warn("stream detail fetch failed", "stream_id", ev.id, "error", ev.err)
		m.lastErr = ev.err.Error()
		m.state = StateIdle
		m.pendingID = ""
		m.publish()
		return
	}

	manifest := ev.detail.ManifestLocator
	m.log.Info("stream detail received", "stream_id", ev.id, "manifest", manifest)

	if !m.library.IsSupported() {
		m.record(models.PlaybackRecord{
			SessionID: uuid.NewString(),
			StreamID:  ev.id,
			Manifest:  manifest,
			StartedAt: m.now().UTC(),
			Outcome:   models.OutcomeUnsupported,
		})
		m.fail(ErrUnsupported)
		return
	}

	p, err := m.library.New(m.surface)
	if err != nil {
		m.fail(fmt.Errorf("creating player: %w", err))
		return
	}
	m.session = &Session{
		ID:        uuid.New(),
		StreamID:  ev.id,
		Manifest:  manifest,
		Surface:   m.surface,
		Player:    p,
		StartedAt: m.now().UTC(),
		gen:       ev.gen,
	}
	go m.forwardErrors(ev.gen, p)

	if err := p.Configure(player.Config{ClockSyncURI: m.clockSyncURI}); err != nil {
		m.fail(fmt.Errorf("configuring player: %w", err))
		return
	}
	m.publish()

	go m.load(ev.gen, p, manifest)
}

func (m *Manager) load(gen uint64, p player.Player, manifest string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.loadTimeout)
	defer cancel()
	err := p.Load(ctx, manifest)
	m.post(loadEvent{gen: gen, err: err})
}

func (m *Manager) forwardErrors(gen uint64, p player.Player) {
	for e := range p.Errors() {
		if e == nil {
			continue
		}
		select {
		case m.events <- playerErrorEvent{gen: gen, err: e}:
		case <-m.stopped:
			return
		}
	}
}

func (m *Manager) handleLoad(ev loadEvent) {
	if m.session == nil || m.session.gen != ev.gen || m.state != StateLoading {
		m.log.Debug("discarding stale load result", "generation", ev.gen)
		return
	}
	if ev.err != nil {
		m.fail(ev.err)
		return
	}

	m.view.ShowPlayback()
	m.viewVisible = true
	if err := m.surface.Play(); err != nil {
		m.fail(fmt.Errorf("starting playback: %w", err))
		return
	}

	m.session.reached = true
	m.state = StateActive
	m.metrics.SessionStarted()
	m.log.Info("video loaded", "stream_id", m.session.StreamID, "session_id", m.session.ID)
	m.publish()
}

func (m *Manager) handlePlayerError(ev playerErrorEvent) {
	if m.session == nil || m.session.gen != ev.gen {
		m.log.Debug("discarding error from retired player", "code", ev.err.Code)
		return
	}
	m.fail(ev.err)
}

func (m *Manager) handleDismiss() {
	switch {
	case m.session != nil:
		m.log.Info("playback dismissed", "stream_id", m.session.StreamID)
		m.teardown(models.OutcomeDismissed, 0)
	case m.state == StateLoading:
		// Nothing constructed yet; orphan the pending detail fetch.
		m.gen++
	}
	m.hideView()
	m.state = StateIdle
	m.pendingID = ""
	m.publish()
}

// fail routes err through Erroring to Idle, tearing the session down.
func (m *Manager) fail(err error) {
	m.state = StateErroring
	m.lastErr = err.Error()
	m.publish()

	outcome := models.OutcomeError
	if errors.Is(err, ErrUnsupported) {
		outcome = models.OutcomeUnsupported
	}
	code := ErrorCode(err)
	m.presenter.Present(err, func() { m.teardown(outcome, code) })

	m.hideView()
	m.state = StateIdle
	m.pendingID = ""
	m.publish()
}

// teardown unloads the live player, if any. Each session is torn down at
// most once because the manager forgets it first.
func (m *Manager) teardown(outcome models.PlaybackOutcome, code int) {
	s := m.session
	if s == nil {
		return
	}
	m.session = nil

	if err := s.Player.Unload(); err != nil {
		m.log.Warn("unloading player", "session_id", s.ID, "error", err)
	}
	m.metrics.SessionClosed(outcome)
	m.record(models.PlaybackRecord{
		SessionID: s.ID.String(),
		StreamID:  s.StreamID,
		Manifest:  s.Manifest,
		StartedAt: s.StartedAt,
		Reached:   s.reached,
		Outcome:   outcome,
		ErrorCode: code,
	})
}

func (m *Manager) hideView() {
	m.view.HidePlayback()
	m.viewVisible = false
}

func (m *Manager) record(rec models.PlaybackRecord) {
	if m.recorder == nil {
		return
	}
	rec.EndedAt = m.now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.RecordPlayback(ctx, rec); err != nil {
		m.log.Warn("recording playback", "session_id", rec.SessionID, "error", err)
	}
}

func (m *Manager) publish() {
	snap := Snapshot{
		State:       m.state,
		Generation:  m.gen,
		ViewVisible: m.viewVisible,
		LastError:   m.lastErr,
		StreamID:    m.pendingID,
	}
	if s := m.session; s != nil {
		started := s.StartedAt
		snap.SessionID = s.ID.String()
		snap.StreamID = s.StreamID
		snap.Manifest = s.Manifest
		snap.StartedAt = &started
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
