// Package remote implements the player library on top of a browser page.
// The page's video element attaches to the Hub over a websocket and runs the
// actual adaptive-streaming player; the Hub relays commands to it and turns
// its replies back into player results and error events.
package remote

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jvsview/internal/logger"
	"jvsview/internal/player"
)

var (
	ErrNoSurface      = errors.New("no video surface attached")
	ErrForeignSurface = errors.New("surface is not served by this hub")
	ErrPlayerExists   = errors.New("a player is already bound to the surface")
	ErrUnloaded       = errors.New("player unloaded")
)

// CloseReplaced is the websocket close code sent to a page displaced by a
// newer one. Pages must not reconnect after receiving it.
const CloseReplaced = 4001

const (
	writeWait           = 5 * time.Second
	defaultPingInterval = 10 * time.Second
	errorBuffer         = 8
)

// Messages sent by the page.
const (
	msgHello      = "hello"
	msgLoaded     = "loaded"
	msgLoadFailed = "loadFailed"
	msgError      = "error"
)

// Commands sent to the page.
const (
	opConfigure = "configure"
	opLoad      = "load"
	opUnload    = "unload"
	opPlay      = "play"
	opShow      = "show"
	opHide      = "hide"
	opAlert     = "alert"
)

type inbound struct {
	Type      string `json:"type"`
	Supported bool   `json:"supported"`
	Seq       uint64 `json:"seq"`
	Code      int    `json:"code"`
	Category  int    `json:"category"`
	Severity  int    `json:"severity"`
	Message   string `json:"message"`
}

type command struct {
	Op           string `json:"op"`
	Seq          uint64 `json:"seq,omitempty"`
	Manifest     string `json:"manifest,omitempty"`
	ClockSyncURI string `json:"clockSyncUri,omitempty"`
	Message      string `json:"message,omitempty"`
}

type surfaceConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

func (c *surfaceConn) send(cmd command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(cmd)
}

// replace tells the page it was displaced, then closes the connection.
func (c *surfaceConn) replace() {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(CloseReplaced, "replaced")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	c.close()
}

func (c *surfaceConn) close() {
	c.once.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

// Hub is both the player Library and the single video Surface: at most one
// page is attached at a time and at most one player is bound to it.
type Hub struct {
	log          *slog.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	mu        sync.Mutex
	conn      *surfaceConn
	supported bool
	player    *remotePlayer
	seq       uint64
	pending   map[uint64]chan error
}

type Option func(*Hub)

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.log = l }
}

// WithCheckOrigin overrides the websocket origin check. The default only
// accepts same-origin pages.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingInterval = d }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		log:          logger.Discard(),
		pingInterval: defaultPingInterval,
		pending:      make(map[uint64]chan error),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// ServeHTTP attaches the requesting page as the video surface. A newer page
// replaces the previous one; anything bound to the old page is failed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("surface upgrade failed", "error", err)
		return
	}
	c := &surfaceConn{ws: ws, closed: make(chan struct{})}

	h.mu.Lock()
	old := h.conn
	if old != nil {
		h.detachLocked(old)
	}
	h.conn = c
	h.supported = false
	h.mu.Unlock()
	if old != nil {
		h.log.Info("video surface replaced by a newer page")
		old.replace()
	}

	h.log.Info("video surface attached", "remote", r.RemoteAddr)
	go h.pingLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	if h.conn == c {
		h.detachLocked(c)
	}
	h.mu.Unlock()
	c.close()
	h.log.Info("video surface detached", "remote", r.RemoteAddr)
}

func (h *Hub) pingLoop(c *surfaceConn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *surfaceConn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Warn("malformed surface message", "error", err)
			continue
		}
		h.handle(c, msg)
	}
}

func (h *Hub) handle(c *surfaceConn, msg inbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != c {
		return
	}

	switch msg.Type {
	case msgHello:
		h.supported = msg.Supported
		h.log.Info("surface capabilities", "supported", msg.Supported)
	case msgLoaded:
		h.resolveLocked(msg.Seq, nil)
	case msgLoadFailed:
		h.resolveLocked(msg.Seq, msg.playerError())
	case msgError:
		if h.player != nil {
			h.player.deliver(msg.playerError())
		}
	default:
		h.log.Debug("unknown surface message", "type", msg.Type)
	}
}

func (m inbound) playerError() *player.Error {
	return &player.Error{Code: m.Code, Category: m.Category, Severity: m.Severity, Message: m.Message}
}

// detachLocked fails everything bound to c. Caller holds h.mu.
func (h *Hub) detachLocked(c *surfaceConn) {
	if h.conn != c {
		return
	}
	h.conn = nil
	h.supported = false
	detached := &player.Error{Code: player.CodeSurfaceDetached, Message: "video surface detached"}
	for seq := range h.pending {
		h.resolveLocked(seq, detached)
	}
	if h.player != nil {
		h.player.deliver(detached)
	}
}

func (h *Hub) resolveLocked(seq uint64, err error) {
	ch, ok := h.pending[seq]
	if !ok {
		return
	}
	delete(h.pending, seq)
	ch <- err
}

// Attached reports whether a page is currently connected.
func (h *Hub) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// IsSupported is the capability check: a page must be attached and must have
// reported that its browser can run the player.
func (h *Hub) IsSupported() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil && h.supported
}

func (h *Hub) New(surface player.Surface) (player.Player, error) {
	if s, ok := surface.(*Hub); !ok || s != h {
		return nil, ErrForeignSurface
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == nil {
		return nil, ErrNoSurface
	}
	if h.player != nil {
		return nil, ErrPlayerExists
	}
	h.player = &remotePlayer{hub: h, errs: make(chan *player.Error, errorBuffer)}
	return h.player, nil
}

func (h *Hub) send(cmd command) error {
	h.mu.Lock()
	c := h.conn
	h.mu.Unlock()
	if c == nil {
		return ErrNoSurface
	}
	return c.send(cmd)
}

// Play starts playback on the surface.
func (h *Hub) Play() error {
	return h.send(command{Op: opPlay})
}

func (h *Hub) ShowPlayback() {
	if err := h.send(command{Op: opShow}); err != nil {
		h.log.Debug("show playback view", "error", err)
	}
}

func (h *Hub) HidePlayback() {
	if err := h.send(command{Op: opHide}); err != nil {
		h.log.Debug("hide playback view", "error", err)
	}
}

// Alert shows a user-facing error message on the page.
func (h *Hub) Alert(message string) {
	if err := h.send(command{Op: opAlert, Message: message}); err != nil {
		h.log.Warn("alert not delivered", "message", message, "error", err)
	}
}

func (h *Hub) beginLoad(p *remotePlayer, manifest string) (uint64, chan error, error) {
	h.mu.Lock()
	if h.player != p {
		h.mu.Unlock()
		return 0, nil, ErrUnloaded
	}
	c := h.conn
	if c == nil {
		h.mu.Unlock()
		return 0, nil, ErrNoSurface
	}
	h.seq++
	seq := h.seq
	ch := make(chan error, 1)
	h.pending[seq] = ch
	h.mu.Unlock()

	if err := c.send(command{Op: opLoad, Seq: seq, Manifest: manifest}); err != nil {
		h.cancelLoad(seq)
		return 0, nil, err
	}
	return seq, ch, nil
}

func (h *Hub) cancelLoad(seq uint64) {
	h.mu.Lock()
	delete(h.pending, seq)
	h.mu.Unlock()
}

func (h *Hub) release(p *remotePlayer) error {
	h.mu.Lock()
	if h.player != p {
		h.mu.Unlock()
		return nil
	}
	h.player = nil
	for seq := range h.pending {
		h.resolveLocked(seq, ErrUnloaded)
	}
	c := h.conn
	h.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.send(command{Op: opUnload})
}
