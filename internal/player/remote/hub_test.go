package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvsview/internal/player"
)

type fakePage struct {
	t    *testing.T
	conn *websocket.Conn
}

func startHub(t *testing.T, opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(opts...)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return h, ts
}

func attachPage(t *testing.T, h *Hub, ts *httptest.Server, supported bool) *fakePage {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	page := &fakePage{t: t, conn: conn}
	page.send(map[string]any{"type": "hello", "supported": supported})
	require.Eventually(t, func() bool { return h.IsSupported() == supported && h.Attached() }, 2*time.Second, 5*time.Millisecond)
	return page
}

func (p *fakePage) send(v any) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteJSON(v))
}

func (p *fakePage) next() command {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var cmd command
	require.NoError(p.t, p.conn.ReadJSON(&cmd))
	return cmd
}

func TestCapabilityCheck(t *testing.T) {
	h, ts := startHub(t)
	assert.False(t, h.IsSupported(), "no page attached")

	attachPage(t, h, ts, false)
	assert.True(t, h.Attached())
	assert.False(t, h.IsSupported())
}

func TestNewRequiresAttachedSurface(t *testing.T) {
	h := NewHub()
	_, err := h.New(h)
	assert.ErrorIs(t, err, ErrNoSurface)

	_, err = h.New(NewHub())
	assert.ErrorIs(t, err, ErrForeignSurface)
}

func TestLoadResolves(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)

	p, err := h.New(h)
	require.NoError(t, err)

	_, err = h.New(h)
	assert.ErrorIs(t, err, ErrPlayerExists, "only one player per surface")

	require.NoError(t, p.Configure(player.Config{ClockSyncURI: "http://time.akamai.com/?iso"}))
	cmd := page.next()
	assert.Equal(t, opConfigure, cmd.Op)
	assert.Equal(t, "http://time.akamai.com/?iso", cmd.ClockSyncURI)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background(), "http://x/m.mpd") }()

	cmd = page.next()
	assert.Equal(t, opLoad, cmd.Op)
	assert.Equal(t, "http://x/m.mpd", cmd.Manifest)
	page.send(map[string]any{"type": "loaded", "seq": cmd.Seq})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not resolve")
	}

	require.NoError(t, h.Play())
	assert.Equal(t, opPlay, page.next().Op)
}

func TestLoadRejected(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)
	p, err := h.New(h)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background(), "http://x/bad.mpd") }()

	cmd := page.next()
	page.send(map[string]any{"type": "loadFailed", "seq": cmd.Seq, "code": 1001, "category": 1, "severity": 2})

	err = <-done
	var perr *player.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1001, perr.Code)
	assert.Equal(t, 1, perr.Category)
}

func TestLoadHonorsContext(t *testing.T) {
	h, ts := startHub(t)
	attachPage(t, h, ts, true)
	p, _ := h.New(h)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Load(ctx, "http://x/slow.mpd"), context.DeadlineExceeded)
}

func TestRuntimeErrorsDelivered(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)
	p, _ := h.New(h)

	page.send(map[string]any{"type": "error", "code": 3016, "message": "decode failed"})

	select {
	case e := <-p.Errors():
		assert.Equal(t, 3016, e.Code)
		assert.Equal(t, "decode failed", e.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
}

func TestUnloadReleasesSurface(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)
	p, _ := h.New(h)

	require.NoError(t, p.Unload())
	assert.Equal(t, opUnload, page.next().Op)

	_, open := <-p.Errors()
	assert.False(t, open, "errors channel closes on unload")

	assert.NoError(t, p.Unload(), "second unload is a no-op")
	assert.ErrorIs(t, p.Load(context.Background(), "http://x/m.mpd"), ErrUnloaded)
	assert.ErrorIs(t, p.Configure(player.Config{}), ErrUnloaded)

	_, err := h.New(h)
	assert.NoError(t, err, "surface is free again")
}

func TestUnloadFailsPendingLoad(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)
	p, _ := h.New(h)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background(), "http://x/m.mpd") }()
	assert.Equal(t, opLoad, page.next().Op)

	require.NoError(t, p.Unload())
	assert.ErrorIs(t, <-done, ErrUnloaded)
}

func TestDetachFailsPlayer(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)
	p, _ := h.New(h)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background(), "http://x/m.mpd") }()
	page.next()

	page.conn.Close()

	err := <-done
	var perr *player.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, player.CodeSurfaceDetached, perr.Code)

	select {
	case e := <-p.Errors():
		assert.Equal(t, player.CodeSurfaceDetached, e.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("no detach error delivered")
	}
	require.Eventually(t, func() bool { return !h.Attached() }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, h.IsSupported())
}

func TestNewerPageReplacesOlder(t *testing.T) {
	h, ts := startHub(t)
	older := attachPage(t, h, ts, true)
	p, _ := h.New(h)

	attachPage(t, h, ts, true)

	select {
	case e := <-p.Errors():
		assert.Equal(t, player.CodeSurfaceDetached, e.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("old player not failed")
	}
	assert.True(t, h.Attached())

	older.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var err error
	for err == nil {
		_, _, err = older.conn.ReadMessage()
	}
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseReplaced, closeErr.Code)
}

func TestViewCommands(t *testing.T) {
	h, ts := startHub(t)
	page := attachPage(t, h, ts, true)

	h.ShowPlayback()
	assert.Equal(t, opShow, page.next().Op)
	h.HidePlayback()
	assert.Equal(t, opHide, page.next().Op)
	h.Alert("This browser is not supported!")
	cmd := page.next()
	assert.Equal(t, opAlert, cmd.Op)
	assert.Equal(t, "This browser is not supported!", cmd.Message)
}

func TestCommandsWithoutSurface(t *testing.T) {
	h := NewHub()
	assert.ErrorIs(t, h.Play(), ErrNoSurface)
	h.ShowPlayback()
	h.HidePlayback()
	h.Alert("nobody listening")
}
