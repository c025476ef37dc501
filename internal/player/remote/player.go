package remote

import (
	"context"
	"sync"

	"jvsview/internal/player"
)

type remotePlayer struct {
	hub *Hub

	mu       sync.Mutex
	unloaded bool
	errs     chan *player.Error
}

func (p *remotePlayer) isUnloaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unloaded
}

func (p *remotePlayer) Configure(cfg player.Config) error {
	if p.isUnloaded() {
		return ErrUnloaded
	}
	return p.hub.send(command{Op: opConfigure, ClockSyncURI: cfg.ClockSyncURI})
}

// Load asks the page to load manifest and waits for its verdict.
func (p *remotePlayer) Load(ctx context.Context, manifest string) error {
	if p.isUnloaded() {
		return ErrUnloaded
	}
	seq, ch, err := p.hub.beginLoad(p, manifest)
	if err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		p.hub.cancelLoad(seq)
		return ctx.Err()
	}
}

// Unload releases the surface. Calling it more than once is a no-op.
func (p *remotePlayer) Unload() error {
	p.mu.Lock()
	if p.unloaded {
		p.mu.Unlock()
		return nil
	}
	p.unloaded = true
	close(p.errs)
	p.mu.Unlock()

	return p.hub.release(p)
}

func (p *remotePlayer) Errors() <-chan *player.Error {
	return p.errs
}

func (p *remotePlayer) deliver(e *player.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unloaded {
		return
	}
	select {
	case p.errs <- e:
	default:
		p.hub.log.Warn("dropping player error, buffer full", "code", e.Code)
	}
}
