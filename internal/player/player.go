// Package player describes the adaptive-streaming player the playback
// session drives. The player itself is an external collaborator; this
// package only fixes the surface consumed from it.
package player

import (
	"context"
	"fmt"
)

// Config is applied to a player before its manifest is loaded.
type Config struct {
	// ClockSyncURI is the time server the player uses to align live
	// manifests with the wall clock.
	ClockSyncURI string `json:"clockSyncUri"`
}

// Surface is the video element a player renders into.
type Surface interface {
	Play() error
}

// Player is bound to a single surface for its whole life. Errors delivers
// asynchronous runtime errors and is closed once the player is unloaded.
type Player interface {
	Configure(cfg Config) error
	Load(ctx context.Context, manifest string) error
	Unload() error
	Errors() <-chan *Error
}

// Library constructs players and answers the capability check.
type Library interface {
	IsSupported() bool
	New(surface Surface) (Player, error)
}

// Error is a player-reported failure. Codes follow the player's own
// numbering; Category and Severity are passed through untouched.
type Error struct {
	Code     int    `json:"code"`
	Category int    `json:"category,omitempty"`
	Severity int    `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("player error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("player error %d", e.Code)
}

// CodeSurfaceDetached is reported on this side of the boundary when the
// page hosting the player goes away.
const CodeSurfaceDetached = 7002
