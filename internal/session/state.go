package session

import (
	"fmt"
	"time"
)

// State of the playback session manager.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateActive
	StateErroring
)

var stateNames = [...]string{"idle", "loading", "active", "erroring"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a read-only view of the manager, safe to hand to other
// goroutines. It is the inspection hook for the current player.
type Snapshot struct {
	State       State      `json:"state"`
	Generation  uint64     `json:"generation"`
	SessionID   string     `json:"session_id,omitempty"`
	StreamID    string     `json:"stream_id,omitempty"`
	Manifest    string     `json:"manifest,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	ViewVisible bool       `json:"view_visible"`
	LastError   string     `json:"last_error,omitempty"`
}

// Active reports whether a player is currently playing.
func (s Snapshot) Active() bool {
	return s.State == StateActive
}
