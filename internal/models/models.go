package models

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// StreamSummary is one entry of the stream catalog. A summary is never
// mutated after decoding; each refresh replaces the whole list.
type StreamSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"descr"`
	CreationDate time.Time `json:"creationDate"`
	DurationMs   int64     `json:"duration"`
	StreamType   string    `json:"streamType"`
	IsLive       bool      `json:"isLive"`
	LiveTime     int64     `json:"liveTime,omitempty"`
	Manifest     string    `json:"manifest,omitempty"`
}

type streamSummaryWire struct {
	ID           FlexString   `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"descr"`
	CreationDate FlexTime     `json:"creationDate"`
	Duration     FlexDuration `json:"duration"`
	StreamType   string       `json:"streamType"`
	IsLive       bool         `json:"isLive"`
	LiveTime     FlexInt      `json:"liveTime"`
	Manifest     string       `json:"manifest"`
}

func (s *StreamSummary) UnmarshalJSON(data []byte) error {
	var w streamSummaryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ms := time.Duration(w.Duration).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	*s = StreamSummary{
		ID:           string(w.ID),
		Title:        w.Title,
		Description:  w.Description,
		CreationDate: time.Time(w.CreationDate),
		DurationMs:   ms,
		StreamType:   w.StreamType,
		IsLive:       w.IsLive,
		LiveTime:     int64(w.LiveTime),
		Manifest:     w.Manifest,
	}
	return nil
}

// Duration returns the stream length as a time.Duration.
func (s StreamSummary) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// StreamDetail is fetched on demand when a stream is selected for playback.
type StreamDetail struct {
	ManifestLocator string `json:"manifest"`
}

type PlaybackOutcome string

const (
	OutcomeDismissed   PlaybackOutcome = "dismissed"
	OutcomeError       PlaybackOutcome = "error"
	OutcomeUnsupported PlaybackOutcome = "unsupported"
	OutcomeSuperseded  PlaybackOutcome = "superseded"
	OutcomeShutdown    PlaybackOutcome = "shutdown"
)

// PlaybackRecord is the persisted trace of one playback session.
type PlaybackRecord struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	StreamID  string          `json:"stream_id"`
	Manifest  string          `json:"manifest"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Reached   bool            `json:"reached_active"`
	Outcome   PlaybackOutcome `json:"outcome"`
	ErrorCode int             `json:"error_code,omitempty"`
}
