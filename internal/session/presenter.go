package session

import (
	"errors"
	"fmt"
	"log/slog"

	"jvsview/internal/logger"
	"jvsview/internal/player"
)

// Alerter shows a message to the user.
type Alerter interface {
	Alert(message string)
}

// Presenter reports unrecoverable playback failures: it logs them, tears
// the session down and tells the user.
type Presenter struct {
	log     *slog.Logger
	alerter Alerter
	metrics Metrics
}

// NewPresenter returns a presenter. alerter may be nil, in which case
// failures are only logged.
func NewPresenter(log *slog.Logger, alerter Alerter, metrics Metrics) *Presenter {
	if log == nil {
		log = logger.Discard()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Presenter{log: log, alerter: alerter, metrics: metrics}
}

func (p *Presenter) Present(err error, teardown func()) {
	code := ErrorCode(err)
	p.log.Error("playback error", "code", code, "error", err)
	p.metrics.PlayerError(code)

	if teardown != nil {
		teardown()
	}
	if p.alerter != nil {
		p.alerter.Alert(Message(err))
	}
}

// ErrorCode extracts the player error code, or 0 when err did not come
// from the player.
func ErrorCode(err error) int {
	var perr *player.Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return 0
}

// Message is the user-facing text for err.
func Message(err error) string {
	var perr *player.Error
	switch {
	case errors.Is(err, ErrUnsupported):
		return "This browser is not supported!"
	case errors.As(err, &perr):
		return fmt.Sprintf("Player reported an error with code: %d", perr.Code)
	default:
		return "Playback failed: " + err.Error()
	}
}
