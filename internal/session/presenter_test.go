package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"jvsview/internal/player"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported", ErrUnsupported, "This browser is not supported!"},
		{"player error", &player.Error{Code: 1002}, "Player reported an error with code: 1002"},
		{"wrapped player error", fmt.Errorf("load: %w", &player.Error{Code: 4000}), "Player reported an error with code: 4000"},
		{"other", errors.New("boom"), "Playback failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 6001, ErrorCode(&player.Error{Code: 6001}))
	assert.Zero(t, ErrorCode(errors.New("boom")))
	assert.Zero(t, ErrorCode(ErrUnsupported))
}

type countingMetrics struct {
	noopMetrics
	codes []int
}

func (c *countingMetrics) PlayerError(code int) { c.codes = append(c.codes, code) }

func TestPresentOrder(t *testing.T) {
	var order []string
	alerter := alertFunc(func(msg string) { order = append(order, "alert:"+msg) })
	metrics := &countingMetrics{}
	p := NewPresenter(nil, alerter, metrics)

	p.Present(&player.Error{Code: 1001}, func() { order = append(order, "teardown") })

	assert.Equal(t, []string{"teardown", "alert:Player reported an error with code: 1001"}, order)
	assert.Equal(t, []int{1001}, metrics.codes)
}

func TestPresentWithoutAlerter(t *testing.T) {
	p := NewPresenter(nil, nil, nil)
	called := false
	p.Present(errors.New("boom"), func() { called = true })
	assert.True(t, called)
}

type alertFunc func(string)

func (f alertFunc) Alert(msg string) { f(msg) }
