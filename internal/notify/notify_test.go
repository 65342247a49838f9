package notify

import (
	"errors"
	"testing"

	"github.com/khaneliman/hypr-socket-watch/internal/dispatch"
	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestRender(t *testing.T) {
	msg := Render(dispatch.Outcome{
		Monitor:         "DP-1",
		Artifact:        "/walls/a.png",
		ExitSucceeded:   true,
		SemanticFailure: dispatch.ReasonNotPreloaded,
	})
	assert.Equal(t, "Wallpaper not applied on DP-1", msg.Summary)
	assert.Equal(t, "a.png: wallpaper not preloaded", msg.Body)

	msg = Render(dispatch.Outcome{Monitor: "DP-1", Artifact: "/walls/a.png", Stderr: "boom", Error: "exit status 1"})
	assert.Equal(t, "a.png: boom", msg.Body)

	msg = Render(dispatch.Outcome{Monitor: "DP-1", Artifact: "/walls/a.png", Error: "exec: not found"})
	assert.Equal(t, "a.png: exec: not found", msg.Body)
}

func TestObserveSkipsSuccess(t *testing.T) {
	s := &recordingSender{}
	n := New(s, logger.Nop())

	n.Observe(dispatch.Outcome{Monitor: "DP-1", Artifact: "/walls/a.png", ExitSucceeded: true})
	assert.Empty(t, s.sent)
}

func TestObserveCollapsesRepeats(t *testing.T) {
	s := &recordingSender{}
	n := New(s, logger.Nop())
	fail := dispatch.Outcome{Monitor: "DP-1", Artifact: "/walls/a.png", ExitSucceeded: true, SemanticFailure: dispatch.ReasonSocketUnreachable}

	n.Observe(fail)
	n.Observe(fail)
	assert.Len(t, s.sent, 1)

	n.Observe(dispatch.Outcome{Monitor: "DP-1", Artifact: "/walls/a.png", ExitSucceeded: true})
	n.Observe(fail)
	assert.Len(t, s.sent, 2)
}

func TestObserveSendErrorIsNotFatal(t *testing.T) {
	s := &recordingSender{err: errors.New("no bus")}
	n := New(s, logger.Nop())

	assert.NotPanics(t, func() {
		n.Observe(dispatch.Outcome{Monitor: "DP-1", Error: "exit status 1"})
	})
}
