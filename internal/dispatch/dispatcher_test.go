package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

// fakeRunner records calls and answers from a handler
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	handler func(args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	if f.handler == nil {
		return []byte("ok"), nil, nil
	}
	return f.handler(args)
}

func (f *fakeRunner) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestDispatcher(r Runner, opts Options) *Dispatcher {
	opts.Runner = r
	opts.Logger = logger.Nop()
	return New(opts)
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestApplySuccess(t *testing.T) {
	r := &fakeRunner{}
	d := newTestDispatcher(r, Options{})

	o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

	assert.True(t, o.OK())
	assert.True(t, o.ExitSucceeded)
	assert.Empty(t, o.SemanticFailure)
	require.Len(t, r.recorded(), 1)
	assert.Equal(t, "hyprctl", r.recorded()[0].name)
	assert.Equal(t, []string{"hyprpaper", "wallpaper", "DP-1,/walls/a.png"}, r.recorded()[0].args)
}

func TestApplyHardFailure(t *testing.T) {
	r := &fakeRunner{handler: func([]string) ([]byte, []byte, error) {
		return nil, []byte("boom\n"), errors.New("exit status 1")
	}}
	d := newTestDispatcher(r, Options{Command: "/usr/bin/hyprctl"})

	o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

	assert.False(t, o.OK())
	assert.False(t, o.ExitSucceeded)
	assert.Equal(t, "boom", o.Stderr)
	assert.Contains(t, o.Error, "exit status 1")
	assert.Equal(t, "/usr/bin/hyprctl", r.recorded()[0].name)
}

func TestApplySemanticFailure(t *testing.T) {
	outputs := map[string]string{
		"wallpaper failed (not preloaded)\n":                                   ReasonNotPreloaded,
		"Couldn't connect to /tmp/hypr/abc_123/.hyprpaper.sock. (3)":          ReasonSocketUnreachable,
		"Couldn't connect to /run/user/1000/hypr/abc_123/.hyprpaper.sock. (3)": ReasonSocketUnreachable,
	}

	for stdout, reason := range outputs {
		r := &fakeRunner{handler: func([]string) ([]byte, []byte, error) {
			return []byte(stdout), nil, nil
		}}
		d := newTestDispatcher(r, Options{})

		o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

		assert.True(t, o.ExitSucceeded, stdout)
		assert.False(t, o.OK(), stdout)
		assert.Equal(t, reason, o.SemanticFailure, stdout)
	}
}

func TestSemanticFailureIgnoresUnrelatedOutput(t *testing.T) {
	assert.Empty(t, SemanticFailure("ok", ""))
	assert.Empty(t, SemanticFailure("Couldn't connect to something else", ""))
	assert.Empty(t, SemanticFailure("", ""))
}

func TestSemanticFailureMatchesOwnInstance(t *testing.T) {
	own := "Couldn't connect to /run/user/1000/hypr/abc_123/.hyprpaper.sock. (3)"
	other := "Couldn't connect to /run/user/1000/hypr/zzz_999/.hyprpaper.sock. (3)"

	assert.Equal(t, ReasonSocketUnreachable, SemanticFailure(own, "abc_123"))
	assert.Empty(t, SemanticFailure(other, "abc_123"))
	assert.Equal(t, ReasonSocketUnreachable, SemanticFailure(other, ""))
	assert.Equal(t, ReasonNotPreloaded, SemanticFailure("wallpaper failed (not preloaded)", "abc_123"))
}

func TestApplyUsesSignature(t *testing.T) {
	r := &fakeRunner{handler: func([]string) ([]byte, []byte, error) {
		return []byte("Couldn't connect to /tmp/hypr/zzz_999/.hyprpaper.sock. (3)"), nil, nil
	}}

	o := newTestDispatcher(r, Options{Signature: "abc_123"}).Apply(context.Background(), "DP-1", "/walls/a.png")
	assert.True(t, o.OK())

	o = newTestDispatcher(r, Options{}).Apply(context.Background(), "DP-1", "/walls/a.png")
	assert.Equal(t, ReasonSocketUnreachable, o.SemanticFailure)
}

func TestApplyPreload(t *testing.T) {
	r := &fakeRunner{}
	d := newTestDispatcher(r, Options{Preload: true})

	o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

	assert.True(t, o.OK())
	calls := r.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"hyprpaper", "preload", "/walls/a.png"}, calls[0].args)
	assert.Equal(t, []string{"hyprpaper", "wallpaper", "DP-1,/walls/a.png"}, calls[1].args)
}

func TestApplyPreloadFailureSkipsApply(t *testing.T) {
	r := &fakeRunner{handler: func(args []string) ([]byte, []byte, error) {
		return nil, []byte("no such file"), errors.New("exit status 1")
	}}
	d := newTestDispatcher(r, Options{Preload: true})

	o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

	assert.False(t, o.ExitSucceeded)
	assert.Contains(t, o.Error, "preload")
	assert.Len(t, r.recorded(), 1)
}

func TestApplyPreloadFailureTrimsOutput(t *testing.T) {
	r := &fakeRunner{handler: func(args []string) ([]byte, []byte, error) {
		return []byte("  preload rejected\n"), []byte("no such file\n"), errors.New("exit status 1")
	}}
	d := newTestDispatcher(r, Options{Preload: true})

	o := d.Apply(context.Background(), "DP-1", "/walls/a.png")

	assert.Equal(t, "preload rejected", o.Stdout)
	assert.Equal(t, "no such file", o.Stderr)
}

func TestSubmitLatestWins(t *testing.T) {
	// The first apply is slow and the second instant; the second must
	// still finish last.
	var inFlight, maxInFlight int32
	r := &fakeRunner{handler: func(args []string) ([]byte, []byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		if strings.HasSuffix(args[2], "2.png") {
			time.Sleep(50 * time.Millisecond)
		}
		return []byte("ok"), nil, nil
	}}

	var mu sync.Mutex
	var applied []Outcome
	d := newTestDispatcher(r, Options{Observers: []Observer{func(o Outcome) {
		mu.Lock()
		applied = append(applied, o)
		mu.Unlock()
	}}})

	gen2, err := d.Submit("DP-1", "/walls/2.png")
	require.NoError(t, err)
	gen5, err := d.Submit("DP-1", "/walls/5.png")
	require.NoError(t, err)
	assert.Less(t, gen2, gen5)

	closeDispatcher(t, d)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, applied, 2)
	assert.Equal(t, "/walls/2.png", applied[0].Artifact)
	assert.Equal(t, "/walls/5.png", applied[1].Artifact)
	assert.Equal(t, gen5, applied[1].Generation)
	assert.EqualValues(t, 1, atomic.LoadInt32(&maxInFlight))
}

func TestSubmitMonitorsIndependent(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRunner{handler: func(args []string) ([]byte, []byte, error) {
		if strings.HasPrefix(args[2], "DP-1,") {
			<-release
		}
		return []byte("ok"), nil, nil
	}}

	done := make(chan Outcome, 4)
	d := newTestDispatcher(r, Options{Observers: []Observer{func(o Outcome) { done <- o }}})

	_, err := d.Submit("DP-1", "/walls/1.png")
	require.NoError(t, err)
	_, err = d.Submit("HDMI-A-1", "/walls/2.png")
	require.NoError(t, err)

	select {
	case o := <-done:
		assert.Equal(t, "HDMI-A-1", o.Monitor)
	case <-time.After(5 * time.Second):
		t.Fatal("a blocked monitor stalled another monitor")
	}

	close(release)
	closeDispatcher(t, d)
}

func TestSubmitDoesNotBlockOnHungCommand(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRunner{handler: func([]string) ([]byte, []byte, error) {
		<-release
		return []byte("ok"), nil, nil
	}}
	d := newTestDispatcher(r, Options{})

	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_, _ = d.Submit("DP-1", "/walls/a.png")
		}
		close(submitted)
	}()

	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked behind a hung command")
	}

	close(release)
	closeDispatcher(t, d)
	assert.Len(t, r.recorded(), 100)
}

func TestSubmitAfterClose(t *testing.T) {
	d := newTestDispatcher(&fakeRunner{}, Options{})
	closeDispatcher(t, d)

	_, err := d.Submit("DP-1", "/walls/a.png")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := &fakeRunner{handler: func([]string) ([]byte, []byte, error) {
		<-release
		return nil, nil, nil
	}}
	d := newTestDispatcher(r, Options{})
	_, err := d.Submit("DP-1", "/walls/a.png")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}
