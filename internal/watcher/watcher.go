// Package watcher drives the read loop over Hyprland's event socket: it
// frames the byte stream into lines, classifies them, and hands workspace
// switches to the dispatcher.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"syscall"

	"github.com/khaneliman/hypr-socket-watch/internal/event"
	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/khaneliman/hypr-socket-watch/internal/wallpaper"
	"github.com/rs/zerolog"
)

// DefaultBufferSize is the size of each socket read
const DefaultBufferSize = 4096

// MaxRetries bounds consecutive retryable read errors that carry no data.
// An expired read deadline keeps timing out on every call, so without a
// bound the loop would spin.
const MaxRetries = 100

// State is the lifecycle state of the read loop
type State int32

const (
	StateConnecting State = iota
	StateReading
	StateClosed
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReading:
		return "reading"
	case StateClosed:
		return "closed"
	case StateFatal:
		return "fatal"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText lets the state appear by name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(text []byte) error {
	for _, c := range []State{StateConnecting, StateReading, StateClosed, StateFatal} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Submitter queues a wallpaper for a monitor without waiting for it
type Submitter interface {
	Submit(monitor, artifact string) (uint64, error)
}

// EventObserver is told about every classified line
type EventObserver func(event.Event)

// Options configures a Watcher
type Options struct {
	Monitor    string
	Wallpapers string
	Dispatcher Submitter
	Logger     zerolog.Logger
	BufferSize int
	Observers  []EventObserver
}

// Watcher is the supervised read loop for one connection
type Watcher struct {
	monitor    string
	wallpapers string
	dispatcher Submitter
	log        zerolog.Logger
	bufSize    int
	observers  []EventObserver

	state atomic.Int32
}

// New creates a watcher in the connecting state
func New(opts Options) *Watcher {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Watcher{
		monitor:    opts.Monitor,
		wallpapers: opts.Wallpapers,
		dispatcher: opts.Dispatcher,
		log:        logger.WithComponent(opts.Logger, "watcher"),
		bufSize:    size,
		observers:  opts.Observers,
	}
}

// State returns the current loop state
func (w *Watcher) State() State {
	return State(w.state.Load())
}

func (w *Watcher) setState(s State) {
	w.state.Store(int32(s))
}

// Run reads conn until the peer closes it, ctx is cancelled, or a read
// fails. End of stream and cancellation return nil. Errors from individual
// events are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context, conn io.ReadCloser) error {
	w.setState(StateReading)
	w.log.Info().Msg("Watching for events")

	// Closing the connection is the only way to interrupt a blocked Read.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var framer event.Framer
	buf := make([]byte, w.bufSize)
	retries := 0

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			retries = 0
			for _, line := range framer.Feed(buf[:n]) {
				if herr := w.HandleLine(line); herr != nil {
					w.log.Warn().Err(herr).Str("line", line).Msg("Dropping event")
				}
			}
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, io.EOF):
			w.setState(StateClosed)
			w.log.Warn().Int("discarded_bytes", framer.Reset()).Msg("Connection closed")
			return nil
		case ctx.Err() != nil:
			w.setState(StateClosed)
			w.log.Info().Int("discarded_bytes", framer.Reset()).Msg("Stopped watching")
			return nil
		case isRetryable(err) && retries < MaxRetries:
			retries++
			w.log.Debug().Err(err).Int("retries", retries).Msg("Retrying read")
			continue
		default:
			w.setState(StateFatal)
			w.log.Error().Err(err).Msg("Reading event socket failed")
			return fmt.Errorf("reading event socket: %w", err)
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HandleLine classifies one line and, for workspace switches, resolves and
// queues the matching wallpaper.
func (w *Watcher) HandleLine(line string) error {
	ev, err := event.Decode(line)
	for _, obs := range w.observers {
		obs(ev)
	}

	switch ev.Kind {
	case event.KindMonitorAdded:
		w.log.Debug().Str("line", line).Msg("Monitor added event")
	case event.KindFocusedMonitor:
		w.log.Debug().Str("line", line).Msg("Focused monitor event")
	case event.KindWorkspaceSwitch:
		if err != nil {
			return err
		}
		return w.switchWorkspace(*ev.Payload)
	default:
		w.log.Debug().Str("line", line).Msg("Ignored event")
	}
	return nil
}

func (w *Watcher) switchWorkspace(index uint32) error {
	log := w.log.With().Uint32("index", index).Logger()
	log.Debug().Msg("Workspace event")

	path, err := wallpaper.Resolve(w.wallpapers, index)
	if err != nil {
		return fmt.Errorf("resolving wallpaper for workspace %d: %w", index, err)
	}

	if _, err := w.dispatcher.Submit(w.monitor, path); err != nil {
		return fmt.Errorf("queueing wallpaper %s: %w", path, err)
	}
	return nil
}
