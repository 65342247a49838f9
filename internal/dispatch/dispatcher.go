// Package dispatch applies wallpapers through hyprctl. Requests for the same
// monitor run one at a time in the order they were submitted, so the last
// workspace switch always wins regardless of how long hyprctl takes.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/rs/zerolog"
)

// DefaultCommand is the wallpaper CLI invoked when none is configured
const DefaultCommand = "hyprctl"

// ErrClosed is returned by Submit after Close has been called
var ErrClosed = errors.New("dispatcher closed")

// Observer receives every outcome once its attempt finishes. Observers run
// on the monitor's worker goroutine and must not block for long.
type Observer func(Outcome)

// Options configures a Dispatcher
type Options struct {
	Command string
	Preload bool
	// Signature is the Hyprland instance signature. When set, only its
	// hyprpaper socket counts as unreachable.
	Signature string
	Runner    Runner
	Logger    zerolog.Logger
	Observers []Observer
}

// Dispatcher owns one FIFO lane per monitor
type Dispatcher struct {
	command   string
	preload   bool
	signature string
	runner    Runner
	log       zerolog.Logger
	observers []Observer

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	quit   chan struct{}
}

type job struct {
	monitor    string
	artifact   string
	generation uint64
}

// lane is a single-consumer queue for one monitor
type lane struct {
	mu    sync.Mutex
	queue []job
	next  uint64
	wake  chan struct{}
	done  chan struct{}
}

// New creates a dispatcher
func New(opts Options) *Dispatcher {
	command := opts.Command
	if command == "" {
		command = DefaultCommand
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Dispatcher{
		command:   command,
		preload:   opts.Preload,
		signature: opts.Signature,
		runner:    runner,
		log:       logger.WithComponent(opts.Logger, "dispatch"),
		observers: opts.Observers,
		lanes:     make(map[string]*lane),
		quit:      make(chan struct{}),
	}
}

// Submit queues an apply for monitor and returns without waiting for it.
// The returned generation increases by one per submission on that monitor.
func (d *Dispatcher) Submit(monitor, artifact string) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	l, ok := d.lanes[monitor]
	if !ok {
		l = &lane{
			wake: make(chan struct{}, 1),
			done: make(chan struct{}),
		}
		d.lanes[monitor] = l
		go d.work(l)
	}

	l.mu.Lock()
	l.next++
	gen := l.next
	l.queue = append(l.queue, job{monitor: monitor, artifact: artifact, generation: gen})
	depth := len(l.queue)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	d.log.Debug().
		Str("monitor", monitor).
		Str("artifact", artifact).
		Uint64("generation", gen).
		Int("queued", depth).
		Msg("Wallpaper queued")
	return gen, nil
}

// Close stops accepting work and waits until every queued apply has run or
// ctx is done. Running commands are never killed.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.quit)
	}
	lanes := make([]*lane, 0, len(d.lanes))
	for _, l := range d.lanes {
		lanes = append(lanes, l)
	}
	d.mu.Unlock()

	for _, l := range lanes {
		select {
		case <-l.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for pending wallpapers: %w", ctx.Err())
		}
	}
	return nil
}

func (d *Dispatcher) work(l *lane) {
	defer close(l.done)

	for {
		j, ok := l.pop()
		if !ok {
			select {
			case <-l.wake:
				continue
			case <-d.quit:
				// Submit refuses work once quit is closed, so an empty
				// queue here stays empty.
				if l.len() == 0 {
					return
				}
				continue
			}
		}

		o := d.Apply(context.Background(), j.monitor, j.artifact)
		o.Generation = j.generation
		for _, obs := range d.observers {
			obs(o)
		}
	}
}

func (l *lane) pop() (job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return job{}, false
	}
	j := l.queue[0]
	l.queue[0] = job{}
	l.queue = l.queue[1:]
	return j, true
}

func (l *lane) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Apply runs hyprctl synchronously and classifies the result. Failures are
// logged and returned in the outcome; they never panic or exit.
func (d *Dispatcher) Apply(ctx context.Context, monitor, artifact string) Outcome {
	o := Outcome{
		Monitor:  monitor,
		Artifact: artifact,
		Started:  time.Now(),
	}
	log := d.log.With().Str("monitor", monitor).Str("artifact", artifact).Logger()

	if d.preload {
		args := []string{"hyprpaper", "preload", artifact}
		log.Debug().Strs("args", args).Msg("Preloading wallpaper")
		stdout, stderr, err := d.runner.Run(ctx, d.command, args...)
		if err != nil {
			o.Stdout = strings.TrimSpace(string(stdout))
			o.Stderr = strings.TrimSpace(string(stderr))
			o.Error = fmt.Sprintf("preload: %v", err)
			o.Finished = time.Now()
			log.Error().Err(err).Str("stderr", o.Stderr).Msg("Wallpaper preload failed")
			return o
		}
	}

	args := []string{"hyprpaper", "wallpaper", monitor + "," + artifact}
	log.Debug().Str("command", d.command).Strs("args", args).Msg("Applying wallpaper")

	stdout, stderr, err := d.runner.Run(ctx, d.command, args...)
	o.Finished = time.Now()
	o.Stdout = strings.TrimSpace(string(stdout))
	o.Stderr = strings.TrimSpace(string(stderr))

	if err != nil {
		o.Error = err.Error()
		log.Error().
			Err(err).
			Str("stderr", o.Stderr).
			Msg("Error executing wallpaper command")
		return o
	}

	o.ExitSucceeded = true
	if reason := SemanticFailure(o.Stdout, d.signature); reason != "" {
		o.SemanticFailure = reason
		log.Error().
			Str("reason", reason).
			Str("stdout", o.Stdout).
			Msg("Wallpaper setting failed")
		return o
	}

	log.Info().Dur("took", o.Duration()).Msg("Wallpaper applied")
	log.Debug().Str("stdout", o.Stdout).Msg("Command output")
	return o
}
