// Package node runs the cooperative main loop of the node: one goroutine
// owns the timer pool and the configuration store, and every other
// goroutine reaches them through Do.
package node

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/xtxerr/dmxnode/config"
	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	"github.com/xtxerr/dmxnode/internal/timer"
)

var log = logging.Component("node")

// ErrStopped is returned by Do once the loop has returned.
var ErrStopped = errors.New("main loop stopped")

// Config holds loop configuration.
type Config struct {
	// Tick is the pause between two iterations. Zero spins, yielding the
	// processor between iterations.
	Tick time.Duration

	// DrainLimit bounds the quanta spent flushing on shutdown.
	DrainLimit int

	// QueueSize is the capacity of the Do queue.
	QueueSize int
}

// DefaultConfig returns default loop configuration.
func DefaultConfig() *Config {
	return &Config{
		Tick:       config.DefaultLoopTick,
		DrainLimit: config.DefaultDrainLimit,
		QueueSize:  16,
	}
}

// Loop drives the timer pool, and through its debounce timer the store.
//
// Only Do and Iterations are safe for concurrent use.
type Loop struct {
	timers *timer.Pool
	store  *store.Store
	cfg    Config

	hooks   []func()
	calls   chan func()
	stopped chan struct{}
	running atomic.Bool

	iterations atomic.Int64
}

// New creates a loop. st may be nil for a loop that only runs timers.
func New(timers *timer.Pool, st *store.Store, cfg *Config) *Loop {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.DrainLimit <= 0 {
		c.DrainLimit = config.DefaultDrainLimit
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1
	}
	return &Loop{
		timers:  timers,
		store:   st,
		cfg:     c,
		calls:   make(chan func(), c.QueueSize),
		stopped: make(chan struct{}),
	}
}

// AddHook registers fn to run at the start of every iteration. Hooks must
// be added before Run.
func (l *Loop) AddHook(fn func()) {
	l.hooks = append(l.hooks, fn)
}

// Step runs one iteration: pending calls, hooks, then one timer slot. It
// reports whether a timer fired. Step must not be called while Run is
// active.
func (l *Loop) Step() bool {
	l.runCalls()
	for _, h := range l.hooks {
		h()
	}
	l.iterations.Add(1)
	return l.timers.Run()
}

// Iterations returns the number of completed iterations.
func (l *Loop) Iterations() int64 {
	return l.iterations.Load()
}

// Run iterates until ctx is done, then drains the store. It returns an
// error when the drain does not reach Idle within the configured limit.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("main loop already running")
	}
	defer close(l.stopped)

	log.Info("main loop started", "tick", l.cfg.Tick, "timers", l.timers.Cap())

	var tick <-chan time.Time
	if l.cfg.Tick > 0 {
		ticker := time.NewTicker(l.cfg.Tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return l.shutdown()
			case fn := <-l.calls:
				fn()
			case <-tick:
				l.Step()
			}
			continue
		}

		select {
		case <-ctx.Done():
			return l.shutdown()
		default:
		}
		l.Step()
		runtime.Gosched()
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	call := func() {
		defer close(done)
		fn()
	}

	select {
	case l.calls <- call:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		// The call may have run during shutdown.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) runCalls() {
	for {
		select {
		case fn := <-l.calls:
			fn()
		default:
			return
		}
	}
}

func (l *Loop) shutdown() error {
	l.runCalls()

	if l.store == nil {
		log.Info("main loop stopped", "iterations", l.Iterations())
		return nil
	}

	pending := l.store.State()
	if !l.store.Drain(l.cfg.DrainLimit) {
		return fmt.Errorf("flush on shutdown: store still %s after %d quanta", l.store.State(), l.cfg.DrainLimit)
	}

	log.Info("main loop stopped",
		"iterations", l.Iterations(),
		"flushed", pending != store.StateIdle)
	return nil
}
