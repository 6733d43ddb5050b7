// Package coordinator discovers, launches, monitors and stops the companion
// process on behalf of the host. It is the only writer of CompanionState;
// every failure is recorded as state and never returned as host-fatal.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/output_storage"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/runner"
)

// ErrNotSpawned is returned by operations that need a companion process when
// none was started in this session.
var ErrNotSpawned = errors.New("companion was not spawned")

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultStartupGrace = 250 * time.Millisecond
	DefaultGracePeriod  = 3 * time.Second
)

// Config describes where the companion lives and how it is supervised.
type Config struct {
	// HostExecutable is the path discovery starts from. Empty means the
	// running executable.
	HostExecutable string
	CompanionName  string
	DevPaths       []string
	Args           []string
	// Disabled skips discovery entirely; the state stays NotAttempted.
	Disabled bool

	PollInterval time.Duration
	StartupGrace time.Duration
	GracePeriod  time.Duration

	// RelaunchOnSpawnFailure allows one more spawn when the first one fails
	// with a launch error (not for missing files or permissions).
	RelaunchOnSpawnFailure bool

	// RecordPath is where the orphan registry record is kept. Empty
	// disables the registry.
	RecordPath string

	Limits          runner.Limits
	OutputRetention int
}

// EventSink receives lifecycle events. *eventlog.Store implements it.
type EventSink interface {
	Record(ctx context.Context, event eventlog.Event) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.base = l }
}

func WithEventSink(sink EventSink) Option {
	return func(c *Coordinator) { c.events = sink }
}

// WithRunner replaces the process runner, mostly for tests.
func WithRunner(r *runner.Runner) Option {
	return func(c *Coordinator) { c.runner = r }
}

// WithSession fixes the session identifier instead of generating one.
func WithSession(session string) Option {
	return func(c *Coordinator) { c.session = session }
}

// Coordinator owns the companion process handle for one host session.
type Coordinator struct {
	cfg     Config
	session string
	base    zerolog.Logger
	log     zerolog.Logger
	runner  *runner.Runner
	events  EventSink

	stateMu sync.Mutex
	state   atomic.Pointer[lib.CompanionState]
	lastErr atomic.Pointer[error]
	notify  *output_storage.Broadcaster[lib.CompanionState]

	startOnce sync.Once

	// handle, written once inside startOnce
	mu        sync.RWMutex
	discovery lib.DiscoveryResult
	procID    string
	pid       int

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}

	shutdownMu sync.Mutex
	shutdown   bool
}

// New creates a Coordinator in the NotAttempted state. Nothing is spawned
// until Start.
func New(cfg Config, opts ...Option) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StartupGrace < 0 {
		cfg.StartupGrace = 0
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}

	c := &Coordinator{
		cfg:    cfg,
		base:   zerolog.Nop(),
		notify: output_storage.RunNewBroadcaster[lib.CompanionState](),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == "" {
		c.session = lib.NewID()
	}
	if c.runner == nil {
		var ropts []runner.Option
		ropts = append(ropts, runner.WithLimits(cfg.Limits))
		// the exit must be observable before the monitor gives up on it
		ropts = append(ropts, runner.WithWaitDelay(cfg.PollInterval/2))
		if cfg.OutputRetention > 0 {
			ropts = append(ropts, runner.WithOutputRetention(cfg.OutputRetention))
		}
		c.runner = runner.NewRunner(ropts...)
	}
	c.log = c.base.With().Str("component", "coordinator").Str("session", c.session).Logger()

	initial := lib.CompanionState{
		Phase:   lib.CompanionNotAttempted,
		Session: c.session,
		Since:   time.Now(),
	}
	c.state.Store(&initial)
	return c
}

// Session returns the identifier of this host run.
func (c *Coordinator) Session() string {
	return c.session
}

// State returns the current companion state snapshot.
func (c *Coordinator) State() lib.CompanionState {
	return *c.state.Load()
}

// LastError returns the error behind the most recent Failed state, if any.
func (c *Coordinator) LastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Discovery returns the cached discovery result. Before Start it reports
// NotFound.
func (c *Coordinator) Discovery() lib.DiscoveryResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.discovery
}

// Subscribe returns a channel that first carries the current state and then
// every later transition, in order. Intermediate states may be skipped when
// the reader is slow, so with capacity 1 it always ends on the latest state.
// The channel closes after Shutdown; cancel unsubscribes early.
func (c *Coordinator) Subscribe(capacity int) (<-chan lib.CompanionState, func()) {
	if capacity < 1 {
		capacity = 1
	}
	out := make(chan lib.CompanionState, capacity)
	in, err := c.notify.Subscribe(capacity)
	if err != nil {
		out <- c.State()
		close(out)
		return out, func() {}
	}

	go func() {
		defer close(out)
		last := lib.CompanionPhase(-1)
		deliver := func(s lib.CompanionState) {
			// the fan-out goroutine may hand over a value older than the
			// snapshot taken at subscription
			if s.Phase <= last {
				return
			}
			last = s.Phase
			offerLatest(out, s)
		}
		deliver(c.State())
		for s := range in {
			deliver(s)
		}
	}()
	return out, func() { c.notify.Unsubscribe(in) }
}

func offerLatest(ch chan lib.CompanionState, s lib.CompanionState) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Output streams captured companion stdout and stderr.
func (c *Coordinator) Output(ctx context.Context) (<-chan []byte, <-chan []byte, error) {
	c.mu.RLock()
	id := c.procID
	c.mu.RUnlock()
	if id == "" {
		return nil, nil, ErrNotSpawned
	}
	return c.runner.Output(ctx, id)
}

// setState applies a transition if the state machine allows it and reports
// whether it did. Rejected transitions are dropped, which keeps the state
// monotonic when the monitor and shutdown race.
func (c *Coordinator) setState(next lib.CompanionState, cause error) bool {
	c.stateMu.Lock()
	cur := c.state.Load()
	if !lib.CanTransition(cur.Phase, next.Phase) {
		c.stateMu.Unlock()
		c.log.Debug().Str("from", cur.String()).Str("to", next.String()).Msg("ignoring state transition")
		return false
	}
	next.Session = c.session
	next.Since = time.Now()
	if next.PID == 0 {
		next.PID = cur.PID
	}
	c.state.Store(&next)
	if cause != nil {
		c.lastErr.Store(&cause)
	}
	c.notify.Publish(next)
	c.stateMu.Unlock()

	ev := c.log.Info()
	if next.Phase == lib.CompanionFailed {
		ev = c.log.Warn()
	}
	ev.Str("state", next.String()).Int("pid", next.PID).Msg("companion state changed")

	c.record(eventlog.Event{
		Kind:   eventlog.KindTransition,
		Phase:  next.Phase.String(),
		PID:    next.PID,
		Detail: next.String(),
	})
	return true
}

func (c *Coordinator) fail(reason string, cause error) bool {
	return c.setState(lib.CompanionState{Phase: lib.CompanionFailed, Reason: reason}, cause)
}

func (c *Coordinator) record(event eventlog.Event) {
	if c.events == nil {
		return
	}
	event.Session = c.session
	if event.At.IsZero() {
		event.At = time.Now()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.events.Record(ctx, event); err != nil {
		c.log.Debug().Err(err).Str("kind", event.Kind).Msg("failed to record event")
	}
}
