package runner

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/output_storage"
)

var logger = zerolog.Nop()

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "runner").Logger()
}

const (
	// forceKillWait bounds how long Stop waits for the waiter goroutine
	// after SIGKILL.
	forceKillWait = 1 * time.Second
	// defaultRetention is the number of output chunks kept per stream.
	defaultRetention = 1024
	// defaultWaitDelay bounds how long output is still copied after the
	// process exited while something else holds its pipes.
	defaultWaitDelay = 250 * time.Millisecond
)

// Limits are optional cgroup v2 resource limits applied to started processes
// when the host runs as root on Linux. Zero values leave a controller alone.
type Limits struct {
	CPUWeight       int
	MemoryHighBytes int64
}

// SysProcAttr carries the platform process attributes for a start, plus a
// file (the cgroup directory on Linux) to close once the child is running.
type SysProcAttr struct {
	File *os.File
	Raw  *syscall.SysProcAttr
}

// Runner manages processes started by this library.
type Runner struct {
	mu        sync.RWMutex
	processes map[string]*processEntry
	limits    Limits
	retain    int
	waitDelay time.Duration
}

type processEntry struct {
	id      string
	command lib.Command
	cmd     *exec.Cmd
	pid     int

	// status fields
	mu       sync.RWMutex
	state    lib.ProcessState
	exitCode *int
	signaled bool
	start    time.Time
	end      *time.Time
	done     chan struct{}

	stdout *output_storage.OutputStorage
	stderr *output_storage.OutputStorage
}

// Option configures a Runner.
type Option func(*Runner)

// WithLimits applies cgroup limits to every process started by the runner.
func WithLimits(limits Limits) Option {
	return func(r *Runner) { r.limits = limits }
}

// WithOutputRetention sets how many output chunks are kept per stream.
func WithOutputRetention(chunks int) Option {
	return func(r *Runner) { r.retain = chunks }
}

// WithWaitDelay bounds how long a process's output is drained after it
// exited. Non-positive values keep the default.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		processes: make(map[string]*processEntry),
		retain:    defaultRetention,
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
