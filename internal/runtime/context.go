package runtime

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/logger"
	"go.uber.org/zap"
)

// Clock is the time source used by markets, strategies and positions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SimClock is a manually advanced clock used by the backtester.
type SimClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewSimClock creates a simulated clock starting at start.
func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start.UTC()}
}

// Now implements Clock.
func (c *SimClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.now
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *SimClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.Before(c.now) {
		return
	}

	c.now = t.UTC()
}

// Context is threaded through every market, strategy and position call. It
// replaces process-wide mode flags so several simulations can share a process.
type Context struct {
	Clock      Clock
	Log        *logger.Logger
	Simulation bool
	RunID      string
}

// NewLiveContext returns a context backed by the wall clock.
func NewLiveContext(log *logger.Logger) *Context {
	return &Context{
		Clock:      SystemClock{},
		Log:        log,
		Simulation: false,
	}
}

// NewSimulationContext returns a context backed by clock with logs tagged by runID.
func NewSimulationContext(log *logger.Logger, clock *SimClock, runID string) *Context {
	return &Context{
		Clock:      clock,
		Log:        log.WithFields(zap.String("run_id", runID)),
		Simulation: true,
		RunID:      runID,
	}
}

// Now is shorthand for c.Clock.Now().
func (c *Context) Now() time.Time {
	return c.Clock.Now()
}
