package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// State is the application readiness lifecycle. It transitions exactly once,
// at process start: NotChecked -> Healthy or NotChecked -> Degraded.
type State string

const (
	StateNotChecked State = "not_checked"
	StateHealthy    State = "healthy"
	StateDegraded   State = "degraded"
)

// Check probes one dependency. Checks are supplied as a fixed list at
// startup configuration time; there is no runtime registration.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Result records the outcome of one probe.
type Result struct {
	Name     string        `json:"name"`
	Healthy  bool          `json:"healthy"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options bound the startup gate's retry loop.
type Options struct {
	MaxRetries   int
	RetryDelay   time.Duration
	CheckTimeout time.Duration
}

// Gate runs the dependency checks once at startup and answers readiness
// probes from the recorded outcome.
type Gate struct {
	checks []Check
	opts   Options
	log    *zap.Logger

	mu      sync.RWMutex
	state   State
	results []Result
}

func NewGate(checks []Check, opts Options, log *zap.Logger) *Gate {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 5 * time.Second
	}
	return &Gate{checks: checks, opts: opts, log: log, state: StateNotChecked}
}

// Run executes every check, retrying failing ones until they pass or the
// retry budget is spent, then transitions the gate to Healthy or Degraded.
func (g *Gate) Run(ctx context.Context) State {
	pending := make(map[string]bool, len(g.checks))
	for _, c := range g.checks {
		pending[c.Name] = true
	}
	results := make(map[string]Result, len(g.checks))

	for attempt := 1; attempt <= g.opts.MaxRetries && len(pending) > 0; attempt++ {
		for _, check := range g.checks {
			if !pending[check.Name] {
				continue
			}
			res := g.probe(ctx, check)
			results[check.Name] = res
			if res.Healthy {
				delete(pending, check.Name)
				g.log.Info("dependency healthy", zap.String("check", check.Name), zap.Duration("took", res.Duration))
			} else {
				g.log.Warn("dependency check failed",
					zap.String("check", check.Name), zap.Int("attempt", attempt), zap.String("error", res.Error))
			}
		}
		if len(pending) > 0 && attempt < g.opts.MaxRetries {
			select {
			case <-ctx.Done():
				attempt = g.opts.MaxRetries
			case <-time.After(g.opts.RetryDelay):
			}
		}
	}

	ordered := make([]Result, 0, len(g.checks))
	for _, c := range g.checks {
		ordered = append(ordered, results[c.Name])
	}

	state := StateHealthy
	if len(pending) > 0 {
		state = StateDegraded
	}

	g.mu.Lock()
	g.state = state
	g.results = ordered
	g.mu.Unlock()

	if state == StateDegraded {
		g.log.Error("startup dependency check degraded", zap.Int("failing", len(pending)))
	} else {
		g.log.Info("all startup dependencies healthy")
	}
	return state
}

func (g *Gate) probe(ctx context.Context, check Check) Result {
	probeCtx, cancel := context.WithTimeout(ctx, g.opts.CheckTimeout)
	defer cancel()

	start := time.Now()
	err := check.Probe(probeCtx)
	res := Result{Name: check.Name, Healthy: err == nil, Duration: time.Since(start)}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// State returns the current lifecycle state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// ReadyHandler serves the readiness probe: 200 when Healthy, 503 otherwise,
// with per-check results in the body.
func (g *Gate) ReadyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.mu.RLock()
		state := g.state
		results := g.results
		g.mu.RUnlock()

		status := http.StatusServiceUnavailable
		if state == StateHealthy {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"state": state, "checks": results})
	}
}

// LiveHandler serves the liveness probe.
func LiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
