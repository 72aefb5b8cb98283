// Package health serves Kubernetes-style /livez and /readyz probes.
//
// Every check runs in its own goroutine on a fixed interval. A check flips to
// unhealthy only after FailureThreshold consecutive failures and back after
// SuccessThreshold consecutive successes, so a single slow ping does not make
// the service flap.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Option tunes a single check.
type Option func(*check)

// Timeout bounds one execution of the check. Defaults to one second.
func Timeout(d time.Duration) Option {
	return func(c *check) { c.timeout = d }
}

// FailureThreshold sets how many consecutive failures mark the check
// unhealthy. Defaults to 3.
func FailureThreshold(n int) Option {
	return func(c *check) { c.failureThreshold = max(n, 1) }
}

// SuccessThreshold sets how many consecutive successes mark the check
// healthy again. Defaults to 1.
func SuccessThreshold(n int) Option {
	return func(c *check) { c.successThreshold = max(n, 1) }
}

// check holds the configuration and state of one registered check. Counters
// are touched only by the goroutine running the check; handlers read the
// atomics.
type check struct {
	name             string
	fn               CheckFunc
	timeout          time.Duration
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails     int
	successes int
}

func newCheck(name string, fn CheckFunc, opts []Option) *check {
	c := &check{
		name:             name,
		fn:               fn,
		timeout:          time.Second,
		failureThreshold: 3,
		successThreshold: 1,
	}
	for _, o := range opts {
		o(c)
	}
	// Healthy until proven otherwise.
	c.healthy.Store(true)
	return c
}

// run executes the check once and reports whether its health flipped.
func (c *check) run(ctx context.Context) (changed bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)

	was := c.healthy.Load()
	if err != nil {
		c.successes = 0
		c.fails++
		if c.fails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.fails = 0
		c.successes++
		if c.successes >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.healthy.Load()
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health holds the liveness and readiness checks of a service.
type Health struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a Health in the not-ready state. Call SetReady(true) once the
// service has finished initialization.
func New(lg *zap.Logger) *Health {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Health{lg: lg}
}

// AddLiveness registers a check telling whether the process should be
// restarted.
func (h *Health) AddLiveness(name string, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, fn, opts))
}

// AddReadiness registers a check telling whether the service can take
// traffic, e.g. database connectivity.
func (h *Health) AddReadiness(name string, fn CheckFunc, opts ...Option) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, fn, opts))
}

// Start runs every registered check immediately and then on each interval
// until Stop is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.loop(ctx, c, interval)
		}()
	}
}

func (h *Health) loop(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.run(ctx) {
			h.logTransition(c)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) logTransition(c *check) {
	if msg, failing := c.failure(); failing {
		h.lg.Warn("Health check failing", zap.String("check", c.name), zap.String("error", msg))
		return
	}
	h.lg.Info("Health check recovered", zap.String("check", c.name))
}

// Stop cancels the background checks and waits for them to exit. It is safe
// to call Stop more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// SetReady sets the manual readiness flag, typically false during graceful
// shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(&h.readiness))) == 0
}

func (h *Health) snapshot(checks *[]*check) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(*checks)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(&h.liveness)))
}

// ReadyEndpoint serves /readyz. It fails while the service is not marked
// ready, even when all checks pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.snapshot(&h.readiness))
	if !h.ready.Load() {
		failed = append(failed, failure{name: "_readiness", msg: "service is not ready"})
	}
	writeStatus(w, failed)
}

type failure struct {
	name string
	msg  string
}

func failures(checks []*check) []failure {
	var out []failure
	for _, c := range checks {
		if msg, failing := c.failure(); failing {
			out = append(out, failure{name: c.name, msg: msg})
		}
	}
	return out
}

// writeStatus writes {"status":"ok"} or {"status":"unhealthy","checks":{...}}.
func writeStatus(w http.ResponseWriter, failed []failure) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		if len(failed) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, f := range failed {
					e.Field(f.name, func(e *jx.Encoder) { e.Str(f.msg) })
				}
			})
		})
	})

	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent; a write error means the client is gone.
	_, _ = w.Write(e.Bytes())
}
