package simd

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Limits bounds calls to one RPC method.
type Limits struct {
	// Rate is the token refill rate in calls per second; 0 disables the rate check.
	Rate float64 `json:"rate"`

	// Burst is the bucket capacity.
	Burst int `json:"burst"`

	// MaxInFlight caps concurrent calls; 0 means unbounded.
	MaxInFlight int64 `json:"max_in_flight"`
}

// DefaultLimits keep a daemon from queueing more simulations than it has
// cores for, while leaving Status cheap.
var DefaultLimits = map[string]Limits{
	SimulateMethod: {Rate: 2, Burst: 8, MaxInFlight: 4},
	StatusMethod:   {Rate: 100, Burst: 100},
}

// gate admits calls for one method.
type gate struct {
	limits Limits

	mu     sync.Mutex
	tokens float64
	last   time.Time

	slots *semaphore.Weighted

	inFlight  atomic.Int64
	admitted  atomic.Int64
	throttled atomic.Int64
	busy      atomic.Int64
}

func newGate(limits Limits, now time.Time) *gate {
	if limits.Rate > 0 && limits.Burst < 1 {
		limits.Burst = 1
	}
	g := &gate{limits: limits, tokens: float64(limits.Burst), last: now}
	if limits.MaxInFlight > 0 {
		g.slots = semaphore.NewWeighted(limits.MaxInFlight)
	}
	return g
}

// refill must be called with mu held.
func (g *gate) refill(now time.Time) {
	if elapsed := now.Sub(g.last).Seconds(); elapsed > 0 {
		g.tokens = min(float64(g.limits.Burst), g.tokens+elapsed*g.limits.Rate)
	}
	g.last = now
}

func (g *gate) takeToken(now time.Time) bool {
	if g.limits.Rate <= 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.refill(now)
	if g.tokens < 1 {
		return false
	}
	g.tokens--
	return true
}

func (g *gate) refundToken() {
	if g.limits.Rate <= 0 {
		return
	}
	g.mu.Lock()
	g.tokens = min(float64(g.limits.Burst), g.tokens+1)
	g.mu.Unlock()
}

func (g *gate) admit(method string, now time.Time) (func(), error) {
	if !g.takeToken(now) {
		g.throttled.Add(1)
		return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded for %s", method)
	}
	if g.slots != nil && !g.slots.TryAcquire(1) {
		g.refundToken()
		g.busy.Add(1)
		return nil, status.Errorf(codes.ResourceExhausted, "%s: %d calls already in flight", method, g.limits.MaxInFlight)
	}

	g.admitted.Add(1)
	g.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			if g.slots != nil {
				g.slots.Release(1)
			}
		})
	}, nil
}

func (g *gate) available(now time.Time) float64 {
	if g.limits.Rate <= 0 {
		return float64(g.limits.Burst)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refill(now)
	return g.tokens
}

// Admission applies per-method Limits to incoming calls. Methods without
// limits are always admitted.
type Admission struct {
	gates   map[string]*gate
	enabled bool
	now     func() time.Time
}

// AdmissionOption configures an Admission.
type AdmissionOption func(*admissionConfig)

type admissionConfig struct {
	limits  map[string]Limits
	enabled bool
	now     func() time.Time
}

// WithLimits overrides the limits of one method.
func WithLimits(method string, limits Limits) AdmissionOption {
	return func(c *admissionConfig) {
		c.limits[method] = limits
	}
}

// WithEnabled turns admission control on or off.
func WithEnabled(enabled bool) AdmissionOption {
	return func(c *admissionConfig) {
		c.enabled = enabled
	}
}

func withClock(now func() time.Time) AdmissionOption {
	return func(c *admissionConfig) {
		c.now = now
	}
}

// NewAdmission creates admission control seeded with DefaultLimits.
func NewAdmission(opts ...AdmissionOption) *Admission {
	cfg := &admissionConfig{
		limits:  make(map[string]Limits, len(DefaultLimits)),
		enabled: true,
		now:     time.Now,
	}
	for method, limits := range DefaultLimits {
		cfg.limits[method] = limits
	}
	for _, opt := range opts {
		opt(cfg)
	}

	a := &Admission{
		gates:   make(map[string]*gate, len(cfg.limits)),
		enabled: cfg.enabled,
		now:     cfg.now,
	}
	start := cfg.now()
	for method, limits := range cfg.limits {
		a.gates[method] = newGate(limits, start)
	}
	return a
}

// Admit reserves capacity for a call to method. The returned release func
// must be called when the call finishes. Rejections are ResourceExhausted
// status errors.
func (a *Admission) Admit(method string) (release func(), err error) {
	g, ok := a.gates[method]
	if !a.enabled || !ok {
		return func() {}, nil
	}
	return g.admit(method, a.now())
}

// GateStats summarizes one method's admission counters.
type GateStats struct {
	Method    string  `json:"method"`
	Limits    Limits  `json:"limits"`
	Available float64 `json:"available"`
	InFlight  int64   `json:"in_flight"`
	Admitted  int64   `json:"admitted"`
	Throttled int64   `json:"throttled"`
	Busy      int64   `json:"busy"`
}

// Stats returns per-method counters sorted by method.
func (a *Admission) Stats() []GateStats {
	now := a.now()
	stats := make([]GateStats, 0, len(a.gates))
	for method, g := range a.gates {
		stats = append(stats, GateStats{
			Method:    method,
			Limits:    g.limits,
			Available: g.available(now),
			InFlight:  g.inFlight.Load(),
			Admitted:  g.admitted.Load(),
			Throttled: g.throttled.Load(),
			Busy:      g.busy.Load(),
		})
	}
	slices.SortFunc(stats, func(x, y GateStats) int {
		return cmp.Compare(x.Method, y.Method)
	})
	return stats
}

// Rejected returns the total number of calls turned away.
func (a *Admission) Rejected() int64 {
	var total int64
	for _, g := range a.gates {
		total += g.throttled.Load() + g.busy.Load()
	}
	return total
}

// UnaryServerInterceptor gates every unary call through Admit.
func (a *Admission) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		release, err := a.Admit(info.FullMethod)
		if err != nil {
			return nil, err
		}
		defer release()
		return handler(ctx, req)
	}
}
