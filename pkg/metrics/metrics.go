package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	metricsPath  = "/metrics/requests"
	percentScale = 100
)

// Metrics holds in-process counters for HTTP traffic plus the share gate
// and the retention sweeper. Safe for concurrent use.
type Metrics struct {
	startTime time.Time

	requests     atomic.Int64
	active       atomic.Int64
	errors       atomic.Int64
	latencyMs    atomic.Int64
	maxLatencyMs atomic.Int64

	shareGrants      atomic.Int64
	shareDenials     atomic.Int64
	passwordFailures atomic.Int64
	sweepRuns        atomic.Int64
	sweepDeleted     atomic.Int64
	sweepFailures    atomic.Int64

	mu          sync.Mutex
	routes      map[string]*routeStats
	statusCodes map[int]int64
}

type routeStats struct {
	count     int64
	latencyMs int64
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

// GetMetrics returns the process-wide metrics instance.
func GetMetrics() *Metrics {
	once.Do(func() {
		globalMetrics = newMetrics(time.Now())
	})
	return globalMetrics
}

func newMetrics(start time.Time) *Metrics {
	return &Metrics{
		startTime:   start,
		routes:      make(map[string]*routeStats),
		statusCodes: make(map[int]int64),
	}
}

func (m *Metrics) IncShareGrant() { m.shareGrants.Add(1) }
func (m *Metrics) IncShareDenial() { m.shareDenials.Add(1) }
func (m *Metrics) IncPasswordFailure() { m.passwordFailures.Add(1) }

// RecordSweep adds the outcome of one non-dry-run retention sweep.
func (m *Metrics) RecordSweep(deleted, failures int) {
	m.sweepRuns.Add(1)
	m.sweepDeleted.Add(int64(deleted))
	m.sweepFailures.Add(int64(failures))
}

func (m *Metrics) observe(route string, status int, latency time.Duration) {
	ms := latency.Milliseconds()
	m.requests.Add(1)
	m.latencyMs.Add(ms)
	for {
		current := m.maxLatencyMs.Load()
		if ms <= current || m.maxLatencyMs.CompareAndSwap(current, ms) {
			break
		}
	}
	if status >= http.StatusBadRequest {
		m.errors.Add(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.routes[route]
	if !ok {
		rs = &routeStats{}
		m.routes[route] = rs
	}
	rs.count++
	rs.latencyMs += ms
	m.statusCodes[status]++
}

// MetricsMiddleware records request counts, latency and status codes keyed
// by the matched route pattern, so ids in paths do not fan out the map.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := GetMetrics()
			m.active.Add(1)
			start := time.Now()

			err := next(c)

			m.active.Add(-1)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.observe(c.Request().Method+" "+route, c.Response().Status, time.Since(start))
			return err
		}
	}
}

// DomainCounters track share gate and retention sweep outcomes.
type DomainCounters struct {
	ShareGrants       int64 `json:"share_grants"`
	ShareDenials      int64 `json:"share_denials"`
	PasswordFailures  int64 `json:"password_failures"`
	SweepRuns         int64 `json:"sweep_runs"`
	SweepItemsDeleted int64 `json:"sweep_items_deleted"`
	SweepFailures     int64 `json:"sweep_failures"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	TotalRequests  int64            `json:"total_requests"`
	ActiveRequests int64            `json:"active_requests"`
	TotalErrors    int64            `json:"total_errors"`
	ErrorRate      float64          `json:"error_rate_pct"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	MaxLatencyMs   int64            `json:"max_latency_ms"`
	UptimeSeconds  float64          `json:"uptime_seconds"`
	RouteCounts    map[string]int64 `json:"route_counts"`
	RouteAvgMs     map[string]int64 `json:"route_avg_latency_ms"`
	StatusCodes    map[int]int64    `json:"status_codes"`
	Domain         DomainCounters   `json:"domain"`
}

func (m *Metrics) Snapshot() Snapshot {
	total := m.requests.Load()
	errs := m.errors.Load()

	snap := Snapshot{
		TotalRequests:  total,
		ActiveRequests: m.active.Load(),
		TotalErrors:    errs,
		MaxLatencyMs:   m.maxLatencyMs.Load(),
		UptimeSeconds:  time.Since(m.startTime).Seconds(),
		Domain: DomainCounters{
			ShareGrants:       m.shareGrants.Load(),
			ShareDenials:      m.shareDenials.Load(),
			PasswordFailures:  m.passwordFailures.Load(),
			SweepRuns:         m.sweepRuns.Load(),
			SweepItemsDeleted: m.sweepDeleted.Load(),
			SweepFailures:     m.sweepFailures.Load(),
		},
	}
	if total > 0 {
		snap.AvgLatencyMs = float64(m.latencyMs.Load()) / float64(total)
		snap.ErrorRate = float64(errs) / float64(total) * percentScale
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap.RouteCounts = make(map[string]int64, len(m.routes))
	snap.RouteAvgMs = make(map[string]int64, len(m.routes))
	for route, rs := range m.routes {
		snap.RouteCounts[route] = rs.count
		if rs.count > 0 {
			snap.RouteAvgMs[route] = rs.latencyMs / rs.count
		}
	}
	snap.StatusCodes = make(map[int]int64, len(m.statusCodes))
	for code, n := range m.statusCodes {
		snap.StatusCodes[code] = n
	}
	return snap
}

// RegisterMetricsRoute serves the snapshot as JSON on GET /metrics/requests.
func RegisterMetricsRoute(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET(metricsPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, GetMetrics().Snapshot())
	}, mw...)
}
