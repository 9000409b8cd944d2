package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// Pinger is a dependency whose liveness can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// RPCPool reports the state of the RPC endpoint pool
type RPCPool interface {
	ChainID(ctx context.Context) (*big.Int, error)
	GetEndpointsHealth() map[string]bool
}

// Checker performs health checks on application dependencies
type Checker struct {
	store          Pinger
	rpc            RPCPool
	lastRunTime    time.Time
	lastRunSuccess bool
	interval       time.Duration
	now            func() time.Time
	mu             sync.RWMutex
}

// NewChecker creates a new health checker. store may be nil when no
// snapshot database is configured; interval is zero outside daemon mode.
func NewChecker(store Pinger, rpc RPCPool, interval time.Duration) *Checker {
	return &Checker{
		store:    store,
		rpc:      rpc,
		interval: interval,
		now:      time.Now,
	}
}

// UpdateLastRun updates the timestamp and status of the last snapshot run
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = c.now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// worse returns the more severe of two statuses
func worse(a, b CheckStatus) CheckStatus {
	rank := map[CheckStatus]int{StatusOK: 0, StatusDegraded: 1, StatusError: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overall := StatusOK

	if c.store != nil {
		db := c.checkDatabase(ctx)
		checks["database"] = db
		overall = worse(overall, db.Status)
	}

	rpc := c.checkRPC(ctx)
	checks["rpc_endpoints"] = rpc
	overall = worse(overall, rpc.Status)

	// A late or failed snapshot run never makes the service unavailable
	if c.interval > 0 {
		daemon := c.checkDaemon()
		checks["snapshots"] = daemon
		if daemon.Status != StatusOK {
			overall = worse(overall, StatusDegraded)
		}
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: c.now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkRPC verifies that the node answers and counts healthy endpoints
func (c *Checker) checkRPC(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := c.rpc.ChainID(ctx); err != nil {
		slog.Error("Health check: RPC endpoint failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "RPC endpoint not responding: " + err.Error(),
		}
	}

	healthStatus := c.rpc.GetEndpointsHealth()
	healthyCount := 0
	totalCount := len(healthStatus)

	for _, healthy := range healthStatus {
		if healthy {
			healthyCount++
		}
	}

	if healthyCount == totalCount {
		return CheckDetail{
			Status:  StatusOK,
			Message: "all RPC endpoints healthy",
		}
	}

	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthyCount, totalCount),
	}
}

// checkDaemon verifies snapshots are recorded at the expected interval
func (c *Checker) checkDaemon() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "no snapshot recorded yet (startup)",
		}
	}

	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last snapshot run failed",
		}
	}

	// 2x interval grace period
	sinceLast := c.now().Sub(c.lastRunTime)
	if sinceLast > c.interval*2 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no snapshot in %s (expected every %s)", sinceLast.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last snapshot %s ago", sinceLast.Round(time.Second)),
	}
}

// ServeHTTP writes the health report; an error status maps to 503
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := c.Check(r.Context())

	statusCode := http.StatusOK
	if status.Status == StatusError {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}
