package http

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"

	probeTimeout = 5 * time.Second
)

// HealthChecker is satisfied by *pgxpool.Pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ClientCounter reports the number of live real-time connections.
type ClientCounter interface {
	ClientCount() int
}

// HealthHandler serves the liveness, readiness and detailed health probes.
type HealthHandler struct {
	db      HealthChecker
	gateway ClientCounter
	started time.Time
	version string
}

func NewHealthHandler(db HealthChecker, gateway ClientCounter, version string) *HealthHandler {
	return &HealthHandler{db: db, gateway: gateway, started: time.Now(), version: version}
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type runtimeStats struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
}

type detailedHealth struct {
	HealthResponse
	Memory     runtimeStats `json:"memory"`
	Goroutines int          `json:"goroutines"`
}

// RegisterRoutes mounts the probes under /health.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleHealth)
	r.Get("/live", h.HandleLiveness)
	r.Get("/ready", h.HandleReadiness)
}

// HandleLiveness answers as long as the process serves HTTP.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{Status: statusHealthy, Timestamp: timestamp()})
}

// HandleReadiness fails while the database is unreachable.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := h.probe(r.Context(), statusUnhealthy)
	WriteJSON(w, statusCodeFor(resp.Status), resp)
}

// HandleHealth is the readiness report plus runtime statistics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := detailedHealth{
		HealthResponse: h.probe(r.Context(), statusDegraded),
		Memory: runtimeStats{
			AllocBytes:      mem.Alloc,
			TotalAllocBytes: mem.TotalAlloc,
			SysBytes:        mem.Sys,
			NumGC:           mem.NumGC,
		},
		Goroutines: runtime.NumGoroutine(),
	}
	WriteJSON(w, statusCodeFor(resp.Status), resp)
}

// probe runs the dependency checks. failed is the overall status reported
// when the database check does not pass.
func (h *HealthHandler) probe(ctx context.Context, failed string) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	db := h.checkDatabase(ctx)
	status := statusHealthy
	if db.Status != statusHealthy {
		status = failed
	}

	return HealthResponse{
		Status:    status,
		Timestamp: timestamp(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks: map[string]Check{
			"database": db,
			"realtime": h.checkGateway(),
		},
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: statusUnhealthy, Message: "Database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	check := Check{Status: statusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		check.Status = statusUnhealthy
		check.Message = err.Error()
	}
	return check
}

func (h *HealthHandler) checkGateway() Check {
	if h.gateway == nil {
		return Check{Status: statusHealthy, Message: "disabled"}
	}
	return Check{Status: statusHealthy, Message: fmt.Sprintf("%d clients connected", h.gateway.ClientCount())}
}

func statusCodeFor(status string) int {
	if status == statusHealthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
