package handler

import (
	"net/http"
	"time"

	"github.com/breatheroute/routeexposure/internal/airquality"
	"github.com/breatheroute/routeexposure/internal/api/models"
	"github.com/breatheroute/routeexposure/internal/api/response"
	"github.com/breatheroute/routeexposure/internal/provider/resilience"
	"github.com/breatheroute/routeexposure/internal/routing"
	"github.com/breatheroute/routeexposure/internal/worker"
)

// OpsConfig holds the components reported by the ops endpoints. Every
// field except Version is optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry

	ReadingCache interface{ Stats() airquality.CacheStats }
	RouteCache   interface{ CacheStats() routing.CacheStats }
	Warmup       interface{ Metrics() worker.WarmupMetrics }
}

// OpsHandler serves liveness, readiness and status.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready while
// any upstream circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	code := http.StatusOK
	if h.cfg.Registry != nil && h.cfg.Registry.Overall() == resilience.StatusUnhealthy {
		status = models.HealthStatusFail
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{Status: status, Time: models.Timestamp(h.now())})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.subsystems(),
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Registry != nil {
		for _, p := range h.cfg.Registry.Snapshot() {
			status.Providers = append(status.Providers, providerStatus(p))
		}
		status.Status = healthStatus(h.cfg.Registry.Overall())
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	var out []models.SubsystemStatus

	if h.cfg.ReadingCache != nil {
		s := h.cfg.ReadingCache.Stats()
		out = append(out, models.SubsystemStatus{
			Name:   "reading-cache",
			Status: models.HealthStatusOK,
			Details: map[string]any{
				"entries": s.Entries,
				"fresh":   s.Fresh,
				"ttl":     s.TTL.String(),
				"grid":    s.Grid,
			},
		})
	}

	if h.cfg.RouteCache != nil {
		s := h.cfg.RouteCache.CacheStats()
		out = append(out, models.SubsystemStatus{
			Name:   "route-cache",
			Status: models.HealthStatusOK,
			Details: map[string]any{
				"entries":  s.TotalEntries,
				"fresh":    s.FreshEntries,
				"stale":    s.StaleEntries,
				"provider": s.Provider,
			},
		})
	}

	if h.cfg.Warmup != nil {
		m := h.cfg.Warmup.Metrics()
		st := models.HealthStatusOK
		if m.Runs > 0 && m.Fetched == 0 && m.AlreadyFresh == 0 && m.Failed > 0 {
			st = models.HealthStatusDegraded
		}
		out = append(out, models.SubsystemStatus{
			Name:   "cache-warmup",
			Status: st,
			Details: map[string]any{
				"runs":            m.Runs,
				"fetched":         m.Fetched,
				"alreadyFresh":    m.AlreadyFresh,
				"failed":          m.Failed,
				"lastRunAt":       models.Timestamp(m.LastRunAt),
				"lastRunDuration": m.LastRunDuration.String(),
			},
		})
	}

	return out
}

func providerStatus(p *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:     p.Name,
		Status:       healthStatus(p.Status()),
		CircuitState: p.CircuitState.String(),
		Requests:     p.Counts.Requests,
		Failures:     p.Counts.TotalFailures,
	}
	if p.LastSuccessAt != nil {
		ts := models.Timestamp(*p.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if p.LastFailureAt != nil {
		ts := models.Timestamp(*p.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}

func healthStatus(s resilience.Status) models.HealthStatus {
	switch s {
	case resilience.StatusHealthy:
		return models.HealthStatusOK
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusFail
	}
}
