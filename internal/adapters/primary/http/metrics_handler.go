package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/validation"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

const (
	defaultMetricsPerPage = 10
	maxMetricsPerPage     = 52
)

// MetricsHandler handles HTTP requests for weekly metrics.
type MetricsHandler struct {
	metricsService ports.MetricsService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(
	metricsService ports.MetricsService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MetricsHandler {
	return &MetricsHandler{
		metricsService: metricsService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "metrics"),
	}
}

// RegisterRoutes registers the metrics endpoints relative to /metrics.
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weekly", h.HandleListWeekly)
	r.Post("/weekly/recalculate", h.HandleRecalculate)
}

// HandleListWeekly handles GET /metrics/weekly?from&to&page&size.
func (h *MetricsHandler) HandleListWeekly(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	from := validation.ParseDateQueryParam(r, "from", v)
	to := validation.ParseDateQueryParam(r, "to", v)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	page := validation.ParsePagination(r, "size", defaultMetricsPerPage, maxMetricsPerPage)

	metrics, total, err := h.metricsService.ListWeekly(r.Context(), ports.ListWeeklyMetricsParams{
		From:   from,
		To:     to,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]domain.WeeklyMetricSnapshot, 0, len(metrics))
	for _, m := range metrics {
		data = append(data, domain.NewWeeklyMetricSnapshot(m))
	}

	WritePaginated(w, data, page.Limit, page.Offset, total)
}

// HandleRecalculate handles POST /metrics/weekly/recalculate?week=YYYY-MM-DD.
// Without a week parameter the current week is recalculated.
func (h *MetricsHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	day := time.Now().UTC()
	if week := r.URL.Query().Get("week"); week != "" {
		parsed, err := time.Parse(domain.DateLayout, week)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.ErrInvalidWeek)
			return
		}
		day = parsed
	}

	metric, err := h.metricsService.RecalculateWeek(r.Context(), claims.UserID, day)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "weekly metrics recalculated",
		"week_start", metric.WeekStart.Format(domain.DateLayout),
		"total_comments", metric.TotalComments,
	)

	WriteJSON(w, http.StatusOK, domain.NewWeeklyMetricSnapshot(metric))
}
