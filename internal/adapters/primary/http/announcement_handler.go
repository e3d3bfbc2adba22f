package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/avisos-backend/internal/adapters/primary/validation"
	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

const (
	defaultAnnouncementsPerPage = 20
	maxAnnouncementsPerPage     = 100
)

// AnnouncementHandler handles HTTP requests for announcements.
type AnnouncementHandler struct {
	announcementService ports.AnnouncementService
	errorHandler        *ErrorHandler
	logger              *slog.Logger
}

// NewAnnouncementHandler creates a new announcement handler.
func NewAnnouncementHandler(
	announcementService ports.AnnouncementService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcementService: announcementService,
		errorHandler:        errorHandler,
		logger:              logger.With("handler", "announcement"),
	}
}

// RegisterRoutes sets up the routing for all announcement endpoints.
func (h *AnnouncementHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	r.Route("/{announcementID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
	})
}

// --- Request DTOs ---

// CreateAnnouncementRequest defines the expected JSON body for creating an announcement.
type CreateAnnouncementRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	WeekStart   string `json:"week_start"`
	WeekEnd     string `json:"week_end"`
}

// Validate validates the request and converts it to domain params.
func (r *CreateAnnouncementRequest) Validate() (domain.AnnouncementParams, error) {
	v := validation.NewValidator()
	v.Required("title", r.Title).
		MinLength("title", r.Title, domain.MinAnnouncementTextLength).
		MaxLength("title", r.Title, domain.MaxAnnouncementTitleLength).
		Required("description", r.Description).
		MinLength("description", r.Description, domain.MinAnnouncementTextLength).
		Required("week_start", r.WeekStart).
		Date("week_start", r.WeekStart).
		Required("week_end", r.WeekEnd).
		Date("week_end", r.WeekEnd)

	if v.HasErrors() {
		return domain.AnnouncementParams{}, v.Errors()
	}

	start, _ := time.Parse(domain.DateLayout, r.WeekStart)
	end, _ := time.Parse(domain.DateLayout, r.WeekEnd)
	return domain.AnnouncementParams{
		Title:       r.Title,
		Description: r.Description,
		WeekStart:   start,
		WeekEnd:     end,
	}, nil
}

// UpdateAnnouncementRequest is a partial update; omitted fields are kept.
type UpdateAnnouncementRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	WeekStart   *string `json:"week_start"`
	WeekEnd     *string `json:"week_end"`
	Active      *bool   `json:"active"`
}

// Validate validates the request and converts it to a domain update.
func (r *UpdateAnnouncementRequest) Validate() (domain.AnnouncementUpdate, error) {
	v := validation.NewValidator()
	update := domain.AnnouncementUpdate{
		Title:       r.Title,
		Description: r.Description,
		Active:      r.Active,
	}

	parse := func(field string, value *string) *time.Time {
		if value == nil {
			return nil
		}
		v.Required(field, *value).Date(field, *value)
		t, err := time.Parse(domain.DateLayout, *value)
		if err != nil {
			return nil
		}
		return &t
	}
	update.WeekStart = parse("week_start", r.WeekStart)
	update.WeekEnd = parse("week_end", r.WeekEnd)

	if v.HasErrors() {
		return domain.AnnouncementUpdate{}, v.Errors()
	}
	return update, nil
}

// --- Handlers ---

// HandleList handles GET /announcements.
func (h *AnnouncementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := validation.ParsePagination(r, "limit", defaultAnnouncementsPerPage, maxAnnouncementsPerPage)

	announcements, total, err := h.announcementService.List(r.Context(), ports.ListAnnouncementsParams{
		Limit:      page.Limit,
		Offset:     page.Offset,
		ActiveOnly: validation.ParseBoolQueryParam(r, "active", false),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	data := make([]domain.AnnouncementSnapshot, 0, len(announcements))
	for _, a := range announcements {
		data = append(data, domain.NewAnnouncementSnapshot(a))
	}

	WritePaginated(w, data, page.Limit, page.Offset, total)
}

// HandleGet handles GET /announcements/{announcementID}.
func (h *AnnouncementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "announcementID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	announcement, err := h.announcementService.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, domain.NewAnnouncementSnapshot(announcement))
}

// HandleCreate handles POST /announcements.
func (h *AnnouncementHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[CreateAnnouncementRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params, err := req.Validate()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	announcement, err := h.announcementService.Create(r.Context(), claims.UserID, params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "announcement created", "announcement_id", announcement.ID)

	WriteCreated(w, domain.NewAnnouncementSnapshot(announcement))
}

// HandleUpdate handles PUT /announcements/{announcementID}.
func (h *AnnouncementHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "announcementID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeJSON[UpdateAnnouncementRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	update, err := req.Validate()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	announcement, err := h.announcementService.Update(r.Context(), claims.UserID, id, update)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "announcement updated", "announcement_id", id)

	WriteJSON(w, http.StatusOK, domain.NewAnnouncementSnapshot(announcement))
}

// HandleDelete handles DELETE /announcements/{announcementID}.
func (h *AnnouncementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	id, err := parseIDParam(r, "announcementID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.announcementService.Delete(r.Context(), claims.UserID, id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "announcement deleted", "announcement_id", id)

	WriteNoContent(w)
}
