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
	defaultCommentsPerPage = 20
	maxCommentsPerPage     = 100
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	commentService ports.CommentService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
	createLimiter  func(http.Handler) http.Handler
}

// NewCommentHandler creates a new CommentHandler. createLimiter, if not
// nil, wraps the create endpoint.
func NewCommentHandler(
	commentService ports.CommentService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
	createLimiter func(http.Handler) http.Handler,
) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "comment"),
		createLimiter:  createLimiter,
	}
}

// RegisterRoutes registers the comment endpoints relative to /comments.
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	if h.createLimiter != nil {
		r.With(h.createLimiter).Post("/", h.HandleCreateComment)
	} else {
		r.Post("/", h.HandleCreateComment)
	}
	r.Get("/", h.HandleListComments)
	r.Get("/announcement/{announcementID}", h.HandleListForAnnouncement)
	r.Delete("/{commentID}", h.HandleDeleteComment)
}

// --- Request DTOs ---

// CreateCommentRequest defines the expected JSON body for creating a comment
type CreateCommentRequest struct {
	AnnouncementID int64  `json:"announcement_id"`
	Body           string `json:"body"`
}

// Validate validates the create comment request
func (r *CreateCommentRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("announcement_id", r.AnnouncementID > 0, "This field is required").
		Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxCommentBodyLength)
	return v.Err()
}

// CommentDTO is the comment wire shape plus the parent announcement title.
// Its embedded snapshot is exactly what the real-time channel carries.
type CommentDTO struct {
	domain.CommentSnapshot
	AnnouncementTitle string `json:"announcement_title,omitempty"`
}

func toCommentDTO(comment *domain.Comment) CommentDTO {
	dto := CommentDTO{
		CommentSnapshot: domain.CommentSnapshot{
			ID:             comment.ID,
			AnnouncementID: comment.AnnouncementID,
			Body:           comment.Body,
			CreatedAt:      comment.CreatedAt.UTC().Format(time.RFC3339),
			Author:         comment.Author,
		},
	}
	if comment.Announcement != nil {
		dto.AnnouncementTitle = comment.Announcement.Title
	}
	return dto
}

func toCommentDTOs(comments []*domain.Comment) []CommentDTO {
	response := make([]CommentDTO, 0, len(comments))
	for _, comment := range comments {
		response = append(response, toCommentDTO(comment))
	}
	return response
}

// --- Handlers ---

// HandleCreateComment handles POST /comments.
func (h *CommentHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeJSON[CreateCommentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.CreateComment(r.Context(), ports.CreateCommentParams{
		AnnouncementID: req.AnnouncementID,
		ActorID:        claims.UserID,
		Body:           req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment created",
		"comment_id", comment.ID,
		"announcement_id", comment.AnnouncementID,
	)

	WriteCreated(w, toCommentDTO(comment))
}

// HandleListForAnnouncement handles GET /comments/announcement/{announcementID}.
func (h *CommentHandler) HandleListForAnnouncement(w http.ResponseWriter, r *http.Request) {
	announcementID, err := parseIDParam(r, "announcementID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comments, err := h.commentService.ListForAnnouncement(r.Context(), announcementID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toCommentDTOs(comments))
}

// HandleListComments handles GET /comments with optional filters:
// announcement_id, author_id, author (name fragment), from, to, page, limit.
func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	v := validation.NewValidator()
	params := ports.ListCommentsParams{
		AnnouncementID: validation.ParseIDQueryParam(r, "announcement_id", v),
		AuthorID:       validation.ParseIDQueryParam(r, "author_id", v),
		AuthorName:     validation.ParseStringQueryParam(r, "author"),
		From:           validation.ParseDateQueryParam(r, "from", v),
		To:             validation.ParseDateQueryParam(r, "to", v),
	}
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	// "to" names an inclusive day; the repository bound is exclusive.
	if params.To != nil {
		next := params.To.AddDate(0, 0, 1)
		params.To = &next
	}

	page := validation.ParsePagination(r, "limit", defaultCommentsPerPage, maxCommentsPerPage)
	params.Limit = page.Limit
	params.Offset = page.Offset

	comments, total, err := h.commentService.ListComments(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginated(w, toCommentDTOs(comments), page.Limit, page.Offset, total)
}

// HandleDeleteComment handles DELETE /comments/{commentID}.
func (h *CommentHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	commentID, err := parseIDParam(r, "commentID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.commentService.DeleteComment(r.Context(), claims.UserID, commentID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment deleted", "comment_id", commentID)

	WriteNoContent(w)
}
