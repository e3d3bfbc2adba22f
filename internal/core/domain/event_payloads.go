package domain

import (
	"time"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// CommentSnapshot is the denormalized comment shape shared by the REST
// API and the real-time channel.
type CommentSnapshot struct {
	ID             int64     `json:"id"`
	AnnouncementID int64     `json:"announcement_id"`
	Body           string    `json:"body"`
	CreatedAt      string    `json:"created_at"`
	Author         *UserInfo `json:"author"`
}

// AnnouncementSnapshot matches the API response shape for announcements.
type AnnouncementSnapshot struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	WeekStart   string    `json:"week_start"`
	WeekEnd     string    `json:"week_end"`
	Active      bool      `json:"active"`
	CreatedBy   int64     `json:"created_by"`
	Creator     *UserInfo `json:"creator,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

// NewCommentSnapshot builds a snapshot from a context-loaded comment.
func NewCommentSnapshot(comment *Comment) (CommentSnapshot, error) {
	if comment.Author == nil {
		return CommentSnapshot{}, apperrors.ErrCommentContextMissing
	}
	author := *comment.Author

	snap := CommentSnapshot{
		ID:             comment.ID,
		AnnouncementID: comment.AnnouncementID,
		Body:           comment.Body,
		CreatedAt:      comment.CreatedAt.UTC().Format(time.RFC3339),
		Author:         &author,
	}
	return snap, snap.Validate()
}

// Validate rejects snapshots missing identity or author context.
func (s CommentSnapshot) Validate() error {
	switch {
	case s.ID <= 0, s.AnnouncementID <= 0, s.CreatedAt == "":
		return apperrors.ErrCommentContextMissing
	case s.Author == nil || s.Author.ID <= 0 || s.Author.Name == "":
		return apperrors.ErrCommentContextMissing
	}
	return nil
}

// NewAnnouncementSnapshot builds a snapshot from a domain announcement.
func NewAnnouncementSnapshot(a *Announcement) AnnouncementSnapshot {
	return AnnouncementSnapshot{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		WeekStart:   a.WeekStart.Format(DateLayout),
		WeekEnd:     a.WeekEnd.Format(DateLayout),
		Active:      a.Active,
		CreatedBy:   a.CreatedBy,
		Creator:     a.Creator,
		CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
