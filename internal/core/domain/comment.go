package domain

import (
	"strings"
	"time"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// MaxCommentBodyLength bounds the size of a comment body in runes.
const MaxCommentBodyLength = 2000

// Comment is a reply posted under an announcement.
type Comment struct {
	ID             int64
	AnnouncementID int64
	AuthorID       int64
	Body           string
	CreatedAt      time.Time

	// Author and Announcement are attached by context-loading reads.
	Author       *UserInfo
	Announcement *AnnouncementRef
}

// AnnouncementRef is the parent-announcement context of a comment.
type AnnouncementRef struct {
	ID        int64
	Title     string
	CreatedBy int64
}

// NewComment validates the input and builds an unsaved comment.
func NewComment(announcementID, authorID int64, body string) (*Comment, error) {
	body = strings.TrimSpace(body)

	switch {
	case announcementID <= 0:
		return nil, apperrors.ErrAnnouncementIDRequired
	case authorID <= 0:
		return nil, apperrors.ErrAuthorIDRequired
	case body == "":
		return nil, apperrors.ErrCommentBodyRequired
	case len([]rune(body)) > MaxCommentBodyLength:
		return nil, apperrors.ErrCommentBodyTooLong
	}

	return &Comment{
		AnnouncementID: announcementID,
		AuthorID:       authorID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// HasContext reports whether author and announcement context are attached.
func (c *Comment) HasContext() bool {
	return c.Author != nil && c.Announcement != nil
}
