package domain

import (
	"strings"
	"time"

	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
)

// DateLayout is the calendar-date format used for week boundaries.
const DateLayout = "2006-01-02"

const (
	MinAnnouncementTextLength  = 3
	MaxAnnouncementTitleLength = 200
)

// Announcement is a weekly notice posted to the board.
type Announcement struct {
	ID          int64
	Title       string
	Description string
	WeekStart   time.Time
	WeekEnd     time.Time
	CreatedBy   int64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Creator is populated by reads that join the author.
	Creator *UserInfo
}

// AnnouncementParams holds the input for creating an announcement.
type AnnouncementParams struct {
	Title       string
	Description string
	WeekStart   time.Time
	WeekEnd     time.Time
}

// AnnouncementUpdate is a partial update; nil fields are left untouched.
type AnnouncementUpdate struct {
	Title       *string
	Description *string
	WeekStart   *time.Time
	WeekEnd     *time.Time
	Active      *bool
}

// NewAnnouncement validates params and builds an active announcement.
func NewAnnouncement(params AnnouncementParams, creatorID int64) (*Announcement, error) {
	if creatorID <= 0 {
		return nil, apperrors.ErrAuthorIDRequired
	}

	now := time.Now().UTC()
	a := &Announcement{
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		WeekStart:   truncateDate(params.WeekStart),
		WeekEnd:     truncateDate(params.WeekEnd),
		CreatedBy:   creatorID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Apply merges a partial update and re-validates the result.
func (a *Announcement) Apply(u AnnouncementUpdate) error {
	if u.Title != nil {
		a.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		a.Description = strings.TrimSpace(*u.Description)
	}
	if u.WeekStart != nil {
		a.WeekStart = truncateDate(*u.WeekStart)
	}
	if u.WeekEnd != nil {
		a.WeekEnd = truncateDate(*u.WeekEnd)
	}
	if u.Active != nil {
		a.Active = *u.Active
	}
	if err := a.Validate(); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate checks the announcement's field rules.
func (a *Announcement) Validate() error {
	errs := apperrors.NewValidationErrors()

	switch {
	case len([]rune(a.Title)) < MinAnnouncementTextLength:
		errs.Add("title", "Title must be at least 3 characters")
	case len([]rune(a.Title)) > MaxAnnouncementTitleLength:
		errs.Add("title", "Title must be 200 characters or less")
	}
	if len([]rune(a.Description)) < MinAnnouncementTextLength {
		errs.Add("description", "Description must be at least 3 characters")
	}
	if a.WeekStart.IsZero() {
		errs.Add("week_start", "Week start is required")
	}
	if a.WeekEnd.IsZero() {
		errs.Add("week_end", "Week end is required")
	}
	if !a.WeekStart.IsZero() && !a.WeekEnd.IsZero() && a.WeekEnd.Before(a.WeekStart) {
		errs.Add("week_end", "Week end must not be before week start")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Ref returns the reduced announcement context attached to comments.
func (a *Announcement) Ref() AnnouncementRef {
	return AnnouncementRef{ID: a.ID, Title: a.Title, CreatedBy: a.CreatedBy}
}

func truncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
