package ports

import (
	"context"
	"time"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, actorID int64, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	EnsureAdmin(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, bool, error)
}

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID int64, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID int64) ([]string, error)
}

// UserService manages existing accounts.
type UserService interface {
	ListUsers(ctx context.Context, actorID int64, params ListUsersParams) ([]*domain.User, int64, error)
	GetUser(ctx context.Context, actorID, userID int64) (*domain.User, error)
	UpdateUser(ctx context.Context, actorID, userID int64, update domain.UserUpdate) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, userID int64) error
}

// ListUsersParams defines the input for listing accounts.
type ListUsersParams struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

// ListAnnouncementsParams defines the input for listing announcements.
type ListAnnouncementsParams struct {
	Limit      int
	Offset     int
	ActiveOnly bool
}

// CreateCommentParams defines the input for creating a comment.
type CreateCommentParams struct {
	AnnouncementID int64
	ActorID        int64
	Body           string
}

// ListCommentsParams defines the filters for the comment search.
type ListCommentsParams struct {
	AnnouncementID *int64
	AuthorID       *int64
	AuthorName     *string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// ListWeeklyMetricsParams defines the filters for stored weekly metrics.
type ListWeeklyMetricsParams struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID int64
	Subject         string
	Message         string
	AnnouncementID  int64
}

// AnnouncementService defines the business operations on announcements.
type AnnouncementService interface {
	Create(ctx context.Context, actorID int64, params domain.AnnouncementParams) (*domain.Announcement, error)
	Get(ctx context.Context, id int64) (*domain.Announcement, error)
	List(ctx context.Context, params ListAnnouncementsParams) ([]*domain.Announcement, int64, error)
	Update(ctx context.Context, actorID, id int64, update domain.AnnouncementUpdate) (*domain.Announcement, error)
	Delete(ctx context.Context, actorID, id int64) error
}

// CommentService defines the port for comment-related business logic.
type CommentService interface {
	CreateComment(ctx context.Context, params CreateCommentParams) (*domain.Comment, error)
	ListForAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error)
	ListComments(ctx context.Context, params ListCommentsParams) ([]*domain.Comment, int64, error)
	DeleteComment(ctx context.Context, actorID, commentID int64) error
}

// MetricsService defines the weekly metrics operations.
type MetricsService interface {
	ListWeekly(ctx context.Context, params ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error)
	RecalculateWeek(ctx context.Context, actorID int64, day time.Time) (*domain.WeeklyMetric, error)
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
