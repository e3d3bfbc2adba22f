package ports

import (
	"context"

	"github.com/lorrc/avisos-backend/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, params ListUsersParams) ([]*domain.User, int64, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// AnnouncementRepository persists announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *domain.Announcement) (*domain.Announcement, error)
	GetByID(ctx context.Context, id int64) (*domain.Announcement, error)
	List(ctx context.Context, params ListAnnouncementsParams) ([]*domain.Announcement, int64, error)
	Update(ctx context.Context, announcement *domain.Announcement) (*domain.Announcement, error)
	Delete(ctx context.Context, id int64) error
}

// CommentRepository persists comments. Create and every read return
// comments with author and announcement context attached.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetWithContext(ctx context.Context, id int64) (*domain.Comment, error)
	ListByAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error)
	List(ctx context.Context, params ListCommentsParams) ([]*domain.Comment, int64, error)
	Delete(ctx context.Context, id int64) error
}

// MetricsRepository computes and stores weekly participation metrics.
type MetricsRepository interface {
	ComputeWeek(ctx context.Context, week domain.WeekRange) (*domain.WeeklyMetric, error)
	Upsert(ctx context.Context, metric *domain.WeeklyMetric) (*domain.WeeklyMetric, error)
	List(ctx context.Context, params ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error)
}
