package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// AnnouncementRepository handles database operations for announcements.
type AnnouncementRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AnnouncementRepository = (*AnnouncementRepository)(nil)

// NewAnnouncementRepository creates a new announcement repository.
func NewAnnouncementRepository(pool *pgxpool.Pool) ports.AnnouncementRepository {
	return &AnnouncementRepository{pool: pool}
}

const announcementSelect = `
SELECT a.id, a.title, a.description, a.week_start, a.week_end, a.created_by,
       a.active, a.created_at, a.updated_at, u.name, u.email
FROM announcements a
JOIN users u ON u.id = a.created_by`

func scanAnnouncement(row pgx.Row) (*domain.Announcement, error) {
	var (
		a            domain.Announcement
		start, end   pgtype.Date
		creatorName  string
		creatorEmail string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Description, &start, &end, &a.CreatedBy,
		&a.Active, &a.CreatedAt, &a.UpdatedAt, &creatorName, &creatorEmail)
	if err != nil {
		return nil, err
	}
	a.WeekStart = fromDate(start)
	a.WeekEnd = fromDate(end)
	a.Creator = &domain.UserInfo{ID: a.CreatedBy, Name: creatorName, Email: creatorEmail}
	return &a, nil
}

// Create persists a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	const query = `
INSERT INTO announcements (title, description, week_start, week_end, created_by, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	var id int64
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		a.Title, a.Description, toDate(a.WeekStart), toDate(a.WeekEnd), a.CreatedBy, a.Active,
	).Scan(&id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert announcement: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns the announcement with its creator attached.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*domain.Announcement, error) {
	a, err := scanAnnouncement(GetDBTX(ctx, r.pool).QueryRow(ctx, announcementSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("get announcement %d: %w", id, err)
	}
	return a, nil
}

// List returns announcements newest first with the total matching count.
func (r *AnnouncementRepository) List(ctx context.Context, params ports.ListAnnouncementsParams) ([]*domain.Announcement, int64, error) {
	const where = ` WHERE ($1::bool = false OR a.active)`
	db := GetDBTX(ctx, r.pool)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM announcements a`+where, params.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}

	rows, err := db.Query(ctx,
		announcementSelect+where+` ORDER BY a.created_at DESC, a.id DESC LIMIT $2 OFFSET $3`,
		params.ActiveOnly, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	announcements := make([]*domain.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, 0, err
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return announcements, total, nil
}

// Update stores every mutable field of the announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	const query = `
UPDATE announcements
SET title = $2, description = $3, week_start = $4, week_end = $5, active = $6, updated_at = NOW()
WHERE id = $1`

	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, query,
		a.ID, a.Title, a.Description, toDate(a.WeekStart), toDate(a.WeekEnd), a.Active)
	if err != nil {
		return nil, fmt.Errorf("update announcement %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrAnnouncementNotFound
	}

	return r.GetByID(ctx, a.ID)
}

// Delete removes the announcement; its comments go with it.
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAnnouncementNotFound
	}
	return nil
}
