package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	apperrors "github.com/lorrc/avisos-backend/internal/core/errors"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) ports.CommentRepository {
	return &CommentRepository{pool: pool}
}

const commentContextColumns = `
SELECT c.id, c.announcement_id, c.author_id, c.body, c.created_at,
       u.name, u.email, a.title, a.created_by`

const commentContextJoins = `
JOIN users u ON u.id = c.author_id
JOIN announcements a ON a.id = c.announcement_id`

const commentSelect = commentContextColumns + `
FROM comments c` + commentContextJoins

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var (
		c      domain.Comment
		author domain.UserInfo
		ref    domain.AnnouncementRef
	)
	err := row.Scan(&c.ID, &c.AnnouncementID, &c.AuthorID, &c.Body, &c.CreatedAt,
		&author.Name, &author.Email, &ref.Title, &ref.CreatedBy)
	if err != nil {
		return nil, err
	}
	author.ID = c.AuthorID
	ref.ID = c.AnnouncementID
	c.Author = &author
	c.Announcement = &ref
	return &c, nil
}

func collectComments(rows pgx.Rows) ([]*domain.Comment, error) {
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// Create inserts the comment and returns it with author and announcement
// context in a single round trip.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	const query = `
WITH c AS (
    INSERT INTO comments (announcement_id, author_id, body)
    VALUES ($1, $2, $3)
    RETURNING id, announcement_id, author_id, body, created_at
)` + commentContextColumns + `
FROM c` + commentContextJoins

	created, err := scanComment(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		comment.AnnouncementID, comment.AuthorID, comment.Body))
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, apperrors.ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return created, nil
}

// GetWithContext loads a comment together with its author and announcement.
func (r *CommentRepository) GetWithContext(ctx context.Context, id int64) (*domain.Comment, error) {
	c, err := scanComment(GetDBTX(ctx, r.pool).QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment %d: %w", id, err)
	}
	return c, nil
}

// ListByAnnouncement returns the announcement's comments, newest first.
func (r *CommentRepository) ListByAnnouncement(ctx context.Context, announcementID int64) ([]*domain.Comment, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		commentSelect+` WHERE c.announcement_id = $1 ORDER BY c.created_at DESC, c.id DESC`,
		announcementID)
	if err != nil {
		return nil, fmt.Errorf("list comments of announcement %d: %w", announcementID, err)
	}
	return collectComments(rows)
}

// List searches comments with optional filters, newest first.
func (r *CommentRepository) List(ctx context.Context, params ports.ListCommentsParams) ([]*domain.Comment, int64, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if params.AnnouncementID != nil {
		add("c.announcement_id = $%d", toNullInt8(params.AnnouncementID))
	}
	if params.AuthorID != nil {
		add("c.author_id = $%d", toNullInt8(params.AuthorID))
	}
	if params.AuthorName != nil {
		add("u.name ILIKE '%%' || $%d::text || '%%'", toNullText(params.AuthorName))
	}
	if params.From != nil {
		add("c.created_at >= $%d", toNullTimestamptz(params.From))
	}
	if params.To != nil {
		add("c.created_at < $%d", toNullTimestamptz(params.To))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	db := GetDBTX(ctx, r.pool)

	var total int64
	countQuery := `SELECT COUNT(*) FROM comments c` + commentContextJoins + where
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	pageArgs := append(args, params.Limit, params.Offset)
	query := fmt.Sprintf("%s%s ORDER BY c.created_at DESC, c.id DESC LIMIT $%d OFFSET $%d",
		commentSelect, where, len(args)+1, len(args)+2)

	rows, err := db.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	comments, err := collectComments(rows)
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCommentNotFound
	}
	return nil
}
