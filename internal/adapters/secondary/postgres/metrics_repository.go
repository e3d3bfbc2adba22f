package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/avisos-backend/internal/core/domain"
	"github.com/lorrc/avisos-backend/internal/core/ports"
)

// MetricsRepository aggregates and stores weekly participation metrics.
type MetricsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MetricsRepository = (*MetricsRepository)(nil)

func NewMetricsRepository(pool *pgxpool.Pool) ports.MetricsRepository {
	return &MetricsRepository{pool: pool}
}

const weeklyMetricColumns = `id, week_start, week_end, total_announcements, total_comments, active_users, created_at, updated_at`

func scanWeeklyMetric(row pgx.Row) (*domain.WeeklyMetric, error) {
	var (
		m          domain.WeeklyMetric
		start, end pgtype.Date
	)
	err := row.Scan(&m.ID, &start, &end, &m.TotalAnnouncements, &m.TotalComments,
		&m.ActiveUsers, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.WeekStart = fromDate(start)
	m.WeekEnd = fromDate(end)
	return &m, nil
}

// ComputeWeek counts announcements whose declared week falls inside the
// range, comments created during it, and the distinct users behind either.
func (r *MetricsRepository) ComputeWeek(ctx context.Context, week domain.WeekRange) (*domain.WeeklyMetric, error) {
	const query = `
WITH week_announcements AS (
    SELECT created_by FROM announcements
    WHERE week_start >= $1 AND week_end <= $2
), week_comments AS (
    SELECT author_id FROM comments
    WHERE created_at >= $3 AND created_at < $4
)
SELECT
    (SELECT COUNT(*) FROM week_announcements),
    (SELECT COUNT(*) FROM week_comments),
    (SELECT COUNT(*) FROM (
        SELECT created_by FROM week_announcements
        UNION
        SELECT author_id FROM week_comments
    ) active)`

	end := week.EndExclusive()
	m := &domain.WeeklyMetric{WeekStart: week.Start, WeekEnd: week.End}
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		toDate(week.Start), toDate(week.End), toNullTimestamptz(&week.Start), toNullTimestamptz(&end),
	).Scan(&m.TotalAnnouncements, &m.TotalComments, &m.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("compute week %s: %w", week.Start.Format(domain.DateLayout), err)
	}
	return m, nil
}

// Upsert stores the metric keyed by its week start.
func (r *MetricsRepository) Upsert(ctx context.Context, m *domain.WeeklyMetric) (*domain.WeeklyMetric, error) {
	const query = `
INSERT INTO weekly_metrics (week_start, week_end, total_announcements, total_comments, active_users)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (week_start) DO UPDATE
SET week_end = EXCLUDED.week_end,
    total_announcements = EXCLUDED.total_announcements,
    total_comments = EXCLUDED.total_comments,
    active_users = EXCLUDED.active_users,
    updated_at = NOW()
RETURNING ` + weeklyMetricColumns

	stored, err := scanWeeklyMetric(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		toDate(m.WeekStart), toDate(m.WeekEnd), m.TotalAnnouncements, m.TotalComments, m.ActiveUsers))
	if err != nil {
		return nil, fmt.Errorf("upsert weekly metric: %w", err)
	}
	return stored, nil
}

// List returns stored metrics, newest week first.
func (r *MetricsRepository) List(ctx context.Context, params ports.ListWeeklyMetricsParams) ([]*domain.WeeklyMetric, int64, error) {
	const where = ` WHERE ($1::date IS NULL OR week_start >= $1) AND ($2::date IS NULL OR week_start <= $2)`
	from, to := toNullDate(params.From), toNullDate(params.To)
	db := GetDBTX(ctx, r.pool)

	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM weekly_metrics`+where, from, to).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count weekly metrics: %w", err)
	}

	rows, err := db.Query(ctx,
		`SELECT `+weeklyMetricColumns+` FROM weekly_metrics`+where+` ORDER BY week_start DESC LIMIT $3 OFFSET $4`,
		from, to, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list weekly metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]*domain.WeeklyMetric, 0)
	for rows.Next() {
		m, err := scanWeeklyMetric(rows)
		if err != nil {
			return nil, 0, err
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return metrics, total, nil
}
