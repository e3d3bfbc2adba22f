package domain

import "time"

// WeeklyMetric is the participation summary of one Monday to Sunday week.
type WeeklyMetric struct {
	ID                 int64
	WeekStart          time.Time
	WeekEnd            time.Time
	TotalAnnouncements int
	TotalComments      int
	ActiveUsers        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// WeekRange is a Monday to Sunday calendar week. Start and End are dates
// at midnight UTC; End is the Sunday.
type WeekRange struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the week containing the calendar date of t.
func WeekOf(t time.Time) WeekRange {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// Go weeks start on Sunday (0); shift so Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return WeekRange{Start: start, End: start.AddDate(0, 0, 6)}
}

// EndExclusive is the instant right after the week's Sunday.
func (w WeekRange) EndExclusive() time.Time {
	return w.End.AddDate(0, 0, 1)
}

// WeeklyMetricSnapshot matches the API response shape for weekly metrics.
type WeeklyMetricSnapshot struct {
	ID                 int64  `json:"id"`
	WeekStart          string `json:"week_start"`
	WeekEnd            string `json:"week_end"`
	TotalAnnouncements int    `json:"total_announcements"`
	TotalComments      int    `json:"total_comments"`
	ActiveUsers        int    `json:"active_users"`
	UpdatedAt          string `json:"updated_at"`
}

// NewWeeklyMetricSnapshot builds a snapshot from a domain metric.
func NewWeeklyMetricSnapshot(m *WeeklyMetric) WeeklyMetricSnapshot {
	return WeeklyMetricSnapshot{
		ID:                 m.ID,
		WeekStart:          m.WeekStart.Format(DateLayout),
		WeekEnd:            m.WeekEnd.Format(DateLayout),
		TotalAnnouncements: m.TotalAnnouncements,
		TotalComments:      m.TotalComments,
		ActiveUsers:        m.ActiveUsers,
		UpdatedAt:          m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
