package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardStats is the aggregate snapshot behind the dashboard endpoint.
// Weekly numbers cover the trailing seven days.
type DashboardStats struct {
	TotalUsers             int `json:"totalUsers"`
	TotalGyms              int `json:"totalGyms"`
	TotalPosts             int `json:"totalPosts"`
	TotalReviews           int `json:"totalReviews"`
	TotalCongestionReports int `json:"totalCongestionReports"`

	WeeklySignups int `json:"weeklySignups"`
	WeeklyPosts   int `json:"weeklyPosts"`
	WeeklyReviews int `json:"weeklyReviews"`
	WeeklyReports int `json:"weeklyReports"`

	PopularGyms []Gym  `json:"popularGyms"`
	RecentUsers []User `json:"recentUsers"`
}

type DashboardStore struct {
	db *pgxpool.Pool
}

func (s *DashboardStore) Stats(ctx context.Context) (*DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM gyms),
			(SELECT COUNT(*) FROM posts),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM congestion_reports),
			(SELECT COUNT(*) FROM users WHERE created_at > NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM posts WHERE created_at > NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM reviews WHERE created_at > NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM congestion_reports WHERE reported_at > NOW() - INTERVAL '7 days')
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	stats := &DashboardStats{}
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalGyms,
		&stats.TotalPosts,
		&stats.TotalReviews,
		&stats.TotalCongestionReports,
		&stats.WeeklySignups,
		&stats.WeeklyPosts,
		&stats.WeeklyReviews,
		&stats.WeeklyReports,
	)
	if err != nil {
		return nil, err
	}

	popular := `
		SELECT id, name, address, district, day_price, month_price, phone, website,
		       open_time, close_time, rest_day, techniques, description, image_urls,
		       current_congestion, avg_congestion, last_congestion_update,
		       rating, review_count, view_count, added_by, verified, created_at, updated_at
		FROM gyms
		ORDER BY view_count DESC, rating DESC
		LIMIT 5
	`
	rows, err := s.db.Query(ctx, popular)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var g Gym
		if err := scanGym(rows, &g); err != nil {
			rows.Close()
			return nil, err
		}
		stats.PopularGyms = append(stats.PopularGyms, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recent := `
		SELECT user_id, nickname, level, techniques, has_instructor_license, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT 5
	`
	rows, err = s.db.Query(ctx, recent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.Nickname, &u.Level, &u.Techniques, &u.HasInstructorLicense, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		stats.RecentUsers = append(stats.RecentUsers, u)
	}
	return stats, rows.Err()
}
