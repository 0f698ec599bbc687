package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookmarksStore handles database operations for gym bookmarks.
type BookmarksStore struct {
	db *pgxpool.Pool
}

// Toggle adds the bookmark if absent and removes it if present, returning
// whether the gym is now bookmarked.
func (s *BookmarksStore) Toggle(ctx context.Context, userID string, gymID int64) (bool, error) {
	var bookmarked bool

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM bookmarks WHERE user_id = $1 AND gym_id = $2)`
		if err := tx.QueryRow(ctx, check, userID, gymID).Scan(&exists); err != nil {
			return err
		}

		if exists {
			_, err := tx.Exec(ctx, `DELETE FROM bookmarks WHERE user_id = $1 AND gym_id = $2`, userID, gymID)
			bookmarked = false
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO bookmarks (user_id, gym_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, gymID,
		)
		bookmarked = true
		return err
	})
	if err != nil {
		return false, err
	}

	return bookmarked, nil
}

// ListByUser returns all gyms the user has bookmarked, newest bookmark first.
func (s *BookmarksStore) ListByUser(ctx context.Context, userID string) ([]Gym, error) {
	query := `
		SELECT g.id, g.name, g.address, g.district, g.day_price, g.month_price, g.phone, g.website,
		       g.open_time, g.close_time, g.rest_day, g.techniques, g.description, g.image_urls,
		       g.current_congestion, g.avg_congestion, g.last_congestion_update,
		       g.rating, g.review_count, g.view_count, g.added_by, g.verified, g.created_at, g.updated_at
		FROM gyms g
		JOIN bookmarks b ON g.id = b.gym_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gyms []Gym
	for rows.Next() {
		var g Gym
		if err := scanGym(rows, &g); err != nil {
			return nil, err
		}
		gyms = append(gyms, g)
	}
	return gyms, rows.Err()
}
