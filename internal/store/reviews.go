package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewDifficulties and ReviewCrowdLevels are the optional enum fields a
// review can carry.
var (
	ReviewDifficulties = []string{"easy", "moderate", "hard"}
	ReviewCrowdLevels  = []string{"relaxed", "moderate", "crowded"}
)

type Review struct {
	ID         int64      `json:"id"`
	GymID      int64      `json:"gymId"`
	UserID     string     `json:"userId"`
	Rating     int        `json:"rating"` // 1-5
	Content    string     `json:"content"`
	VisitDate  *time.Time `json:"visitDate,omitempty"`
	Difficulty *string    `json:"difficulty,omitempty"`
	CrowdLevel *string    `json:"crowdLevel,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	// Joined fields
	Nickname string `json:"nickname,omitempty"`
	GymName  string `json:"gymName,omitempty"`
}

type ReviewsStore struct {
	db *pgxpool.Pool
}

// recomputeGymRating does a full recompute of the gym's denormalized rating
// aggregate from its surviving reviews. Zero reviews reset to 0.0 / 0.
func recomputeGymRating(ctx context.Context, tx pgx.Tx, gymID int64) (float64, error) {
	var count int
	var avg float64

	stats := `
		SELECT COUNT(id), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE gym_id = $1
	`
	if err := tx.QueryRow(ctx, stats, gymID).Scan(&count, &avg); err != nil {
		return 0, err
	}

	rating := math.Round(avg*10) / 10

	update := `UPDATE gyms SET rating = $1, review_count = $2, updated_at = NOW() WHERE id = $3`
	if _, err := tx.Exec(ctx, update, rating, count, gymID); err != nil {
		return 0, err
	}
	return rating, nil
}

// Create inserts the review and recomputes the gym's rating in the same
// transaction. It returns the updated gym rating.
func (s *ReviewsStore) Create(ctx context.Context, review *Review) (float64, error) {
	var rating float64

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		query := `
			INSERT INTO reviews (gym_id, user_id, rating, content, visit_date, difficulty, crowd_level)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			review.GymID, review.UserID, review.Rating, review.Content,
			review.VisitDate, review.Difficulty, review.CrowdLevel,
		).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
		if err != nil {
			return err
		}

		rating, err = recomputeGymRating(ctx, tx, review.GymID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

// Update rewrites the mutable fields of an existing review and recomputes
// the gym's rating. Ownership is checked by the caller via GetByID.
func (s *ReviewsStore) Update(ctx context.Context, review *Review) (float64, error) {
	var rating float64

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		query := `
			UPDATE reviews
			SET rating = $1, content = $2, visit_date = $3, difficulty = $4, crowd_level = $5, updated_at = NOW()
			WHERE id = $6
			RETURNING updated_at
		`
		err := tx.QueryRow(ctx, query,
			review.Rating, review.Content, review.VisitDate, review.Difficulty, review.CrowdLevel, review.ID,
		).Scan(&review.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		rating, err = recomputeGymRating(ctx, tx, review.GymID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

// Delete removes the review and recomputes the gym's rating.
func (s *ReviewsStore) Delete(ctx context.Context, reviewID, gymID int64) (float64, error) {
	var rating float64

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		tag, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		rating, err = recomputeGymRating(ctx, tx, gymID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rating, nil
}

func (s *ReviewsStore) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	query := `
		SELECT id, gym_id, user_id, rating, content, visit_date, difficulty, crowd_level, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	review := &Review{}
	err := s.db.QueryRow(ctx, query, reviewID).Scan(
		&review.ID, &review.GymID, &review.UserID, &review.Rating, &review.Content,
		&review.VisitDate, &review.Difficulty, &review.CrowdLevel, &review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return review, nil
}

func (s *ReviewsStore) GetByGym(ctx context.Context, gymID int64) ([]Review, error) {
	query := `
		SELECT r.id, r.gym_id, r.user_id, r.rating, r.content, r.visit_date, r.difficulty, r.crowd_level,
		       r.created_at, r.updated_at, u.nickname
		FROM reviews r
		JOIN users u ON u.user_id = r.user_id
		WHERE r.gym_id = $1
		ORDER BY r.created_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(
			&r.ID, &r.GymID, &r.UserID, &r.Rating, &r.Content, &r.VisitDate, &r.Difficulty, &r.CrowdLevel,
			&r.CreatedAt, &r.UpdatedAt, &r.Nickname,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *ReviewsStore) GetByUser(ctx context.Context, userID string) ([]Review, error) {
	query := `
		SELECT r.id, r.gym_id, r.user_id, r.rating, r.content, r.visit_date, r.difficulty, r.crowd_level,
		       r.created_at, r.updated_at, g.name
		FROM reviews r
		JOIN gyms g ON g.id = r.gym_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(
			&r.ID, &r.GymID, &r.UserID, &r.Rating, &r.Content, &r.VisitDate, &r.Difficulty, &r.CrowdLevel,
			&r.CreatedAt, &r.UpdatedAt, &r.GymName,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// HasReview returns true if a review by this user on this gym already exists.
func (s *ReviewsStore) HasReview(ctx context.Context, gymID int64, userID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
		  SELECT 1 FROM reviews
		  WHERE gym_id = $1 AND user_id = $2
		)
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query, gymID, userID).Scan(&exists)
	return exists, err
}
