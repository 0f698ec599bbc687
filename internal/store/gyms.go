package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Gym represents a climbing gym in the database. Rating, review count, and
// the congestion fields are denormalized aggregates maintained by the
// reviews and congestion stores.
type Gym struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Address              string     `json:"address"`
	District             string     `json:"district"`
	DayPrice             int        `json:"dayPrice"`
	MonthPrice           *int       `json:"monthPrice,omitempty"`
	Phone                *string    `json:"phone,omitempty"`
	Website              *string    `json:"website,omitempty"`
	OpenTime             *string    `json:"openTime,omitempty"`  // "HH:MM"
	CloseTime            *string    `json:"closeTime,omitempty"` // "HH:MM"
	RestDay              *string    `json:"restDay,omitempty"`
	Techniques           []string   `json:"techniques"`
	Description          string     `json:"description"`
	ImageURLs            []string   `json:"imageUrls"`
	CurrentCongestion    *string    `json:"currentCongestion,omitempty"`
	AvgCongestion        float64    `json:"avgCongestion"`
	LastCongestionUpdate *time.Time `json:"lastCongestionUpdate,omitempty"`
	Rating               float64    `json:"rating"`
	ReviewCount          int        `json:"reviewCount"`
	ViewCount            int        `json:"viewCount"`
	AddedBy              *string    `json:"addedBy,omitempty"`
	Verified             bool       `json:"verified"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// GymFilter narrows and orders gym listings.
type GymFilter struct {
	Search   string // matches name or address
	District string
	Sort     string // name | newest | price | rating
}

const gymColumns = `
	id, name, address, district, day_price, month_price, phone, website,
	open_time, close_time, rest_day, techniques, description, image_urls,
	current_congestion, avg_congestion, last_congestion_update,
	rating, review_count, view_count, added_by, verified, created_at, updated_at`

func scanGym(row pgx.Row, g *Gym) error {
	return row.Scan(
		&g.ID, &g.Name, &g.Address, &g.District, &g.DayPrice, &g.MonthPrice, &g.Phone, &g.Website,
		&g.OpenTime, &g.CloseTime, &g.RestDay, &g.Techniques, &g.Description, &g.ImageURLs,
		&g.CurrentCongestion, &g.AvgCongestion, &g.LastCongestionUpdate,
		&g.Rating, &g.ReviewCount, &g.ViewCount, &g.AddedBy, &g.Verified, &g.CreatedAt, &g.UpdatedAt,
	)
}

type GymsStore struct {
	db *pgxpool.Pool
}

func (s *GymsStore) Create(ctx context.Context, gym *Gym) error {
	query := `
		INSERT INTO gyms (name, address, district, day_price, month_price, phone, website,
			open_time, close_time, rest_day, techniques, description, image_urls, added_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, avg_congestion, rating, review_count, view_count, verified, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if gym.Techniques == nil {
		gym.Techniques = []string{}
	}
	if gym.ImageURLs == nil {
		gym.ImageURLs = []string{}
	}

	err := s.db.QueryRow(ctx, query,
		gym.Name, gym.Address, gym.District, gym.DayPrice, gym.MonthPrice, gym.Phone, gym.Website,
		gym.OpenTime, gym.CloseTime, gym.RestDay, gym.Techniques, gym.Description, gym.ImageURLs, gym.AddedBy,
	).Scan(
		&gym.ID, &gym.AvgCongestion, &gym.Rating, &gym.ReviewCount, &gym.ViewCount,
		&gym.Verified, &gym.CreatedAt, &gym.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return nil
}

// List returns gyms matching the filter. The empty filter lists everything,
// which is also what the recommendation ranking scores over.
func (s *GymsStore) List(ctx context.Context, filter GymFilter) ([]Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms`
	args := []interface{}{}
	argCounter := 1

	where := []string{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE '%%' || $%d || '%%' OR address ILIKE '%%' || $%d || '%%')", argCounter, argCounter))
		args = append(args, filter.Search)
		argCounter++
	}
	if filter.District != "" {
		where = append(where, fmt.Sprintf("district = $%d", argCounter))
		args = append(args, filter.District)
		argCounter++
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	switch filter.Sort {
	case "newest":
		query += " ORDER BY created_at DESC"
	case "price":
		query += " ORDER BY day_price ASC"
	case "rating":
		query += " ORDER BY rating DESC, review_count DESC"
	default:
		query += " ORDER BY name ASC"
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
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

func (s *GymsStore) GetByID(ctx context.Context, gymID int64) (*Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var g Gym
	if err := scanGym(s.db.QueryRow(ctx, query, gymID), &g); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return &g, nil
}

func (s *GymsStore) Exists(ctx context.Context, gymID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gyms WHERE id = $1)`, gymID).Scan(&exists)
	return exists, err
}

func (s *GymsStore) Delete(ctx context.Context, gymID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM gyms WHERE id = $1`, gymID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GymsStore) IncrementViewCount(ctx context.Context, gymID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, `UPDATE gyms SET view_count = view_count + 1 WHERE id = $1`, gymID)
	return err
}

// AddPhotoURL appends a new photo URL to a gym's image_urls array.
func (s *GymsStore) AddPhotoURL(ctx context.Context, gymID int64, photoURL string) error {
	query := `
		UPDATE gyms
		SET image_urls = array_append(image_urls, $1)
		WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, photoURL, gymID)
	if err != nil {
		return fmt.Errorf("failed to add photo URL: %w", err)
	}
	return nil
}

// RemovePhotoURL removes a specific photo URL from a gym's image_urls array.
func (s *GymsStore) RemovePhotoURL(ctx context.Context, gymID int64, photoURL string) error {
	query := `
		UPDATE gyms
		SET image_urls = array_remove(image_urls, $1)
		WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, photoURL, gymID)
	if err != nil {
		return fmt.Errorf("failed to remove photo URL: %w", err)
	}
	return nil
}

func (s *GymsStore) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM gyms`).Scan(&count)
	return count, err
}

// TechniqueDistribution counts how many gyms offer each technique.
func (s *GymsStore) TechniqueDistribution(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT t, COUNT(*)
		FROM gyms, unnest(techniques) AS t
		GROUP BY t
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int)
	var technique string
	var count int
	for rows.Next() {
		if err := rows.Scan(&technique, &count); err != nil {
			return nil, err
		}
		dist[technique] = count
	}
	return dist, rows.Err()
}

// Popular returns the most viewed gyms, for the dashboard.
func (s *GymsStore) Popular(ctx context.Context, limit int) ([]Gym, error) {
	query := `SELECT ` + gymColumns + ` FROM gyms ORDER BY view_count DESC, rating DESC LIMIT $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, limit)
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

func (s *GymsStore) Search(ctx context.Context, q string, limit int) ([]Gym, error) {
	query := `SELECT ` + gymColumns + `
		FROM gyms
		WHERE name ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY view_count DESC
		LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, q, limit)
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
