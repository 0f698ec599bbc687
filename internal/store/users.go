package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateUserID   = errors.New("a user with that ID already exists")
	ErrDuplicateNickname = errors.New("a user with that nickname already exists")
)

// Levels and Techniques are the fixed profile vocabularies. Handlers validate
// against them; stores trust their input.
var (
	Levels     = []string{"V0", "V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8"}
	Techniques = []string{"static", "dynamic", "lunge", "campus", "counter_balance", "dead_point"}
)

// ValidLevel reports whether level is a known bouldering grade.
func ValidLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}
	return false
}

// ValidTechniques reports whether every entry is part of the technique vocabulary.
func ValidTechniques(techniques []string) bool {
	known := make(map[string]bool, len(Techniques))
	for _, t := range Techniques {
		known[t] = true
	}
	for _, t := range techniques {
		if !known[t] {
			return false
		}
	}
	return true
}

type User struct {
	UserID               string    `json:"userId"`
	Password             password  `json:"-"` // Hide password
	Nickname             string    `json:"nickname"`
	Email                *string   `json:"email,omitempty"`
	Level                *string   `json:"level,omitempty"`
	Techniques           []string  `json:"techniques"`
	HasInstructorLicense bool      `json:"hasInstructorLicense"`
	RefreshToken         string    `json:"-"` // Sensitive data
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ActivityCounts summarizes everything a user has contributed, for mypage.
type ActivityCounts struct {
	Posts             int `json:"posts"`
	Comments          int `json:"comments"`
	Reviews           int `json:"reviews"`
	CongestionReports int `json:"congestionReports"`
	Bookmarks         int `json:"bookmarks"`
}

// Password struct to store plain text and hash
type password struct {
	text *string `json:"-"` // Hide plaintext password
	hash []byte  `json:"-"` // Hide hashed password
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

type UsersStore struct {
	db *pgxpool.Pool
}

func (s *UsersStore) Create(ctx context.Context, user *User) error {
	query := `
	  INSERT INTO users (user_id, password, nickname, email, level, techniques, has_instructor_license)
	  VALUES ($1, $2, $3, $4, $5, $6, $7)
	  RETURNING created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if user.Techniques == nil {
		user.Techniques = []string{}
	}

	err := s.db.QueryRow(
		ctx, query,
		user.UserID, user.Password.hash, user.Nickname, user.Email, user.Level, user.Techniques, user.HasInstructorLicense,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_pkey":
				return ErrDuplicateUserID
			case "users_nickname_key":
				return ErrDuplicateNickname
			}
		}
		return err
	}
	return nil
}

func (s *UsersStore) GetByID(ctx context.Context, userID string) (*User, error) {
	query := `
	   SELECT user_id, password, nickname, email, level, techniques, has_instructor_license, created_at, updated_at
	   FROM users
	   WHERE user_id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&user.UserID,
		&user.Password.hash,
		&user.Nickname,
		&user.Email,
		&user.Level,
		&user.Techniques,
		&user.HasInstructorLicense,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return user, nil
}

func (s *UsersStore) IDTaken(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}

func (s *UsersStore) NicknameTaken(ctx context.Context, nickname string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1)`, nickname,
	).Scan(&exists)
	return exists, err
}

// UpdateProfile applies a partial update built from whichever profile fields
// the request carried.
func (s *UsersStore) UpdateProfile(ctx context.Context, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no fields to update")
	}

	setClauses := []string{}
	args := []interface{}{}
	argCounter := 1

	for field, value := range updates {
		if !isValidProfileField(field) {
			return fmt.Errorf("invalid field name: %s", field)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field, argCounter))
		args = append(args, value)
		argCounter++
	}
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE user_id = $%d",
		strings.Join(setClauses, ", "), argCounter)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_nickname_key" {
			return ErrDuplicateNickname
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isValidProfileField(field string) bool {
	validFields := map[string]bool{
		"nickname":               true,
		"email":                  true,
		"level":                  true,
		"techniques":             true,
		"has_instructor_license": true,
	}
	return validFields[field]
}

// UpdatePassword stores the already-hashed password on the user row.
func (s *UsersStore) UpdatePassword(ctx context.Context, userID string, user *User) error {
	query := `UPDATE users SET password = $1, updated_at = NOW() WHERE user_id = $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, query, user.Password.hash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the account and its sessions. Content rows go with it via
// ON DELETE CASCADE.
func (s *UsersStore) Delete(ctx context.Context, userID string) error {
	return withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *UsersStore) SaveRefreshToken(ctx context.Context, userID string, refreshToken string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE user_id = $2`
	_, err := s.db.Exec(ctx, query, refreshToken, userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

func (s *UsersStore) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var refreshToken string

	query := `SELECT refresh_token FROM users WHERE user_id = $1`
	err := s.db.QueryRow(ctx, query, userID).Scan(&refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no refresh token found for user %s", userID)
		}
		return "", fmt.Errorf("failed to retrieve refresh token: %w", err)
	}

	return refreshToken, nil
}

func (s *UsersStore) DeleteRefreshToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET refresh_token = '', updated_at = NOW() WHERE user_id = $1`
	_, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (s *UsersStore) ActivityCounts(ctx context.Context, userID string) (*ActivityCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE user_id = $1),
			(SELECT COUNT(*) FROM comments WHERE user_id = $1),
			(SELECT COUNT(*) FROM reviews WHERE user_id = $1),
			(SELECT COUNT(*) FROM congestion_reports WHERE user_id = $1),
			(SELECT COUNT(*) FROM bookmarks WHERE user_id = $1)
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	counts := &ActivityCounts{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&counts.Posts,
		&counts.Comments,
		&counts.Reviews,
		&counts.CongestionReports,
		&counts.Bookmarks,
	)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *UsersStore) Search(ctx context.Context, q string, limit int) ([]User, error) {
	query := `
		SELECT user_id, nickname, email, level, techniques, has_instructor_license, created_at, updated_at
		FROM users
		WHERE nickname ILIKE '%' || $1 || '%'
		ORDER BY nickname
		LIMIT $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.UserID, &u.Nickname, &u.Email, &u.Level, &u.Techniques, &u.HasInstructorLicense, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
