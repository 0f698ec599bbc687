package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionsStore backs the browser login flow. Only a SHA-256 hash of the
// session token ever touches the database; the plain token lives in the
// cookie and nowhere else.
type SessionsStore struct {
	db *pgxpool.Pool
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func (s *SessionsStore) Create(ctx context.Context, token string, userID string, expiry time.Time) error {
	query := `INSERT INTO sessions (token_hash, user_id, expiry) VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, hashToken(token), userID, expiry)
	return err
}

// GetUser resolves a session token to its user, rejecting expired sessions.
func (s *SessionsStore) GetUser(ctx context.Context, token string) (*User, error) {
	query := `
		SELECT u.user_id, u.password, u.nickname, u.email, u.level, u.techniques, u.has_instructor_license, u.created_at, u.updated_at
		FROM users u
		JOIN sessions s ON u.user_id = s.user_id
		WHERE s.token_hash = $1 AND s.expiry > $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := s.db.QueryRow(ctx, query, hashToken(token), time.Now()).Scan(
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

func (s *SessionsStore) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token_hash = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, hashToken(token))
	return err
}

func (s *SessionsStore) DeleteForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, userID)
	return err
}

// DeleteExpired clears stale rows; a background sweeper calls this on an interval.
func (s *SessionsStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expiry <= NOW()`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
