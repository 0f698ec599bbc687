package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Participation states for a meetup join request.
const (
	ParticipantPending  = "pending"
	ParticipantApproved = "approved"
	ParticipantRejected = "rejected"
	ParticipantCanceled = "canceled"
)

// MeetingParticipant is one user's join request on a meetup post.
type MeetingParticipant struct {
	ID       int64     `json:"id"`
	PostID   int64     `json:"postId"`
	UserID   string    `json:"userId"`
	Status   string    `json:"status"`
	Message  *string   `json:"message,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`

	// Joined field
	Nickname string `json:"nickname,omitempty"`
}

type ParticipantsStore struct {
	db *pgxpool.Pool
}

// Join files a pending request. A second request by the same user on the
// same post hits the unique constraint and maps to ErrConflict.
func (s *ParticipantsStore) Join(ctx context.Context, p *MeetingParticipant) error {
	query := `
		INSERT INTO meeting_participants (post_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, status, joined_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query, p.PostID, p.UserID, p.Message).Scan(&p.ID, &p.Status, &p.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Cancel withdraws the user's own request. An approved participant leaving
// frees their spot and reopens a full meetup.
func (s *ParticipantsStore) Cancel(ctx context.Context, postID int64, userID string) error {
	return withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var prevStatus string
		lock := `
			SELECT status FROM meeting_participants
			WHERE post_id = $1 AND user_id = $2 AND status IN ('pending', 'approved')
			FOR UPDATE
		`
		if err := tx.QueryRow(ctx, lock, postID, userID).Scan(&prevStatus); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		update := `
			UPDATE meeting_participants
			SET status = 'canceled'
			WHERE post_id = $1 AND user_id = $2
		`
		if _, err := tx.Exec(ctx, update, postID, userID); err != nil {
			return err
		}

		if prevStatus != ParticipantApproved {
			return nil
		}

		release := `
			UPDATE posts
			SET current_people = current_people - 1,
			    meeting_status = CASE WHEN meeting_status = 'full' THEN 'open' ELSE meeting_status END,
			    updated_at = NOW()
			WHERE id = $1
		`
		_, err := tx.Exec(ctx, release, postID)
		return err
	})
}

// SetStatus is the host's moderation path. Approving takes a spot on the
// post and flips it to full when capacity is reached; both writes share one
// transaction with the status change.
func (s *ParticipantsStore) SetStatus(ctx context.Context, postID int64, userID string, status string) error {
	return withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		update := `
			UPDATE meeting_participants
			SET status = $1
			WHERE post_id = $2 AND user_id = $3 AND status = 'pending'
		`
		tag, err := tx.Exec(ctx, update, status, postID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if status != ParticipantApproved {
			return nil
		}

		take := `
			UPDATE posts
			SET current_people = current_people + 1,
			    meeting_status = CASE
			        WHEN max_people IS NOT NULL AND current_people + 1 >= max_people THEN 'full'
			        ELSE meeting_status
			    END,
			    updated_at = NOW()
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, take, postID)
		return err
	})
}

func (s *ParticipantsStore) GetByPost(ctx context.Context, postID int64) ([]MeetingParticipant, error) {
	query := `
		SELECT mp.id, mp.post_id, mp.user_id, mp.status, mp.message, mp.joined_at, u.nickname
		FROM meeting_participants mp
		JOIN users u ON u.user_id = mp.user_id
		WHERE mp.post_id = $1
		ORDER BY mp.joined_at ASC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []MeetingParticipant
	for rows.Next() {
		var p MeetingParticipant
		if err := rows.Scan(&p.ID, &p.PostID, &p.UserID, &p.Status, &p.Message, &p.JoinedAt, &p.Nickname); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *ParticipantsStore) Get(ctx context.Context, postID int64, userID string) (*MeetingParticipant, error) {
	query := `
		SELECT id, post_id, user_id, status, message, joined_at
		FROM meeting_participants
		WHERE post_id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	p := &MeetingParticipant{}
	err := s.db.QueryRow(ctx, query, postID, userID).Scan(
		&p.ID, &p.PostID, &p.UserID, &p.Status, &p.Message, &p.JoinedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return p, nil
}
