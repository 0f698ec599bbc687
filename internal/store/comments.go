package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Comment belongs to a post. ParentID points at another comment for replies;
// one level of nesting, same as the board UI renders.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	ParentID  *int64    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined field
	Nickname string `json:"nickname,omitempty"`

	Replies []Comment `json:"replies,omitempty"`
}

type CommentsStore struct {
	db *pgxpool.Pool
}

func (s *CommentsStore) Create(ctx context.Context, comment *Comment) error {
	query := `
		INSERT INTO comments (post_id, user_id, content, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query,
		comment.PostID, comment.UserID, comment.Content, comment.ParentID,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return err
	}
	return nil
}

// GetByPost returns the post's comments threaded: top-level comments in
// posting order, each carrying its replies.
func (s *CommentsStore) GetByPost(ctx context.Context, postID int64) ([]Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.user_id, c.content, c.parent_id, c.created_at, u.nickname
		FROM comments c
		JOIN users u ON u.user_id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flat []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.ParentID, &c.CreatedAt, &c.Nickname); err != nil {
			return nil, err
		}
		flat = append(flat, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID := make(map[int64]*Comment, len(flat))
	var roots []Comment
	for _, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, c)
			byID[c.ID] = &roots[len(roots)-1]
		}
	}
	for _, c := range flat {
		if c.ParentID == nil {
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return roots, nil
}

func (s *CommentsStore) GetByID(ctx context.Context, commentID int64) (*Comment, error) {
	query := `
		SELECT id, post_id, user_id, content, parent_id, created_at
		FROM comments
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	comment := &Comment{}
	err := s.db.QueryRow(ctx, query, commentID).Scan(
		&comment.ID, &comment.PostID, &comment.UserID, &comment.Content, &comment.ParentID, &comment.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return comment, nil
}

func (s *CommentsStore) Delete(ctx context.Context, commentID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
