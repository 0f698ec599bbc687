package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post categories.
const (
	CategoryReview   = "review"
	CategoryQuestion = "question"
	CategoryMeetup   = "meetup"
)

// Meetup lifecycle states.
const (
	MeetingStatusOpen      = "open"
	MeetingStatusFull      = "full"
	MeetingStatusOngoing   = "ongoing"
	MeetingStatusCompleted = "completed"
	MeetingStatusCanceled  = "canceled"
)

// ValidCategory reports whether category is one of the board categories.
func ValidCategory(category string) bool {
	switch category {
	case CategoryReview, CategoryQuestion, CategoryMeetup:
		return true
	}
	return false
}

// Post is a community board entry. The meeting fields are only set for
// meetup posts.
type Post struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"userId"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Category      string     `json:"category"`
	Likes         int        `json:"likes"`
	Views         int        `json:"views"`
	MeetingDate   *time.Time `json:"meetingDate,omitempty"`
	MeetingGymID  *int64     `json:"meetingGymId,omitempty"`
	MaxPeople     *int       `json:"maxPeople,omitempty"`
	CurrentPeople int        `json:"currentPeople"`
	MeetingStatus *string    `json:"meetingStatus,omitempty"`
	ShareCode     *string    `json:"shareCode,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`

	// Joined fields
	Nickname     string `json:"nickname,omitempty"`
	GymName      string `json:"gymName,omitempty"`
	CommentCount int    `json:"commentCount"`
}

// PostFilter narrows and pages post listings.
type PostFilter struct {
	Category string
	Page     int
	PageSize int
}

const postColumns = `
	p.id, p.user_id, p.title, p.content, p.category, p.likes, p.views,
	p.meeting_date, p.meeting_gym_id, p.max_people, p.current_people, p.meeting_status,
	p.share_code, p.image_url, p.created_at, p.updated_at, u.nickname`

func scanPost(row pgx.Row, p *Post) error {
	return row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Content, &p.Category, &p.Likes, &p.Views,
		&p.MeetingDate, &p.MeetingGymID, &p.MaxPeople, &p.CurrentPeople, &p.MeetingStatus,
		&p.ShareCode, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.Nickname,
	)
}

type PostsStore struct {
	db *pgxpool.Pool
}

func (s *PostsStore) Create(ctx context.Context, post *Post) error {
	query := `
		INSERT INTO posts (user_id, title, content, category, meeting_date, meeting_gym_id,
			max_people, meeting_status, share_code, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, likes, views, current_people, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query,
		post.UserID, post.Title, post.Content, post.Category, post.MeetingDate, post.MeetingGymID,
		post.MaxPeople, post.MeetingStatus, post.ShareCode, post.ImageURL,
	).Scan(&post.ID, &post.Likes, &post.Views, &post.CurrentPeople, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return err
	}
	return nil
}

// List returns one page of posts plus the total match count for pagination.
func (s *PostsStore) List(ctx context.Context, filter PostFilter) ([]Post, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	where := ""
	args := []interface{}{}
	if filter.Category != "" {
		where = " WHERE p.category = $1"
		args = append(args, filter.Category)
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var total int
	countQuery := `SELECT COUNT(*) FROM posts p` + where
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s, (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		postColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.Content, &p.Category, &p.Likes, &p.Views,
			&p.MeetingDate, &p.MeetingGymID, &p.MaxPeople, &p.CurrentPeople, &p.MeetingStatus,
			&p.ShareCode, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt, &p.Nickname, &p.CommentCount,
		); err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

func (s *PostsStore) GetByID(ctx context.Context, postID int64) (*Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var p Post
	if err := scanPost(s.db.QueryRow(ctx, query, postID), &p); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return &p, nil
}

// Update rewrites the author-editable fields.
func (s *PostsStore) Update(ctx context.Context, post *Post) error {
	query := `
		UPDATE posts
		SET title = $1, content = $2, meeting_date = $3, max_people = $4, image_url = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(ctx, query,
		post.Title, post.Content, post.MeetingDate, post.MaxPeople, post.ImageURL, post.ID,
	).Scan(&post.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *PostsStore) Delete(ctx context.Context, postID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostsStore) IncrementViews(ctx context.Context, postID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, postID)
	return err
}

// ToggleLike flips the user's like on a post and keeps the denormalized
// counter in step, all in one transaction. It returns whether the post is
// now liked and the new like count.
func (s *PostsStore) ToggleLike(ctx context.Context, postID int64, userID string) (bool, int, error) {
	var liked bool
	var likes int

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`
		if err := tx.QueryRow(ctx, check, postID, userID).Scan(&exists); err != nil {
			return err
		}

		if exists {
			if _, err := tx.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID); err != nil {
				return err
			}
			liked = false
			return tx.QueryRow(ctx,
				`UPDATE posts SET likes = likes - 1 WHERE id = $1 RETURNING likes`, postID,
			).Scan(&likes)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID); err != nil {
			return err
		}
		liked = true
		return tx.QueryRow(ctx,
			`UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING likes`, postID,
		).Scan(&likes)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}

	return liked, likes, nil
}

func (s *PostsStore) GetByUser(ctx context.Context, userID string) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpcomingMeetupsByGym lists open meetups scheduled at the gym, soonest first.
func (s *PostsStore) UpcomingMeetupsByGym(ctx context.Context, gymID int64, limit int) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.category = 'meetup'
		  AND p.meeting_gym_id = $1
		  AND p.meeting_date > NOW()
		  AND p.meeting_status IN ('open', 'full')
		ORDER BY p.meeting_date ASC
		LIMIT $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, gymID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostsStore) SetMeetingStatus(ctx context.Context, postID int64, status string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`UPDATE posts SET meeting_status = $1, updated_at = NOW() WHERE id = $2 AND category = 'meetup'`,
		status, postID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SweepPastMeetups marks meetups whose date has passed as completed. A
// background ticker calls this.
func (s *PostsStore) SweepPastMeetups(ctx context.Context) (int64, error) {
	query := `
		UPDATE posts
		SET meeting_status = 'completed', updated_at = NOW()
		WHERE category = 'meetup'
		  AND meeting_date < NOW()
		  AND meeting_status IN ('open', 'full', 'ongoing')
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostsStore) Search(ctx context.Context, q string, limit int) ([]Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.title ILIKE '%' || $1 || '%' OR p.content ILIKE '%' || $1 || '%'
		ORDER BY p.created_at DESC
		LIMIT $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
