package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Users interface {
		Create(context.Context, *User) error
		GetByID(context.Context, string) (*User, error)
		NicknameTaken(context.Context, string) (bool, error)
		IDTaken(context.Context, string) (bool, error)
		UpdateProfile(context.Context, string, map[string]interface{}) error
		UpdatePassword(context.Context, string, *User) error
		Delete(context.Context, string) error
		SaveRefreshToken(context.Context, string, string) error
		GetRefreshToken(context.Context, string) (string, error)
		DeleteRefreshToken(context.Context, string) error
		ActivityCounts(context.Context, string) (*ActivityCounts, error)
		Search(context.Context, string, int) ([]User, error)
	}
	Sessions interface {
		Create(context.Context, string, string, time.Time) error
		GetUser(context.Context, string) (*User, error)
		Delete(context.Context, string) error
		DeleteForUser(context.Context, string) error
		DeleteExpired(context.Context) (int64, error)
	}
	Gyms interface {
		Create(context.Context, *Gym) error
		List(context.Context, GymFilter) ([]Gym, error)
		GetByID(context.Context, int64) (*Gym, error)
		Exists(context.Context, int64) (bool, error)
		Delete(context.Context, int64) error
		IncrementViewCount(context.Context, int64) error
		AddPhotoURL(context.Context, int64, string) error
		RemovePhotoURL(context.Context, int64, string) error
		Count(context.Context) (int, error)
		TechniqueDistribution(context.Context) (map[string]int, error)
		Popular(context.Context, int) ([]Gym, error)
		Search(context.Context, string, int) ([]Gym, error)
	}
	Congestion interface {
		Submit(context.Context, *CongestionReport) (float64, error)
		LastReportBy(context.Context, int64, string, time.Duration) (*CongestionReport, error)
		RecentByGym(context.Context, int64, int) ([]CongestionReport, error)
		ListByUser(context.Context, string) ([]CongestionReport, error)
	}
	Reviews interface {
		Create(context.Context, *Review) (float64, error)
		Update(context.Context, *Review) (float64, error)
		Delete(context.Context, int64, int64) (float64, error)
		GetByID(context.Context, int64) (*Review, error)
		GetByGym(context.Context, int64) ([]Review, error)
		GetByUser(context.Context, string) ([]Review, error)
		HasReview(context.Context, int64, string) (bool, error)
	}
	Posts interface {
		Create(context.Context, *Post) error
		List(context.Context, PostFilter) ([]Post, int, error)
		GetByID(context.Context, int64) (*Post, error)
		Update(context.Context, *Post) error
		Delete(context.Context, int64) error
		IncrementViews(context.Context, int64) error
		ToggleLike(context.Context, int64, string) (bool, int, error)
		GetByUser(context.Context, string) ([]Post, error)
		UpcomingMeetupsByGym(context.Context, int64, int) ([]Post, error)
		SetMeetingStatus(context.Context, int64, string) error
		SweepPastMeetups(context.Context) (int64, error)
		Search(context.Context, string, int) ([]Post, error)
	}
	Comments interface {
		Create(context.Context, *Comment) error
		GetByPost(context.Context, int64) ([]Comment, error)
		GetByID(context.Context, int64) (*Comment, error)
		Delete(context.Context, int64) error
	}
	Participants interface {
		Join(context.Context, *MeetingParticipant) error
		Cancel(context.Context, int64, string) error
		SetStatus(context.Context, int64, string, string) error
		GetByPost(context.Context, int64) ([]MeetingParticipant, error)
		Get(context.Context, int64, string) (*MeetingParticipant, error)
	}
	Bookmarks interface {
		Toggle(context.Context, string, int64) (bool, error)
		ListByUser(context.Context, string) ([]Gym, error)
	}
	PushTokens interface {
		AddOrUpdate(context.Context, string, string, []byte) error
		Remove(context.Context, string, string) error
		GetTokensByUserIDs(context.Context, []string) (map[string][]string, error)
		PruneStale(context.Context, time.Duration) error
	}
	Dashboard interface {
		Stats(context.Context) (*DashboardStats, error)
	}
}

func NewStorage(db *pgxpool.Pool) Storage {
	return Storage{
		Users:        &UsersStore{db},
		Sessions:     &SessionsStore{db},
		Gyms:         &GymsStore{db},
		Congestion:   &CongestionStore{db},
		Reviews:      &ReviewsStore{db},
		Posts:        &PostsStore{db},
		Comments:     &CommentsStore{db},
		Participants: &ParticipantsStore{db},
		Bookmarks:    &BookmarksStore{db},
		PushTokens:   &PushTokensStore{db},
		Dashboard:    &DashboardStore{db},
	}
}

// withTx runs fn inside a transaction, rolling back on any error.
func withTx(db *pgxpool.Pool, ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
