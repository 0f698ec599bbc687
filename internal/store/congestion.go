package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"holdme/internal/congestion"
)

// CongestionReport is one crowd-level observation for a gym. Reports are
// append-only; the rolling average on the gym row is derived from them.
type CongestionReport struct {
	ID          int64     `json:"id"`
	GymID       int64     `json:"gymId"`
	UserID      string    `json:"userId"`
	Level       string    `json:"level"`
	PeopleCount *int      `json:"peopleCount,omitempty"`
	ReportedAt  time.Time `json:"reportedAt"`

	// Joined field
	GymName string `json:"gymName,omitempty"`
}

type CongestionStore struct {
	db *pgxpool.Pool
}

// pgInterval renders a duration as a Postgres interval literal, e.g. "7200 seconds".
func pgInterval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}

// Submit inserts the report and refreshes the gym's aggregate in one
// transaction, so concurrent reports cannot overwrite each other's window.
// It returns the recomputed average.
func (s *CongestionStore) Submit(ctx context.Context, report *CongestionReport) (float64, error) {
	var avg float64

	err := withTx(s.db, ctx, func(tx pgx.Tx) error {
		ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
		defer cancel()

		insert := `
			INSERT INTO congestion_reports (gym_id, user_id, level, people_count)
			VALUES ($1, $2, $3, $4)
			RETURNING id, reported_at
		`
		err := tx.QueryRow(ctx, insert,
			report.GymID, report.UserID, report.Level, report.PeopleCount,
		).Scan(&report.ID, &report.ReportedAt)
		if err != nil {
			return err
		}

		// Window: the most recent reports, capped in count and age. The row
		// just inserted is part of it.
		window := `
			SELECT level FROM congestion_reports
			WHERE gym_id = $1 AND reported_at > NOW() - $2::interval
			ORDER BY reported_at DESC
			LIMIT $3
		`
		rows, err := tx.Query(ctx, window,
			report.GymID, pgInterval(congestion.WindowAge), congestion.WindowSize,
		)
		if err != nil {
			return err
		}
		labels := []string{}
		for rows.Next() {
			var label string
			if err := rows.Scan(&label); err != nil {
				rows.Close()
				return err
			}
			labels = append(labels, label)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		windowAvg, ok := congestion.Average(labels)
		if ok {
			update := `
				UPDATE gyms
				SET avg_congestion = $1, current_congestion = $2, last_congestion_update = NOW()
				WHERE id = $3
				RETURNING avg_congestion
			`
			return tx.QueryRow(ctx, update, windowAvg, report.Level, report.GymID).Scan(&avg)
		}

		// Empty window: leave the gym row untouched and report the stored
		// average. Unreachable in practice, the row just inserted is always
		// inside the window.
		return tx.QueryRow(ctx,
			`SELECT avg_congestion FROM gyms WHERE id = $1`, report.GymID,
		).Scan(&avg)
	})
	if err != nil {
		return 0, err
	}

	return avg, nil
}

// LastReportBy returns the reporter's most recent report for the gym within
// the given duration, or ErrNotFound. Duplicate suppression only applies to
// authenticated reporters, so callers skip this for the anonymous sentinel.
func (s *CongestionStore) LastReportBy(ctx context.Context, gymID int64, userID string, within time.Duration) (*CongestionReport, error) {
	query := `
		SELECT id, gym_id, user_id, level, people_count, reported_at
		FROM congestion_reports
		WHERE gym_id = $1 AND user_id = $2 AND reported_at > NOW() - $3::interval
		ORDER BY reported_at DESC
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	report := &CongestionReport{}
	err := s.db.QueryRow(ctx, query, gymID, userID, pgInterval(within)).Scan(
		&report.ID, &report.GymID, &report.UserID, &report.Level, &report.PeopleCount, &report.ReportedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}
	return report, nil
}

func (s *CongestionStore) RecentByGym(ctx context.Context, gymID int64, limit int) ([]CongestionReport, error) {
	query := `
		SELECT id, gym_id, user_id, level, people_count, reported_at
		FROM congestion_reports
		WHERE gym_id = $1
		ORDER BY reported_at DESC
		LIMIT $2
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, gymID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []CongestionReport
	for rows.Next() {
		var r CongestionReport
		if err := rows.Scan(&r.ID, &r.GymID, &r.UserID, &r.Level, &r.PeopleCount, &r.ReportedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *CongestionStore) ListByUser(ctx context.Context, userID string) ([]CongestionReport, error) {
	query := `
		SELECT cr.id, cr.gym_id, cr.user_id, cr.level, cr.people_count, cr.reported_at, g.name
		FROM congestion_reports cr
		JOIN gyms g ON g.id = cr.gym_id
		WHERE cr.user_id = $1
		ORDER BY cr.reported_at DESC
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []CongestionReport
	for rows.Next() {
		var r CongestionReport
		if err := rows.Scan(&r.ID, &r.GymID, &r.UserID, &r.Level, &r.PeopleCount, &r.ReportedAt, &r.GymName); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
