package main

import (
	"context"
	"time"
)

func (app *application) sweepPastMeetupsEvery30Mins() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		// Run once immediately
		app.sweepPastMeetups()

		// Then run every 30 minutes
		for range ticker.C {
			app.sweepPastMeetups()
		}
	}()
}

func (app *application) sweepPastMeetups() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := app.store.Posts.SweepPastMeetups(ctx)
	if err != nil {
		app.logger.Errorf("Error completing past meetups: %v", err)
		return
	}
	if n > 0 {
		app.logger.Infof("Marked %d past meetups as completed", n)
	}
}

func (app *application) cleanupSessionsHourly() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

			n, err := app.store.Sessions.DeleteExpired(ctx)
			if err != nil {
				app.logger.Errorf("Error deleting expired sessions: %v", err)
			} else if n > 0 {
				app.logger.Infof("Deleted %d expired sessions", n)
			}

			cancel()
		}
	}()
}

func (app *application) prunePushTokensDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

			// Tokens untouched for 90 days are considered dead devices.
			if err := app.store.PushTokens.PruneStale(ctx, 90*24*time.Hour); err != nil {
				app.logger.Errorf("Error pruning stale push tokens: %v", err)
			}

			cancel()
		}
	}()
}
