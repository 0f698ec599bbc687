package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CallAsync runs fn on its own goroutine with a detached context so a push
// send never blocks, or gets canceled with, the request that triggered it.
// Failures are logged; a push send has no caller left to return an error to.
func CallAsync(logger *zap.SugaredLogger, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := fn(ctx); err != nil {
			logger.Errorw("push notification send failed", "error", err)
		}
	}()
}
