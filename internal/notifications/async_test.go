package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCallAsyncLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	CallAsync(logger, func(ctx context.Context) error {
		return errors.New("expo gateway unreachable")
	})

	deadline := time.After(2 * time.Second)
	for logs.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("send failure was not logged")
		case <-time.After(10 * time.Millisecond):
		}
	}

	entry := logs.All()[0]
	if entry.Message != "push notification send failed" {
		t.Errorf("message = %q, want %q", entry.Message, "push notification send failed")
	}
	fields := entry.ContextMap()
	if got, ok := fields["error"]; !ok || got != "expo gateway unreachable" {
		t.Errorf("error field = %v, want %q", got, "expo gateway unreachable")
	}
}

func TestCallAsyncSilentOnSuccess(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core).Sugar()

	done := make(chan struct{})
	CallAsync(logger, func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
	if logs.Len() != 0 {
		t.Errorf("logged %d entries on success, want 0", logs.Len())
	}
}
