package cli

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"wealthplanner/internal/log"
)

func TestRunStopsAllTasksOnFailure(t *testing.T) {
	boom := errors.New("boom")
	var stopped atomic.Bool

	err := Run(context.Background(),
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Store(true)
			return ctx.Err()
		},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
	if !stopped.Load() {
		t.Fatal("sibling task was not cancelled")
	}
}

func TestRunTreatsCancellationAsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("got %v", err)
	}
}

func TestTickerTaskLogsAndContinues(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	task := TickerTask(logger, "purge", time.Millisecond, func(context.Context) error {
		if calls.Add(1) >= 3 {
			cancel()
		}
		return errors.New("transient")
	})
	if err := task(ctx); err != nil {
		t.Fatalf("got %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected repeated calls, got %d", calls.Load())
	}
	if !bytes.Contains(buf.Bytes(), []byte("task=purge")) {
		t.Fatalf("failure not logged: %s", buf.String())
	}
}
