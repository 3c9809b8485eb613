package commands

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestJanitorValidate(t *testing.T) {
	require.NoError(t, (&JanitorCmd{}).Validate())
	require.NoError(t, (&JanitorCmd{Schedule: "@every 1h"}).Validate())
	require.NoError(t, (&JanitorCmd{Schedule: "0 3 * * *"}).Validate())
	require.Error(t, (&JanitorCmd{Schedule: "every hour"}).Validate())
}

func TestRunScheduled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- runScheduled(ctx, zerolog.Nop(), "@every 1s", func() { runs.Add(1) })
	}()

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunScheduledInvalid(t *testing.T) {
	err := runScheduled(context.Background(), zerolog.Nop(), "nonsense", func() {})
	require.Error(t, err)
}
