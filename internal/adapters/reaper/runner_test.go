package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosswerks/glosswerks-api/config"
)

type stubSweeper struct{ swept chan time.Time }

func (s *stubSweeper) Sweep(now time.Time) int {
	select {
	case s.swept <- now:
	default:
	}
	return 0
}

func (s *stubSweeper) Len() int { return 0 }

func TestNewRunner_RequiresSweeper(t *testing.T) {
	_, err := NewRunner(RunnerOptions{Config: config.ReaperConfig{Interval: time.Minute}})
	require.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	sweeper := &stubSweeper{swept: make(chan time.Time, 1)}
	r, err := NewRunner(RunnerOptions{Sweeper: sweeper, Config: config.ReaperConfig{Interval: 10 * time.Millisecond}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-sweeper.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never swept")
	}
	cancel()
	assert.NoError(t, <-done)
}
