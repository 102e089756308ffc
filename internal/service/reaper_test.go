package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosswerks/glosswerks-api/config"
	mocksauth "github.com/glosswerks/glosswerks-api/internal/mocks/auth"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	swept chan struct{}
}

func (c *countingSweeper) Sweep(now time.Time) int {
	c.mu.Lock()
	c.calls = append(c.calls, now)
	c.mu.Unlock()
	select {
	case c.swept <- struct{}{}:
	default:
	}
	return 0
}

func (c *countingSweeper) Len() int { return 0 }

func (c *countingSweeper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestNewReaperService_RequiresSweeper(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Config: config.ReaperConfig{Interval: time.Minute}})
	require.Error(t, err)
}

func TestReaperService_RunSweepsUntilCanceled(t *testing.T) {
	sweeper := &countingSweeper{swept: make(chan struct{}, 1)}
	svc, err := NewReaperService(ReaperServiceOptions{
		Sweeper: sweeper,
		Config:  config.ReaperConfig{Interval: 20 * time.Millisecond},
		Logger:  quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	for range 2 {
		select {
		case <-sweeper.swept:
		case <-time.After(2 * time.Second):
			t.Fatal("reaper did not sweep")
		}
	}
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
	assert.GreaterOrEqual(t, sweeper.count(), 2)
}

func TestReaperService_RunReturnsDeadlineError(t *testing.T) {
	svc, err := NewReaperService(ReaperServiceOptions{
		Sweeper: &countingSweeper{swept: make(chan struct{}, 1)},
		Config:  config.ReaperConfig{Interval: time.Hour},
		Logger:  quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
}

func TestReaperService_EvictsIdleRegistryMachines(t *testing.T) {
	r := newTestRegistry(t, SignalStores{Profiles: mocksauth.NewMemoryProfileStore()}, nil)
	signIn(t, r, "client-a", "sub-1")
	require.Equal(t, 1, r.Len())

	svc, err := NewReaperService(ReaperServiceOptions{
		Sweeper: r,
		Config:  config.ReaperConfig{Interval: time.Hour},
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(testConfig().ClientIdleTTL + time.Minute) }

	svc.sweep(context.Background())
	assert.Zero(t, r.Len())
}
