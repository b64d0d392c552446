package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"badge-settlement-service/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLocker struct {
	locks atomic.Int32
}

func (l *countingLocker) Lock(context.Context, string) (gocron.Lock, error) {
	l.locks.Add(1)
	return noopLock{}, nil
}

type noopLock struct{}

func (noopLock) Unlock(context.Context) error { return nil }

func TestStartSettlementScheduler_RunsChallengeJob(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seedChallenge(store, "c1", t0, map[string]int64{"a": 4}, "a")
	locker := &countingLocker{}
	r := newRunner(t, store, store, nil)

	sched, err := r.StartSettlementScheduler(context.Background(), SchedulerConfig{
		ChallengeInterval: 20 * time.Millisecond,
		Locker:            locker,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	assert.Eventually(t, func() bool {
		u, err := store.GetUser(context.Background(), "a")
		return err == nil && u.Badges.Has(models.BadgeWeeklyWinner)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Positive(t, locker.locks.Load())
	assert.Len(t, sched.Jobs(), 1)
}

func TestStartSettlementScheduler_BadCron(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	r := newRunner(t, store, store, nil)

	_, err := r.StartSettlementScheduler(context.Background(), SchedulerConfig{WeeklyCron: "every monday"})
	require.Error(t, err)
}
