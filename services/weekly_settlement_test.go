package services

import (
	"context"
	"errors"
	"testing"

	"badge-settlement-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWeek(s *MemoryStore) {
	for id, pts := range map[string]int64{"a": 50, "b": 80, "c": 50, "d": 10, "e": 0} {
		s.PutUser(models.User{ID: id, Points: pts * 2, WeeklyPoints: pts})
	}
}

func TestSettleWeek_AwardsThenResets(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	seedWeek(store.MemoryStore)
	e := newEngine(t, store)

	res, err := NewWeeklySettler(store, e.evaluator, e.applier).SettleWeek(context.Background(), t0)
	require.NoError(t, err)

	require.Len(t, res.Placements, 3)
	assert.Equal(t, "b", res.Placements[0].UserID)
	assert.Equal(t, "a", res.Placements[1].UserID, "ties go to the lower user id")
	assert.Equal(t, "c", res.Placements[2].UserID)
	assert.Equal(t, int64(80), res.Placements[0].Score)
	assert.Equal(t, int64(4), res.UsersReset)

	assert.Equal(t, []models.BadgeID{models.BadgeTopContributor, models.BadgeWeeklyWinner}, badgesOf(t, store, "b").Slice())
	assert.Equal(t, []models.BadgeID{models.BadgeTopContributor}, badgesOf(t, store, "c").Slice())
	assert.Empty(t, badgesOf(t, store, "d"))

	for _, id := range []string{"a", "b", "c", "d"} {
		u, err := store.GetUser(context.Background(), id)
		require.NoError(t, err)
		assert.Zero(t, u.WeeklyPoints, id)
		assert.NotZero(t, u.Points, "all-time points survive the reset")
	}
}

func TestSettleWeek_NoResetOnAwardFailure(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	seedWeek(store.MemoryStore)
	store.unionFn = func(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error) {
		if userID == "a" {
			return nil, errors.New("connection refused")
		}
		return store.MemoryStore.UnionUserBadges(ctx, userID, badges, source)
	}
	e := newEngine(t, store)
	settler := NewWeeklySettler(store, e.evaluator, e.applier)

	res, err := settler.SettleWeek(context.Background(), t0)
	var serr *SettlementError
	require.ErrorAs(t, err, &serr)
	require.NotNil(t, res)
	assert.True(t, res.Failed())
	assert.Zero(t, store.resetCalls.Load())

	u, err := store.GetUser(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, int64(80), u.WeeklyPoints, "weekly points stay for the retry")

	// retry once the store recovers: same podium, no double awards
	store.unionFn = nil
	res, err = settler.SettleWeek(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Placements[1].UserID)
	assert.Equal(t, []models.BadgeID{models.BadgeTopContributor}, res.Placements[1].Awarded)
	assert.Empty(t, res.Placements[0].Awarded, "b was already awarded on the failed run")
	assert.Equal(t, int32(1), store.resetCalls.Load())
}

func TestSettleWeek_ResetFailure(t *testing.T) {
	t.Parallel()

	store := newFaultyStore()
	seedWeek(store.MemoryStore)
	store.resetFn = func(context.Context) (int64, error) { return 0, errors.New("disk full") }
	e := newEngine(t, store)

	_, err := NewWeeklySettler(store, e.evaluator, e.applier).SettleWeek(context.Background(), t0)
	var serr *SettlementError
	require.ErrorAs(t, err, &serr)
	assert.True(t, IsRetryable(err))
}

func TestSettleWeek_IdleWeek(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutUser(models.User{ID: "a", Points: 10})
	e := newEngine(t, store)

	res, err := NewWeeklySettler(store, e.evaluator, e.applier).SettleWeek(context.Background(), t0)
	require.NoError(t, err)
	assert.Empty(t, res.Placements)
	assert.Equal(t, "no weekly activity", res.Message)
	assert.Empty(t, badgesOf(t, store, "a"))
}
