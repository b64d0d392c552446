package services

import (
	"context"
	"testing"
	"time"

	"badge-settlement-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UnionReturnsOnlyInserted(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.PutUser(models.User{ID: "u"})
	ctx := context.Background()

	got, err := s.UnionUserBadges(ctx, "u", []models.BadgeID{models.BadgeLegend, models.BadgeLegend, models.BadgeLiked}, "x")
	require.NoError(t, err)
	assert.Equal(t, []models.BadgeID{models.BadgeLegend, models.BadgeLiked}, got)

	got, err = s.UnionUserBadges(ctx, "u", []models.BadgeID{models.BadgeLiked}, "x")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.UnionUserBadges(ctx, "ghost", []models.BadgeID{models.BadgeLiked}, "x")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryStore_Leaders(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	s.PutUser(models.User{ID: "b", Points: 10, WeeklyPoints: 5})
	s.PutUser(models.User{ID: "a", Points: 10, WeeklyPoints: 0})
	s.PutUser(models.User{ID: "c", Points: 30, WeeklyPoints: 5})
	ctx := context.Background()

	weekly, err := s.ListWeeklyLeaders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, "b", weekly[0].ID)
	assert.Equal(t, "c", weekly[1].ID)

	all, err := s.ListLeaders(ctx, TimeframeAllTime, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}

func TestMemoryStore_AddPointsUpserts(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	u, err := s.AddPoints(context.Background(), "new", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.Points)
	assert.Equal(t, int64(7), u.WeeklyPoints)
	assert.NotNil(t, u.Badges)
}

func TestMemoryStore_ListUserIDsPages(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	for _, id := range []string{"d", "a", "c", "b", "e"} {
		s.PutUser(models.User{ID: id})
	}
	ctx := context.Background()

	page, err := s.ListUserIDs(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page)

	page, err = s.ListUserIDs(ctx, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, page)

	page, err = s.ListUserIDs(ctx, "d", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, page)
}

func TestMemoryStore_SyncBadgeTypes(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	require.NoError(t, s.SyncBadgeTypes(context.Background(), DefaultBadges))
	types := s.BadgeTypes()
	require.Len(t, types, len(DefaultBadges))
	assert.Equal(t, "centurion", types[0].Code)
}

func TestRankEntries(t *testing.T) {
	t.Parallel()

	entries := []models.ChallengeEntry{
		{ID: "z", Likes: 5, CreatedAt: t0},
		{ID: "y", Likes: 5, CreatedAt: t0.Add(-time.Minute)},
		{ID: "x", Likes: 3, CreatedAt: t0.Add(-time.Hour)},
		{ID: "a", Likes: 5, CreatedAt: t0},
	}
	RankEntries(entries)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"y", "a", "z", "x"}, ids)
}
