package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"badge-settlement-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	pgOnce    sync.Once
	pgHostDSN string // without dbname
	pgInitErr error
	pgDBSeq   atomic.Int32
)

// newGormTestStore returns a GormStore on a fresh, migrated database inside a
// shared postgres container. The container lives until the process exits.
func newGormTestStore(t *testing.T) *GormStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}

	pgOnce.Do(func() {
		pgHostDSN, pgInitErr = startPostgres()
	})
	if pgInitErr != nil {
		t.Fatalf("failed to start postgres: %v", pgInitErr)
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	admin, err := gorm.Open(postgres.Open(pgHostDSN+" dbname=testdb"), cfg)
	require.NoError(t, err)

	name := fmt.Sprintf("badges_%d", pgDBSeq.Add(1))
	require.NoError(t, admin.Exec("CREATE DATABASE "+name).Error)
	if sqlDB, err := admin.DB(); err == nil {
		sqlDB.Close()
	}

	db, err := gorm.Open(postgres.Open(pgHostDSN+" dbname="+name), cfg)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.Line{},
		&models.LineComment{},
		&models.Challenge{},
		&models.ChallengeEntry{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func startPostgres() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}
	return fmt.Sprintf("host=%s port=%s user=testuser password=testpass sslmode=disable", host, port.Port()), nil
}

func TestGormStore_UnionReturnsOnlyInserted(t *testing.T) {
	t.Parallel()

	s := newGormTestStore(t)
	ctx := context.Background()
	_, err := s.AddPoints(ctx, "u1", 1)
	require.NoError(t, err)

	got, err := s.UnionUserBadges(ctx, "u1", []models.BadgeID{models.BadgeFirstSteps, models.BadgeLiked}, "activity")
	require.NoError(t, err)
	assert.Equal(t, []models.BadgeID{models.BadgeFirstSteps, models.BadgeLiked}, got)

	got, err = s.UnionUserBadges(ctx, "u1", []models.BadgeID{models.BadgeLiked, models.BadgeChampion}, "activity")
	require.NoError(t, err)
	assert.Equal(t, []models.BadgeID{models.BadgeChampion}, got)

	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.NewBadgeSet(models.BadgeFirstSteps, models.BadgeLiked, models.BadgeChampion), user.Badges)

	_, err = s.UnionUserBadges(ctx, "ghost", []models.BadgeID{models.BadgeLiked}, "activity")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGormStore_ConcurrentUnionAwardsOnce(t *testing.T) {
	t.Parallel()

	s := newGormTestStore(t)
	ctx := context.Background()
	_, err := s.AddPoints(ctx, "u1", 1)
	require.NoError(t, err)

	const workers = 8
	var (
		wg    sync.WaitGroup
		total atomic.Int32
		errs  = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.UnionUserBadges(ctx, "u1", []models.BadgeID{models.BadgeLegend, models.BadgeWeeklyWinner}, "weekly:2026-03-02")
			if err != nil {
				errs <- err
				return
			}
			total.Add(int32(len(got)))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), total.Load())
	awards, err := s.ListBadgeAwards(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, awards, 2)
}

func TestGormStore_AddPointsUpserts(t *testing.T) {
	t.Parallel()

	s := newGormTestStore(t)
	ctx := context.Background()

	u, err := s.AddPoints(ctx, "new", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.Points)
	assert.Equal(t, int64(7), u.WeeklyPoints)

	u, err = s.AddPoints(ctx, "new", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(12), u.Points)
	assert.Equal(t, int64(12), u.WeeklyPoints)
	assert.Empty(t, u.Badges)
}

func TestGormStore_WeeklyLeadersAndReset(t *testing.T) {
	t.Parallel()

	s := newGormTestStore(t)
	ctx := context.Background()
	for _, u := range []struct {
		id     string
		points int64
	}{{"c", 5}, {"b", 5}, {"d", 9}, {"a", 0}} {
		_, err := s.AddPoints(ctx, u.id, u.points)
		require.NoError(t, err)
	}

	leaders, err := s.ListWeeklyLeaders(ctx, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(leaders))
	for _, u := range leaders {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"d", "b", "c"}, ids)

	reset, err := s.ResetWeeklyPoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reset)

	leaders, err = s.ListWeeklyLeaders(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, leaders)

	d, err := s.GetUser(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, int64(9), d.Points)
	assert.Zero(t, d.WeeklyPoints)
}

func TestGormStore_ActivityCounts(t *testing.T) {
	t.Parallel()

	s := newGormTestStore(t)
	ctx := context.Background()

	lines := []models.Line{
		{ID: uuid.NewString(), UserID: "u1", Shared: true, Likes: 5},
		{ID: uuid.NewString(), UserID: "u1", Shared: true, Likes: 6},
		{ID: uuid.NewString(), UserID: "u1", Likes: 40},
		{ID: uuid.NewString(), UserID: "u2", Shared: true, Likes: 3},
	}
	require.NoError(t, s.DB.Create(&lines).Error)
	require.NoError(t, s.DB.Create(&models.LineComment{ID: uuid.NewString(), LineID: lines[3].ID, UserID: "u1"}).Error)

	counts, err := s.GetActivityCounts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCounts{Generated: 3, Shared: 2, TotalLikesOnShared: 11, Comments: 1}, counts)

	empty, err := s.GetActivityCounts(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty)
}
