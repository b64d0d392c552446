package services

import (
	"context"
	"time"

	"badge-settlement-service/models"
)

// UserStore owns user records. UnionUserBadges must be an atomic add-to-set:
// it returns only the badges that this call actually inserted.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UnionUserBadges(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error)
	AddPoints(ctx context.Context, userID string, delta int64) (*models.User, error)
	// ListWeeklyLeaders returns users with weekly_points > 0, highest first, ties by id.
	ListWeeklyLeaders(ctx context.Context, limit int) ([]models.User, error)
	ListLeaders(ctx context.Context, timeframe Timeframe, limit int) ([]models.User, error)
	ResetWeeklyPoints(ctx context.Context) (int64, error)
	ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	ListBadgeAwards(ctx context.Context, userID string, since time.Time) ([]models.UserBadge, error)
}

type ActivityStore interface {
	GetActivityCounts(ctx context.Context, userID string) (models.ActivityCounts, error)
}

type ChallengeStore interface {
	// ListEndedChallenges returns challenges with end_date <= before, newest-ended first.
	ListEndedChallenges(ctx context.Context, before time.Time) ([]models.Challenge, error)
	ListChallengeEntries(ctx context.Context, challengeID string) ([]models.ChallengeEntry, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	UserStore
	ActivityStore
	ChallengeStore
	SyncBadgeTypes(ctx context.Context, badges []models.Badge) error
}

type Timeframe string

const (
	TimeframeWeekly  Timeframe = "weekly"
	TimeframeAllTime Timeframe = "all_time"
)
