package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"badge-settlement-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on postgres.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	badges, err := s.badgeSet(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	user.Badges = badges
	return &user, nil
}

func (s *GormStore) badgeSet(ctx context.Context, db *gorm.DB, userID string) (models.BadgeSet, error) {
	var ids []models.BadgeID
	if err := db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load badges for %s: %w", userID, err)
	}
	return models.NewBadgeSet(ids...), nil
}

// UnionUserBadges inserts one row per badge; the unique (user_id, badge_id)
// index turns duplicates into no-ops, so concurrent callers never double-award.
func (s *GormStore) UnionUserBadges(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error) {
	var inserted []models.BadgeID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUserNotFound
		}

		for _, id := range badges {
			row := models.UserBadge{
				ID:      uuid.NewString(),
				UserID:  userID,
				BadgeID: id,
				Source:  source,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("insert badge %s: %w", id, res.Error)
			}
			if res.RowsAffected == 1 {
				inserted = append(inserted, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// AddPoints upserts the user row and bumps both counters in one statement.
func (s *GormStore) AddPoints(ctx context.Context, userID string, delta int64) (*models.User, error) {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":        gorm.Expr("users.points + ?", delta),
			"weekly_points": gorm.Expr("users.weekly_points + ?", delta),
			"updated_at":    time.Now(),
		}),
	}).Create(&models.User{
		ID:           userID,
		Points:       delta,
		WeeklyPoints: delta,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("add points for %s: %w", userID, err)
	}
	return s.GetUser(ctx, userID)
}

func (s *GormStore) ListWeeklyLeaders(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	q := s.DB.WithContext(ctx).
		Where("weekly_points > 0").
		Order("weekly_points DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) ListLeaders(ctx context.Context, timeframe Timeframe, limit int) ([]models.User, error) {
	order := "points DESC, id ASC"
	if timeframe == TimeframeWeekly {
		order = "weekly_points DESC, id ASC"
	}

	var users []models.User
	q := s.DB.WithContext(ctx).Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		badges, err := s.badgeSet(ctx, s.DB, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Badges = badges
	}
	return users, nil
}

func (s *GormStore) ResetWeeklyPoints(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("weekly_points <> 0").
		Update("weekly_points", 0)
	return res.RowsAffected, res.Error
}

func (s *GormStore) ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	q := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id > ?", afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) ListBadgeAwards(ctx context.Context, userID string, since time.Time) ([]models.UserBadge, error) {
	var awards []models.UserBadge
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND awarded_at > ?", userID, since).
		Order("awarded_at ASC").
		Find(&awards).Error
	return awards, err
}

func (s *GormStore) GetActivityCounts(ctx context.Context, userID string) (models.ActivityCounts, error) {
	var c models.ActivityCounts
	db := s.DB.WithContext(ctx)

	if err := db.Model(&models.Line{}).Where("user_id = ?", userID).Count(&c.Generated).Error; err != nil {
		return c, fmt.Errorf("count lines: %w", err)
	}
	if err := db.Model(&models.Line{}).Where("user_id = ? AND shared = ?", userID, true).Count(&c.Shared).Error; err != nil {
		return c, fmt.Errorf("count shared lines: %w", err)
	}
	if err := db.Model(&models.Line{}).
		Where("user_id = ? AND shared = ?", userID, true).
		Select("COALESCE(SUM(likes), 0)").
		Scan(&c.TotalLikesOnShared).Error; err != nil {
		return c, fmt.Errorf("sum likes: %w", err)
	}
	if err := db.Model(&models.LineComment{}).Where("user_id = ?", userID).Count(&c.Comments).Error; err != nil {
		return c, fmt.Errorf("count comments: %w", err)
	}
	return c, nil
}

func (s *GormStore) ListEndedChallenges(ctx context.Context, before time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	err := s.DB.WithContext(ctx).
		Where("end_date <= ?", before).
		Order("end_date DESC, id ASC").
		Find(&challenges).Error
	return challenges, err
}

func (s *GormStore) ListChallengeEntries(ctx context.Context, challengeID string) ([]models.ChallengeEntry, error) {
	var entries []models.ChallengeEntry
	err := s.DB.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Order("likes DESC, created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// SyncBadgeTypes mirrors the catalog into badge_types on startup.
func (s *GormStore) SyncBadgeTypes(ctx context.Context, badges []models.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	rows := make([]models.BadgeType, 0, len(badges))
	for _, b := range badges {
		rows = append(rows, models.BadgeType{
			Code:        string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Emoji:       b.Emoji,
			Rarity:      string(b.Rarity),
		})
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "emoji", "rarity", "updated_at"}),
	}).Create(&rows).Error
}
