package services

import (
	"context"
	"log"
	"time"

	"badge-settlement-service/models"
)

const DefaultAwardTimeout = 5 * time.Second

// AwardApplier is the only writer of user badges.
type AwardApplier struct {
	users   UserStore
	catalog *Catalog
	timeout time.Duration
}

func NewAwardApplier(users UserStore, catalog *Catalog, timeout time.Duration) *AwardApplier {
	if timeout <= 0 {
		timeout = DefaultAwardTimeout
	}
	return &AwardApplier{users: users, catalog: catalog, timeout: timeout}
}

// Apply merges badges into the user's persisted set and returns those that were
// not there before, in catalog order. A subset of the stored set writes nothing.
func (a *AwardApplier) Apply(ctx context.Context, userID string, badges models.BadgeSet, source string) ([]models.BadgeID, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if len(badges) == 0 {
		return nil, nil
	}
	if err := a.catalog.Validate(badges.Slice()...); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return nil, newStorageError("get user", err)
	}

	missing := user.Badges.Missing(badges)
	if len(missing) == 0 {
		return nil, nil
	}

	inserted, err := a.users.UnionUserBadges(ctx, userID, a.catalog.Ordered(missing), source)
	if err != nil {
		return nil, newStorageError("union badges", err)
	}
	if len(inserted) == 0 {
		return nil, nil
	}

	applied := a.catalog.Ordered(models.NewBadgeSet(inserted...))
	log.Printf("🎖️ [BADGES] Awarded %v → %s (source: %s)", applied, userID, source)
	return applied, nil
}
