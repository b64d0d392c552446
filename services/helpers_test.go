package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"badge-settlement-service/models"
)

// faultyStore overrides selected MemoryStore methods with function fields.
type faultyStore struct {
	*MemoryStore

	getUserFn     func(ctx context.Context, userID string) (*models.User, error)
	unionFn       func(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error)
	listEntriesFn func(ctx context.Context, challengeID string) ([]models.ChallengeEntry, error)
	resetFn       func(ctx context.Context) (int64, error)

	unionCalls atomic.Int32
	resetCalls atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: NewMemoryStore()}
}

func (s *faultyStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if s.getUserFn != nil {
		return s.getUserFn(ctx, userID)
	}
	return s.MemoryStore.GetUser(ctx, userID)
}

func (s *faultyStore) UnionUserBadges(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error) {
	s.unionCalls.Add(1)
	if s.unionFn != nil {
		return s.unionFn(ctx, userID, badges, source)
	}
	return s.MemoryStore.UnionUserBadges(ctx, userID, badges, source)
}

func (s *faultyStore) ListChallengeEntries(ctx context.Context, challengeID string) ([]models.ChallengeEntry, error) {
	if s.listEntriesFn != nil {
		return s.listEntriesFn(ctx, challengeID)
	}
	return s.MemoryStore.ListChallengeEntries(ctx, challengeID)
}

func (s *faultyStore) ResetWeeklyPoints(ctx context.Context) (int64, error) {
	s.resetCalls.Add(1)
	if s.resetFn != nil {
		return s.resetFn(ctx)
	}
	return s.MemoryStore.ResetWeeklyPoints(ctx)
}

type engine struct {
	catalog   *Catalog
	evaluator *Evaluator
	applier   *AwardApplier
}

func newEngine(t *testing.T, users UserStore) engine {
	t.Helper()
	catalog := DefaultCatalog()
	return engine{
		catalog:   catalog,
		evaluator: NewEvaluator(catalog),
		applier:   NewAwardApplier(users, catalog, time.Second),
	}
}

func badgesOf(t *testing.T, store UserStore, userID string) models.BadgeSet {
	t.Helper()
	u, err := store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	return u.Badges
}
