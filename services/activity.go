package services

import (
	"context"
	"fmt"
	"time"

	"badge-settlement-service/models"
)

const (
	SourceActivity  = "activity"
	SourceReconcile = "reconcile"
)

// ActivityService runs the badge check that follows a user action.
type ActivityService struct {
	store     Store
	evaluator *Evaluator
	applier   *AwardApplier
	timeout   time.Duration // bounds a whole check, reads included
}

func NewActivityService(store Store, evaluator *Evaluator, applier *AwardApplier, timeout time.Duration) *ActivityService {
	if timeout <= 0 {
		timeout = DefaultAwardTimeout
	}
	return &ActivityService{store: store, evaluator: evaluator, applier: applier, timeout: timeout}
}

// countGated reports whether an action can move a count metric, in which case
// activity counts must be loaded.
func countGated(action models.ActionKind) bool {
	switch action {
	case models.ActionGenerate, models.ActionShare, models.ActionComment:
		return true
	}
	return false
}

// OnActivity applies pointsDelta (if any), evaluates the rules the action can
// affect and returns the badges newly awarded.
func (s *ActivityService) OnActivity(ctx context.Context, userID string, action models.ActionKind, pointsDelta int64) ([]models.BadgeID, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if !action.Valid() {
		return nil, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
	if pointsDelta < 0 {
		return nil, &ValidationError{Field: "points_delta", Reason: "must not be negative"}
	}
	if action == models.ActionWeeklyReset {
		if pointsDelta > 0 {
			return nil, &ValidationError{Field: "points_delta", Reason: "must be 0 for weekly_reset"}
		}
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		user *models.User
		err  error
	)
	if pointsDelta > 0 {
		user, err = s.store.AddPoints(ctx, userID, pointsDelta)
		if err != nil {
			return nil, newStorageError("add points", err)
		}
	} else {
		user, err = s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, newStorageError("get user", err)
		}
	}

	snap := models.ActivitySnapshot{Points: user.Points, WeeklyPoints: user.WeeklyPoints}
	if countGated(action) {
		counts, err := s.store.GetActivityCounts(ctx, userID)
		if err != nil {
			return nil, newStorageError("get activity counts", err)
		}
		snap.ActivityCounts = counts
	}

	earned, err := s.evaluator.Evaluate(user.Badges, snap, action)
	if err != nil {
		return nil, err
	}
	return s.applier.Apply(ctx, userID, earned, SourceActivity)
}

// Reconcile checks every count and points rule for the user.
func (s *ActivityService) Reconcile(ctx context.Context, userID string) ([]models.BadgeID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, newStorageError("get user", err)
	}
	counts, err := s.store.GetActivityCounts(ctx, userID)
	if err != nil {
		return nil, newStorageError("get activity counts", err)
	}
	snap := models.ActivitySnapshot{
		ActivityCounts: counts,
		Points:         user.Points,
		WeeklyPoints:   user.WeeklyPoints,
	}
	earned, err := s.evaluator.EvaluateAll(user.Badges, snap)
	if err != nil {
		return nil, err
	}
	return s.applier.Apply(ctx, userID, earned, SourceReconcile)
}
