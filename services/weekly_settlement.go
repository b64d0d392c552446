package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"badge-settlement-service/models"
)

// WeeklySettler awards the weekly podium and then zeroes weekly points.
type WeeklySettler struct {
	users     UserStore
	evaluator *Evaluator
	applier   *AwardApplier
}

func NewWeeklySettler(users UserStore, evaluator *Evaluator, applier *AwardApplier) *WeeklySettler {
	return &WeeklySettler{users: users, evaluator: evaluator, applier: applier}
}

// SettleWeek never resets before every podium award has been applied. On any
// award failure it returns a *SettlementError together with the partial result,
// and weekly points stay as they were so the run can simply be repeated.
func (s *WeeklySettler) SettleWeek(ctx context.Context, now time.Time) (*models.SettlementResult, error) {
	scope := "weekly:" + now.UTC().Format("2006-01-02")
	res := &models.SettlementResult{
		Kind:       models.SettlementWeekly,
		SettledAt:  now,
		Placements: []models.PlacementAward{},
	}
	fail := func(err error) (*models.SettlementResult, error) {
		serr := &SettlementError{Scope: "weekly", Err: err}
		res.Err = serr
		res.Error = serr.Error()
		log.Printf("❌ [SETTLEMENT] %v (weekly points left untouched)", serr)
		return res, serr
	}

	leaders, err := s.users.ListWeeklyLeaders(ctx, PodiumSize)
	if err != nil {
		return fail(newStorageError("list weekly leaders", err))
	}
	// Adapters filter and order already; rank again so ties break the same way.
	ranked := make([]models.User, 0, len(leaders))
	for _, u := range leaders {
		if u.WeeklyPoints > 0 {
			ranked = append(ranked, u)
		}
	}
	RankUsers(ranked, func(u models.User) int64 { return u.WeeklyPoints })

	var errs []error
	for i, u := range topN(ranked, PodiumSize) {
		p := models.PlacementAward{
			UserID:   u.ID,
			Position: i + 1,
			Score:    u.WeeklyPoints,
			Awarded:  []models.BadgeID{},
		}
		applied, err := s.applier.Apply(ctx, u.ID, s.evaluator.EvaluatePlacement(nil, p.Position), scope)
		if err != nil {
			p.Error = err.Error()
			errs = append(errs, fmt.Errorf("position %d (%s): %w", p.Position, u.ID, err))
		} else if applied != nil {
			p.Awarded = applied
		}
		res.Placements = append(res.Placements, p)
	}
	if len(errs) > 0 {
		return fail(errors.Join(errs...))
	}

	reset, err := s.users.ResetWeeklyPoints(ctx)
	if err != nil {
		return fail(newStorageError("reset weekly points", err))
	}
	res.UsersReset = reset
	if len(res.Placements) == 0 {
		res.Message = "no weekly activity"
	} else {
		res.Message = fmt.Sprintf("%d placements, %d new badges", len(res.Placements), res.NewlyAwarded())
	}
	return res, nil
}
