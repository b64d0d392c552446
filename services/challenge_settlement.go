package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"badge-settlement-service/models"
)

// PodiumSize is how many ranked participants a settlement awards.
const PodiumSize = 3

// ChallengeSettler ranks the entries of ended challenges and awards placement
// badges. It keeps no processed marker; re-settling a challenge is a no-op
// because the applier only ever adds what is missing.
type ChallengeSettler struct {
	challenges ChallengeStore
	evaluator  *Evaluator
	applier    *AwardApplier
}

func NewChallengeSettler(challenges ChallengeStore, evaluator *Evaluator, applier *AwardApplier) *ChallengeSettler {
	return &ChallengeSettler{challenges: challenges, evaluator: evaluator, applier: applier}
}

// SettleEndedChallenges settles every challenge with end_date <= now. Only a
// failure to list challenges is returned; everything else is per result.
func (s *ChallengeSettler) SettleEndedChallenges(ctx context.Context, now time.Time) ([]models.SettlementResult, error) {
	challenges, err := s.challenges.ListEndedChallenges(ctx, now)
	if err != nil {
		return nil, newStorageError("list ended challenges", err)
	}
	SortEndedChallenges(challenges)

	results := make([]models.SettlementResult, 0, len(challenges))
	for _, ch := range challenges {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.settle(ctx, ch, now))
	}
	return results, nil
}

func (s *ChallengeSettler) settle(ctx context.Context, ch models.Challenge, now time.Time) models.SettlementResult {
	scope := "challenge:" + ch.ID
	res := models.SettlementResult{
		Kind:           models.SettlementChallenge,
		ChallengeID:    ch.ID,
		ChallengeTitle: ch.Title,
		SettledAt:      now,
		Placements:     []models.PlacementAward{},
	}
	fail := func(err error) models.SettlementResult {
		res.Err = &SettlementError{Scope: scope, Err: err}
		res.Error = res.Err.Error()
		log.Printf("❌ [SETTLEMENT] %v", res.Err)
		return res
	}

	entries, err := s.challenges.ListChallengeEntries(ctx, ch.ID)
	if err != nil {
		return fail(newStorageError("list entries", err))
	}
	if err := checkEntries(ch.ID, entries); err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		res.Message = "no entries"
		return res
	}

	ranked := append([]models.ChallengeEntry(nil), entries...)
	RankEntries(ranked)

	var errs []error
	for i, entry := range topN(ranked, PodiumSize) {
		p := models.PlacementAward{
			UserID:   entry.UserID,
			EntryID:  entry.ID,
			Position: i + 1,
			Score:    entry.Likes,
			Awarded:  []models.BadgeID{},
		}
		candidates := s.evaluator.EvaluatePlacement(nil, p.Position)
		applied, err := s.applier.Apply(ctx, entry.UserID, candidates, scope)
		if err != nil {
			p.Error = err.Error()
			errs = append(errs, fmt.Errorf("position %d (%s): %w", p.Position, entry.UserID, err))
		} else if applied != nil {
			p.Awarded = applied
		}
		res.Placements = append(res.Placements, p)
	}

	if len(errs) > 0 {
		return fail(errors.Join(errs...))
	}
	res.Message = fmt.Sprintf("%d placements, %d new badges", len(res.Placements), res.NewlyAwarded())
	return res
}

// checkEntries rejects data that would make the ranking meaningless.
func checkEntries(challengeID string, entries []models.ChallengeEntry) error {
	for _, e := range entries {
		switch {
		case e.UserID == "":
			return fmt.Errorf("entry %s has no user", e.ID)
		case e.Likes < 0:
			return fmt.Errorf("entry %s has negative likes (%d)", e.ID, e.Likes)
		case e.ChallengeID != challengeID:
			return fmt.Errorf("entry %s belongs to challenge %s", e.ID, e.ChallengeID)
		}
	}
	return nil
}
