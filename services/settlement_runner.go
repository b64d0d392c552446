package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"badge-settlement-service/models"

	"github.com/gosimple/slug"
)

// ReportArchiver stores settlement reports, e.g. in an R2 bucket.
type ReportArchiver interface {
	PutJSON(ctx context.Context, key string, v any) error
}

type NoopArchiver struct{}

func (NoopArchiver) PutJSON(context.Context, string, any) error { return nil }

// SettlementRunner is the entry point for both settlements, scheduled or manual.
// One run at a time per process; cross-replica exclusion is the scheduler's locker.
// Manual runs fail fast with ErrSettlementInProgress, scheduled runs queue.
type SettlementRunner struct {
	challenges *ChallengeSettler
	weekly     *WeeklySettler
	archive    ReportArchiver
	now        func() time.Time

	sem chan struct{}
}

func NewSettlementRunner(challenges *ChallengeSettler, weekly *WeeklySettler, archive ReportArchiver) *SettlementRunner {
	if archive == nil {
		archive = NoopArchiver{}
	}
	return &SettlementRunner{
		challenges: challenges,
		weekly:     weekly,
		archive:    archive,
		now:        time.Now,
		sem:        make(chan struct{}, 1),
	}
}

func (r *SettlementRunner) tryAcquire() bool {
	select {
	case r.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *SettlementRunner) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *SettlementRunner) release() { <-r.sem }

// RunChallengeSettlement settles now or returns ErrSettlementInProgress.
func (r *SettlementRunner) RunChallengeSettlement(ctx context.Context) ([]models.SettlementResult, error) {
	if !r.tryAcquire() {
		return nil, ErrSettlementInProgress
	}
	defer r.release()
	return r.settleChallenges(ctx)
}

// QueueChallengeSettlement waits for any run in progress, then settles.
func (r *SettlementRunner) QueueChallengeSettlement(ctx context.Context) ([]models.SettlementResult, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()
	return r.settleChallenges(ctx)
}

// RunWeeklySettlement settles now or returns ErrSettlementInProgress.
func (r *SettlementRunner) RunWeeklySettlement(ctx context.Context) (*models.SettlementResult, error) {
	if !r.tryAcquire() {
		return nil, ErrSettlementInProgress
	}
	defer r.release()
	return r.settleWeek(ctx)
}

// QueueWeeklySettlement waits for any run in progress, then settles.
func (r *SettlementRunner) QueueWeeklySettlement(ctx context.Context) (*models.SettlementResult, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()
	return r.settleWeek(ctx)
}

func (r *SettlementRunner) settleChallenges(ctx context.Context) ([]models.SettlementResult, error) {
	now := r.now().UTC()
	log.Printf("🏁 [SETTLEMENT] Settling challenges ended before %s", now.Format(time.RFC3339))
	results, err := r.challenges.SettleEndedChallenges(ctx, now)
	if err != nil {
		log.Printf("❌ [SETTLEMENT] Challenge settlement aborted: %v", err)
		return results, err
	}

	failed, awarded := 0, 0
	for _, res := range results {
		if res.Failed() {
			failed++
		}
		awarded += res.NewlyAwarded()
		// Re-settling an already settled challenge awards nothing; keep the first report.
		if res.NewlyAwarded() > 0 || res.Failed() {
			r.archiveReport(ctx, ChallengeReportKey(now, res.ChallengeTitle, res.ChallengeID), res)
		}
	}
	log.Printf("✅ [SETTLEMENT] %d challenges settled (%d failed, %d new badges)", len(results), failed, awarded)
	return results, nil
}

func (r *SettlementRunner) settleWeek(ctx context.Context) (*models.SettlementResult, error) {
	now := r.now().UTC()
	log.Printf("🏁 [SETTLEMENT] Weekly settlement for %s", now.Format("2006-01-02"))
	res, err := r.weekly.SettleWeek(ctx, now)
	if res != nil {
		r.archiveReport(ctx, WeeklyReportKey(now), res)
	}
	if err != nil {
		return res, err
	}
	log.Printf("✅ [SETTLEMENT] Weekly settled: %d placements, %d new badges, %d users reset",
		len(res.Placements), res.NewlyAwarded(), res.UsersReset)
	return res, nil
}

func (r *SettlementRunner) archiveReport(ctx context.Context, key string, report any) {
	if err := r.archive.PutJSON(ctx, key, report); err != nil {
		log.Printf("⚠️ [SETTLEMENT] Failed to archive report %s: %v", key, err)
	}
}

func ChallengeReportKey(day time.Time, title, challengeID string) string {
	name := slug.Make(title)
	if name == "" {
		name = "challenge"
	}
	return fmt.Sprintf("settlements/challenges/%s/%s-%s.json", day.UTC().Format("2006-01-02"), name, challengeID)
}

func WeeklyReportKey(day time.Time) string {
	return fmt.Sprintf("settlements/weekly/%s.json", day.UTC().Format("2006-01-02"))
}
