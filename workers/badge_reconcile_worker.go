// workers/badge_reconcile_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"badge-settlement-service/models"
)

type Reconciler interface {
	Reconcile(ctx context.Context, userID string) ([]models.BadgeID, error)
}

type UserLister interface {
	ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// SweepStats summarises one pass over all users.
type SweepStats struct {
	Users   int
	Awarded int
	Failed  int
}

// BadgeReconcileWorker periodically re-checks every user against all badge
// rules, catching awards the best-effort activity hook missed.
type BadgeReconcileWorker struct {
	users      UserLister
	reconciler Reconciler
	interval   time.Duration
	batchSize  int
}

func NewBadgeReconcileWorker(users UserLister, reconciler Reconciler, interval time.Duration, batchSize int) *BadgeReconcileWorker {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &BadgeReconcileWorker{
		users:      users,
		reconciler: reconciler,
		interval:   interval,
		batchSize:  batchSize,
	}
}

func (w *BadgeReconcileWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Println("⏸️ Badge Reconcile Worker disabled (RECONCILE_INTERVAL=0)")
		return
	}
	log.Printf("🔁 Starting Badge Reconcile Worker (every %s, batch %d)…", w.interval, w.batchSize)
	go w.run(ctx)
}

func (w *BadgeReconcileWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Badge Reconcile Worker stopped")
			return
		}
	}
}

// Sweep pages through all user ids. A failing user is counted and skipped.
func (w *BadgeReconcileWorker) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats
	start := time.Now()
	after := ""

	for {
		ids, err := w.users.ListUserIDs(ctx, after, w.batchSize)
		if err != nil {
			log.Printf("❌ [RECONCILE] Listing users after %q failed: %v", after, err)
			break
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return stats
			}
			stats.Users++
			applied, err := w.reconciler.Reconcile(ctx, id)
			if err != nil {
				stats.Failed++
				log.Printf("⚠️ [RECONCILE] User %s: %v", id, err)
				continue
			}
			stats.Awarded += len(applied)
		}
		if len(ids) < w.batchSize {
			break
		}
		after = ids[len(ids)-1]
	}

	log.Printf("[RECONCILE] Swept %d users in %s: %d badges awarded, %d failed",
		stats.Users, time.Since(start).Round(time.Millisecond), stats.Awarded, stats.Failed)
	return stats
}
