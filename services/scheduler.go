package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	challengeJobName = "challenge-settlement"
	weeklyJobName    = "weekly-settlement"
)

type SchedulerConfig struct {
	ChallengeInterval time.Duration
	WeeklyCron        string
	Locker            gocron.Locker // nil runs without cross-replica locking
}

// StartSettlementScheduler registers both settlement jobs and starts the
// scheduler. The caller shuts it down.
func (r *SettlementRunner) StartSettlementScheduler(ctx context.Context, cfg SchedulerConfig) (gocron.Scheduler, error) {
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if cfg.Locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(cfg.Locker))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if cfg.ChallengeInterval > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.ChallengeInterval),
			gocron.NewTask(func() {
				if _, err := r.QueueChallengeSettlement(ctx); err != nil {
					logSchedulerError(challengeJobName, err)
				}
			}),
			gocron.WithName(challengeJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register %s: %w", challengeJobName, err)
		}
	}

	if cfg.WeeklyCron != "" {
		_, err = sched.NewJob(
			gocron.CronJob(cfg.WeeklyCron, false),
			gocron.NewTask(func() {
				if _, err := r.QueueWeeklySettlement(ctx); err != nil {
					logSchedulerError(weeklyJobName, err)
				}
			}),
			gocron.WithName(weeklyJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register %s: %w", weeklyJobName, err)
		}
	}

	sched.Start()
	log.Printf("⏰ [SCHEDULER] Started (challenges every %s, weekly cron %q, distributed lock: %t)",
		cfg.ChallengeInterval, cfg.WeeklyCron, cfg.Locker != nil)
	return sched, nil
}

func logSchedulerError(job string, err error) {
	if errors.Is(err, context.Canceled) {
		log.Printf("[SCHEDULER] %s abandoned: shutting down", job)
		return
	}
	log.Printf("[SCHEDULER] %s failed: %v", job, err)
}
