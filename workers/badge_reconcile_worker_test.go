package workers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"badge-settlement-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	ids []string
	err error
}

func (f *fakeUsers) ListUserIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	sorted := append([]string(nil), f.ids...)
	sort.Strings(sorted)
	var out []string
	for _, id := range sorted {
		if id > afterID && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeReconciler struct {
	mu        sync.Mutex
	seen      []string
	reconcile func(userID string) ([]models.BadgeID, error)
}

func (f *fakeReconciler) Reconcile(_ context.Context, userID string) ([]models.BadgeID, error) {
	f.mu.Lock()
	f.seen = append(f.seen, userID)
	f.mu.Unlock()
	return f.reconcile(userID)
}

func TestSweep_PagesThroughEveryUser(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{ids: []string{"u5", "u1", "u3", "u2", "u4"}}
	rec := &fakeReconciler{reconcile: func(userID string) ([]models.BadgeID, error) {
		switch userID {
		case "u2":
			return nil, errors.New("timeout")
		case "u4":
			return []models.BadgeID{models.BadgeFirstSteps, models.BadgeCenturion}, nil
		}
		return nil, nil
	}}

	stats := NewBadgeReconcileWorker(users, rec, 0, 2).Sweep(context.Background())

	assert.Equal(t, SweepStats{Users: 5, Awarded: 2, Failed: 1}, stats)
	assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5"}, rec.seen)
}

func TestSweep_ExactMultipleOfBatch(t *testing.T) {
	t.Parallel()

	users := &fakeUsers{ids: []string{"a", "b", "c", "d"}}
	rec := &fakeReconciler{reconcile: func(string) ([]models.BadgeID, error) { return nil, nil }}

	stats := NewBadgeReconcileWorker(users, rec, 0, 2).Sweep(context.Background())
	assert.Equal(t, 4, stats.Users)
}

func TestSweep_ListFailure(t *testing.T) {
	t.Parallel()

	rec := &fakeReconciler{reconcile: func(string) ([]models.BadgeID, error) { return nil, nil }}
	stats := NewBadgeReconcileWorker(&fakeUsers{err: errors.New("down")}, rec, 0, 10).Sweep(context.Background())
	assert.Zero(t, stats.Users)
	assert.Empty(t, rec.seen)
}

func TestSweep_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	users := &fakeUsers{ids: []string{"a", "b", "c"}}
	rec := &fakeReconciler{}
	rec.reconcile = func(string) ([]models.BadgeID, error) {
		cancel()
		return nil, nil
	}

	stats := NewBadgeReconcileWorker(users, rec, 0, 10).Sweep(ctx)
	require.Equal(t, 1, stats.Users)
}

func TestStart_DisabledWithZeroInterval(t *testing.T) {
	t.Parallel()

	rec := &fakeReconciler{reconcile: func(string) ([]models.BadgeID, error) { return nil, nil }}
	NewBadgeReconcileWorker(&fakeUsers{ids: []string{"a"}}, rec, 0, 10).Start(context.Background())
	assert.Empty(t, rec.seen)
}
