package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"badge-settlement-service/models"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory. It backs STORAGE_DRIVER=memory
// and the tests; every method takes the same lock, so unions are atomic.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]models.User
	awards     map[string][]models.UserBadge
	lines      []models.Line
	comments   []models.LineComment
	challenges map[string]models.Challenge
	entries    []models.ChallengeEntry
	badgeTypes map[string]models.BadgeType
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]models.User),
		awards:     make(map[string][]models.UserBadge),
		challenges: make(map[string]models.Challenge),
		badgeTypes: make(map[string]models.BadgeType),
		now:        time.Now,
	}
}

// --- seeding (storage-side writes owned by other parts of the app) ---

func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Badges = nil
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
}

func (s *MemoryStore) AddLine(l models.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	s.lines = append(s.lines, l)
}

func (s *MemoryStore) AddComment(c models.LineComment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.comments = append(s.comments, c)
}

func (s *MemoryStore) PutChallenge(c models.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.ID] = c
}

// AddEntry appends in submission order.
func (s *MemoryStore) AddEntry(e models.ChallengeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries = append(s.entries, e)
}

func (s *MemoryStore) BadgeTypes() []models.BadgeType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BadgeType, 0, len(s.badgeTypes))
	for _, bt := range s.badgeTypes {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// --- UserStore ---

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.withBadges(u), nil
}

func (s *MemoryStore) withBadges(u models.User) *models.User {
	u.Badges = models.BadgeSet{}
	for _, ub := range s.awards[u.ID] {
		u.Badges.Add(ub.BadgeID)
	}
	return &u
}

func (s *MemoryStore) UnionUserBadges(ctx context.Context, userID string, badges []models.BadgeID, source string) ([]models.BadgeID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	held := models.BadgeSet{}
	for _, ub := range s.awards[userID] {
		held.Add(ub.BadgeID)
	}

	var inserted []models.BadgeID
	for _, id := range badges {
		if held.Has(id) {
			continue
		}
		held.Add(id)
		s.awards[userID] = append(s.awards[userID], models.UserBadge{
			ID:        uuid.NewString(),
			UserID:    userID,
			BadgeID:   id,
			Source:    source,
			AwardedAt: s.now(),
		})
		inserted = append(inserted, id)
	}
	return inserted, nil
}

// AddPoints upserts the user like the postgres store does.
func (s *MemoryStore) AddPoints(ctx context.Context, userID string, delta int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = models.User{ID: userID, CreatedAt: s.now()}
	}
	u.Points += delta
	u.WeeklyPoints += delta
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return s.withBadges(u), nil
}

func (s *MemoryStore) ListWeeklyLeaders(ctx context.Context, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.User
	for _, u := range s.users {
		if u.WeeklyPoints > 0 {
			out = append(out, *s.withBadges(u))
		}
	}
	RankUsers(out, func(u models.User) int64 { return u.WeeklyPoints })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListLeaders(ctx context.Context, timeframe Timeframe, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	score := func(u models.User) int64 { return u.Points }
	if timeframe == TimeframeWeekly {
		score = func(u models.User) int64 { return u.WeeklyPoints }
	}
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *s.withBadges(u))
	}
	RankUsers(out, score)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ResetWeeklyPoints(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.users {
		if u.WeeklyPoints != 0 {
			u.WeeklyPoints = 0
			s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListUserIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.users {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *MemoryStore) ListBadgeAwards(ctx context.Context, userID string, since time.Time) ([]models.UserBadge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.UserBadge
	for _, ub := range s.awards[userID] {
		if ub.AwardedAt.After(since) {
			out = append(out, ub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AwardedAt.Before(out[j].AwardedAt) })
	return out, nil
}

// --- ActivityStore ---

func (s *MemoryStore) GetActivityCounts(ctx context.Context, userID string) (models.ActivityCounts, error) {
	if err := ctx.Err(); err != nil {
		return models.ActivityCounts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c models.ActivityCounts
	for _, l := range s.lines {
		if l.UserID != userID {
			continue
		}
		c.Generated++
		if l.Shared {
			c.Shared++
			c.TotalLikesOnShared += l.Likes
		}
	}
	for _, cm := range s.comments {
		if cm.UserID == userID {
			c.Comments++
		}
	}
	return c, nil
}

// --- ChallengeStore ---

func (s *MemoryStore) ListEndedChallenges(ctx context.Context, before time.Time) ([]models.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Challenge
	for _, c := range s.challenges {
		if c.Ended(before) {
			out = append(out, c)
		}
	}
	SortEndedChallenges(out)
	return out, nil
}

// ListChallengeEntries returns entries in submission order, unranked.
func (s *MemoryStore) ListChallengeEntries(ctx context.Context, challengeID string) ([]models.ChallengeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ChallengeEntry
	for _, e := range s.entries {
		if e.ChallengeID == challengeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) SyncBadgeTypes(ctx context.Context, badges []models.Badge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range badges {
		s.badgeTypes[string(b.ID)] = models.BadgeType{
			Code:        string(b.ID),
			Name:        b.Name,
			Description: b.Description,
			Emoji:       b.Emoji,
			Rarity:      string(b.Rarity),
			UpdatedAt:   s.now(),
		}
	}
	return nil
}
