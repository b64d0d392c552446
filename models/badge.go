package models

import (
	"encoding/json"
	"sort"
	"time"
)

// BadgeID is the stable identifier of a catalog badge (e.g. "first_steps").
type BadgeID string

const (
	BadgeFirstSteps      BadgeID = "first_steps"
	BadgeGenerator       BadgeID = "generator"
	BadgeSocialButterfly BadgeID = "social_butterfly"
	BadgeSharer          BadgeID = "sharer"
	BadgeLiked           BadgeID = "liked"
	BadgeCommenter       BadgeID = "commenter"
	BadgeCenturion       BadgeID = "centurion"
	BadgeChampion        BadgeID = "champion"
	BadgeLegend          BadgeID = "legend"
	BadgeWeeklyWinner    BadgeID = "weekly_winner"
	BadgeTopContributor  BadgeID = "top_contributor"
)

// Rarity is presentational only.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	}
	return false
}

// Metric names the value a badge criterion is checked against.
type Metric string

const (
	MetricGenerated Metric = "generated"
	MetricShared    Metric = "shared"
	MetricLikes     Metric = "likes"
	MetricComments  Metric = "comments"
	MetricPoints    Metric = "points"
	// MetricPlacement thresholds are 1-based positions: position <= Threshold qualifies.
	MetricPlacement Metric = "placement"
)

// Criterion is the trigger of a badge, e.g. {"points", 100}.
type Criterion struct {
	Metric    Metric `json:"metric"`
	Threshold int64  `json:"threshold"`
}

// Badge is static catalog config, never created at runtime.
type Badge struct {
	ID          BadgeID   `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	Rarity      Rarity    `json:"rarity"`
	Criterion   Criterion `json:"criterion"`
}

// BadgeType mirrors the catalog in the database for reporting joins.
type BadgeType struct {
	Code        string    `gorm:"primaryKey;type:varchar(64)" json:"code"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Emoji       string    `gorm:"size:16" json:"emoji"`
	Rarity      string    `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserBadge is an awarded instance. The (user_id, badge_id) unique index makes
// inserting it an atomic add-to-set.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_user_badge,priority:1" json:"user_id"`
	BadgeID   BadgeID   `gorm:"type:varchar(64);not null;uniqueIndex:idx_user_badge,priority:2" json:"badge_id"`
	Source    string    `gorm:"type:varchar(128)" json:"source"` // activity, reconcile, weekly:<date>, challenge:<id>
	AwardedAt time.Time `gorm:"autoCreateTime;index" json:"awarded_at"`
}

// BadgeSet has set semantics; it marshals as a sorted JSON array.
type BadgeSet map[BadgeID]struct{}

func NewBadgeSet(ids ...BadgeID) BadgeSet {
	s := make(BadgeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s BadgeSet) Has(id BadgeID) bool {
	_, ok := s[id]
	return ok
}

func (s BadgeSet) Add(id BadgeID) {
	s[id] = struct{}{}
}

// Slice returns the members sorted by identifier.
func (s BadgeSet) Slice() []BadgeID {
	out := make([]BadgeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Missing returns the ids of other that are not in s.
func (s BadgeSet) Missing(other BadgeSet) BadgeSet {
	out := BadgeSet{}
	for id := range other {
		if !s.Has(id) {
			out.Add(id)
		}
	}
	return out
}

func (s BadgeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *BadgeSet) UnmarshalJSON(data []byte) error {
	var ids []BadgeID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewBadgeSet(ids...)
	return nil
}
