package models

import (
	"time"
)

// ActionKind is the activity that triggered a badge check.
type ActionKind string

const (
	ActionGenerate     ActionKind = "generate"
	ActionShare        ActionKind = "share"
	ActionComment      ActionKind = "comment"
	ActionPointsUpdate ActionKind = "points_update"
	ActionWeeklyReset  ActionKind = "weekly_reset"
)

func (a ActionKind) Valid() bool {
	switch a {
	case ActionGenerate, ActionShare, ActionComment, ActionPointsUpdate, ActionWeeklyReset:
		return true
	}
	return false
}

// ActivityCounts is what the storage layer reports for a user.
type ActivityCounts struct {
	Generated          int64 `json:"generated" validate:"gte=0"`
	Shared             int64 `json:"shared" validate:"gte=0"`
	TotalLikesOnShared int64 `json:"total_likes_on_shared" validate:"gte=0"`
	Comments           int64 `json:"comments" validate:"gte=0"`
}

// ActivitySnapshot is a read-only point-in-time view used by the evaluator.
type ActivitySnapshot struct {
	ActivityCounts
	Points       int64 `json:"points" validate:"gte=0"`
	WeeklyPoints int64 `json:"weekly_points" validate:"gte=0"`
}

// Value returns the snapshot value a criterion metric is checked against.
func (s ActivitySnapshot) Value(m Metric) (int64, bool) {
	switch m {
	case MetricGenerated:
		return s.Generated, true
	case MetricShared:
		return s.Shared, true
	case MetricLikes:
		return s.TotalLikesOnShared, true
	case MetricComments:
		return s.Comments, true
	case MetricPoints:
		return s.Points, true
	}
	return 0, false
}

// Line is a generated reply line; shared lines are visible on the feed.
type Line struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Text      string    `gorm:"type:text" json:"text"`
	Shared    bool      `gorm:"default:false;index" json:"shared"`
	Likes     int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type LineComment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	LineID    string    `gorm:"index;not null" json:"line_id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
