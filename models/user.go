package models

import (
	"time"
)

// User is the gamification record of an account. Badges are loaded from
// user_badges and are not a column.
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Username     string    `gorm:"index" json:"username"`
	Points       int64     `gorm:"not null;default:0;index" json:"points"`
	WeeklyPoints int64     `gorm:"not null;default:0;index" json:"weekly_points"`
	Badges       BadgeSet  `gorm:"-" json:"badges"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
