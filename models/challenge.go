package models

import (
	"time"
)

// Challenge is active in [StartDate, EndDate) and ended once now >= EndDate.
type Challenge struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartDate   time.Time `gorm:"not null" json:"start_date"`
	EndDate     time.Time `gorm:"not null;index" json:"end_date"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c Challenge) Ended(now time.Time) bool {
	return !now.Before(c.EndDate)
}

// ChallengeEntry is one submission. CreatedAt is the submission order used for tie-breaks.
type ChallengeEntry struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChallengeID string    `gorm:"index;not null" json:"challenge_id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	EntryText   string    `gorm:"type:text" json:"entry_text"`
	Likes       int64     `gorm:"not null;default:0" json:"likes"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
