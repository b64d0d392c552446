package models

import (
	"time"
)

type SettlementKind string

const (
	SettlementChallenge SettlementKind = "challenge"
	SettlementWeekly    SettlementKind = "weekly"
)

// PlacementAward is one ranked participant of a settlement.
type PlacementAward struct {
	UserID   string    `json:"user_id"`
	EntryID  string    `json:"entry_id,omitempty"`
	Position int       `json:"position"` // 1-based
	Score    int64     `json:"score"`    // likes or weekly points
	Awarded  []BadgeID `json:"awarded"`  // genuinely new badges only
	Error    string    `json:"error,omitempty"`
}

// SettlementResult reports one processed challenge or one weekly run.
type SettlementResult struct {
	Kind           SettlementKind   `json:"kind"`
	ChallengeID    string           `json:"challenge_id,omitempty"`
	ChallengeTitle string           `json:"challenge_title,omitempty"`
	SettledAt      time.Time        `json:"settled_at"`
	Placements     []PlacementAward `json:"placements"`
	UsersReset     int64            `json:"users_reset,omitempty"`
	Message        string           `json:"message,omitempty"`
	Error          string           `json:"error,omitempty"`

	Err error `json:"-"`
}

func (r SettlementResult) Failed() bool {
	return r.Err != nil
}

// NewlyAwarded counts badges granted by this settlement.
func (r SettlementResult) NewlyAwarded() int {
	n := 0
	for _, p := range r.Placements {
		n += len(p.Awarded)
	}
	return n
}
