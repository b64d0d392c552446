package services

import (
	"sort"

	"badge-settlement-service/models"
)

// RankEntries orders challenge entries by likes desc, then earliest submission,
// then id. Both stores and the settler rely on this order.
func RankEntries(entries []models.ChallengeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Likes != b.Likes {
			return a.Likes > b.Likes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// RankUsers orders users by score desc, ties by id asc.
func RankUsers(users []models.User, score func(models.User) int64) {
	sort.SliceStable(users, func(i, j int) bool {
		si, sj := score(users[i]), score(users[j])
		if si != sj {
			return si > sj
		}
		return users[i].ID < users[j].ID
	})
}

// SortEndedChallenges puts the most recently ended challenge first.
func SortEndedChallenges(challenges []models.Challenge) {
	sort.SliceStable(challenges, func(i, j int) bool {
		a, b := challenges[i], challenges[j]
		if !a.EndDate.Equal(b.EndDate) {
			return a.EndDate.After(b.EndDate)
		}
		return a.ID < b.ID
	})
}

// topN returns at most n leading elements.
func topN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
