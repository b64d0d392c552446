package services

import (
	"fmt"

	"badge-settlement-service/models"
)

// Catalog is an immutable badge table. It is the only source of valid badge ids.
type Catalog struct {
	badges map[models.BadgeID]models.Badge
	order  []models.BadgeID
}

// NewCatalog validates and indexes badges, keeping their declaration order.
func NewCatalog(badges ...models.Badge) (*Catalog, error) {
	c := &Catalog{
		badges: make(map[models.BadgeID]models.Badge, len(badges)),
		order:  make([]models.BadgeID, 0, len(badges)),
	}
	for _, b := range badges {
		if b.ID == "" {
			return nil, fmt.Errorf("badge %q: empty id", b.Name)
		}
		if _, dup := c.badges[b.ID]; dup {
			return nil, fmt.Errorf("badge %s: duplicate id", b.ID)
		}
		if !b.Rarity.Valid() {
			return nil, fmt.Errorf("badge %s: invalid rarity %q", b.ID, b.Rarity)
		}
		if b.Criterion.Threshold < 0 {
			return nil, fmt.Errorf("badge %s: negative threshold", b.ID)
		}
		c.badges[b.ID] = b
		c.order = append(c.order, b.ID)
	}
	return c, nil
}

// DefaultBadges is the badge table of the app.
var DefaultBadges = []models.Badge{
	{ID: models.BadgeFirstSteps, Name: "First Steps", Description: "Generated your first line", Emoji: "👶", Rarity: models.RarityCommon, Criterion: models.Criterion{Metric: models.MetricGenerated, Threshold: 1}},
	{ID: models.BadgeGenerator, Name: "Generator", Description: "Generated 50 lines", Emoji: "⚡", Rarity: models.RarityRare, Criterion: models.Criterion{Metric: models.MetricGenerated, Threshold: 50}},
	{ID: models.BadgeSocialButterfly, Name: "Social Butterfly", Description: "Shared your first line", Emoji: "🦋", Rarity: models.RarityCommon, Criterion: models.Criterion{Metric: models.MetricShared, Threshold: 1}},
	{ID: models.BadgeSharer, Name: "Sharer", Description: "Shared 10 lines", Emoji: "📤", Rarity: models.RarityRare, Criterion: models.Criterion{Metric: models.MetricShared, Threshold: 10}},
	{ID: models.BadgeLiked, Name: "Liked", Description: "Got 10 likes on shared lines", Emoji: "❤️", Rarity: models.RarityEpic, Criterion: models.Criterion{Metric: models.MetricLikes, Threshold: 10}},
	{ID: models.BadgeCommenter, Name: "Commenter", Description: "Posted 10 comments", Emoji: "💬", Rarity: models.RarityCommon, Criterion: models.Criterion{Metric: models.MetricComments, Threshold: 10}},
	{ID: models.BadgeCenturion, Name: "Centurion", Description: "Reached 100 points", Emoji: "💯", Rarity: models.RarityRare, Criterion: models.Criterion{Metric: models.MetricPoints, Threshold: 100}},
	{ID: models.BadgeChampion, Name: "Champion", Description: "Reached 500 points", Emoji: "🏆", Rarity: models.RarityEpic, Criterion: models.Criterion{Metric: models.MetricPoints, Threshold: 500}},
	{ID: models.BadgeLegend, Name: "Legend", Description: "Reached 1000 points", Emoji: "👑", Rarity: models.RarityLegendary, Criterion: models.Criterion{Metric: models.MetricPoints, Threshold: 1000}},
	{ID: models.BadgeWeeklyWinner, Name: "Weekly Winner", Description: "Won the weekly leaderboard", Emoji: "⭐", Rarity: models.RarityEpic, Criterion: models.Criterion{Metric: models.MetricPlacement, Threshold: 1}},
	{ID: models.BadgeTopContributor, Name: "Top Contributor", Description: "Top 3 in weekly leaderboard", Emoji: "🥇", Rarity: models.RarityLegendary, Criterion: models.Criterion{Metric: models.MetricPlacement, Threshold: 3}},
}

// DefaultCatalog panics only if DefaultBadges is broken, which tests catch.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultBadges...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns ErrUnknownBadge for ids outside the catalog.
func (c *Catalog) Lookup(id models.BadgeID) (models.Badge, error) {
	b, ok := c.badges[id]
	if !ok {
		return models.Badge{}, fmt.Errorf("%w: %q", ErrUnknownBadge, id)
	}
	return b, nil
}

// All returns the badges in declaration order.
func (c *Catalog) All() []models.Badge {
	out := make([]models.Badge, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.badges[id])
	}
	return out
}

// Validate fails closed on the first unknown id.
func (c *Catalog) Validate(ids ...models.BadgeID) error {
	for _, id := range ids {
		if _, err := c.Lookup(id); err != nil {
			return &ValidationError{Field: "badge", Reason: err.Error(), Err: err}
		}
	}
	return nil
}

// Ordered returns the members of set in catalog order; unknown ids go last, sorted.
func (c *Catalog) Ordered(set models.BadgeSet) []models.BadgeID {
	out := make([]models.BadgeID, 0, len(set))
	for _, id := range c.order {
		if set.Has(id) {
			out = append(out, id)
		}
	}
	for _, id := range set.Slice() {
		if _, known := c.badges[id]; !known {
			out = append(out, id)
		}
	}
	return out
}
