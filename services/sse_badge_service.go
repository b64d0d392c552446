package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"badge-settlement-service/models"

	"github.com/gofiber/fiber/v2"
)

// BadgeEvent is the payload of an SSE "badge" frame.
type BadgeEvent struct {
	models.Badge
	Source    string    `json:"source"`
	AwardedAt time.Time `json:"awarded_at"`
}

// streamOverlap is how far back each poll rescans. awarded_at is stamped before
// commit, so a row can become visible after a later-stamped one.
const streamOverlap = 10 * time.Second

// BadgeStream pushes badges awarded after the stream opened, whoever awarded them.
type BadgeStream struct {
	users    UserStore
	catalog  *Catalog
	interval time.Duration
}

func NewBadgeStream(users UserStore, catalog *Catalog) *BadgeStream {
	return &BadgeStream{users: users, catalog: catalog, interval: 2 * time.Second}
}

// StreamUserBadgesSSE streams badge awards for the authenticated user.
func (s *BadgeStream) StreamUserBadgesSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	done := c.Context().Done()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		cursor := newAwardCursor(time.Now())

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				events, err := s.poll(userID, cursor)
				if err != nil {
					log.Printf("[SSE] badge poll failed for user %s: %v", userID, err)
					continue
				}
				if len(events) == 0 {
					continue
				}

				for _, ev := range events {
					payload, _ := json.Marshal(ev)
					fmt.Fprintf(w, "event: badge\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					// client went away
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}

func (s *BadgeStream) poll(userID string, cursor *awardCursor) ([]BadgeEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	awards, err := s.users.ListBadgeAwards(ctx, userID, cursor.since())
	if err != nil {
		return nil, err
	}
	fresh := cursor.advance(awards)
	events := make([]BadgeEvent, 0, len(fresh))
	for _, ub := range fresh {
		badge, err := s.catalog.Lookup(ub.BadgeID)
		if err != nil {
			// retired badge still stored for this user
			continue
		}
		events = append(events, BadgeEvent{Badge: badge, Source: ub.Source, AwardedAt: ub.AwardedAt})
	}
	return events, nil
}

// awardCursor tracks what a stream has already sent. A user holds each badge
// at most once, so the badge id identifies an award.
type awardCursor struct {
	opened time.Time
	latest time.Time
	sent   map[models.BadgeID]struct{}
}

func newAwardCursor(opened time.Time) *awardCursor {
	return &awardCursor{opened: opened, latest: opened, sent: map[models.BadgeID]struct{}{}}
}

func (c *awardCursor) since() time.Time {
	from := c.latest.Add(-streamOverlap)
	if from.Before(c.opened) {
		return c.opened
	}
	return from
}

// advance returns the awards not sent yet and records them.
func (c *awardCursor) advance(awards []models.UserBadge) []models.UserBadge {
	fresh := make([]models.UserBadge, 0, len(awards))
	for _, ub := range awards {
		if _, ok := c.sent[ub.BadgeID]; ok {
			continue
		}
		c.sent[ub.BadgeID] = struct{}{}
		if ub.AwardedAt.After(c.latest) {
			c.latest = ub.AwardedAt
		}
		fresh = append(fresh, ub)
	}
	return fresh
}
