// handlers/badge_routes.go
package handlers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"badge-settlement-service/middleware"
	"badge-settlement-service/models"
	"badge-settlement-service/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type BadgeDeps struct {
	Catalog  *services.Catalog
	Store    services.Store
	Activity *services.ActivityService
	Stream   *services.BadgeStream
}

type activityRequest struct {
	Action      models.ActionKind `json:"action" validate:"required"`
	PointsDelta int64             `json:"points_delta" validate:"gte=0"`
}

func SetupBadgeRoutes(app *fiber.App, d BadgeDeps) {
	// 🔓 Public (gateway auth only)
	app.Get("/badges", func(c *fiber.Ctx) error {
		return c.JSON(d.Catalog.All())
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		timeframe := services.Timeframe(c.Query("timeframe", string(services.TimeframeWeekly)))
		if timeframe != services.TimeframeWeekly && timeframe != services.TimeframeAllTime {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "timeframe must be weekly or all_time",
			})
		}
		limit, err := strconv.Atoi(c.Query("limit", "50"))
		if err != nil || limit <= 0 || limit > 100 {
			limit = 50
		}

		users, err := d.Store.ListLeaders(c.UserContext(), timeframe, limit)
		if err != nil {
			return writeError(c, "failed to load leaderboard", &services.StorageError{Op: "list leaders", Err: err})
		}

		type row struct {
			Position int             `json:"position"`
			UserID   string          `json:"user_id"`
			Username string          `json:"username"`
			Score    int64           `json:"score"`
			Badges   models.BadgeSet `json:"badges"`
		}
		rows := make([]row, len(users))
		for i, u := range users {
			score := u.Points
			if timeframe == services.TimeframeWeekly {
				score = u.WeeklyPoints
			}
			rows[i] = row{Position: i + 1, UserID: u.ID, Username: u.Username, Score: score, Badges: u.Badges}
		}
		return c.JSON(fiber.Map{"timeframe": timeframe, "entries": rows})
	})

	// 🔐 Secured routes — require user context
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		awards, err := d.Store.ListBadgeAwards(c.UserContext(), userID, time.Time{})
		if err != nil {
			return writeError(c, "failed to get badges", &services.StorageError{Op: "list badge awards", Err: err})
		}

		response := make([]fiber.Map, 0, len(awards))
		for _, ub := range awards {
			badge, err := d.Catalog.Lookup(ub.BadgeID)
			if err != nil {
				continue
			}
			response = append(response, fiber.Map{
				"id":          ub.ID,
				"code":        badge.ID,
				"name":        badge.Name,
				"description": badge.Description,
				"emoji":       badge.Emoji,
				"rarity":      badge.Rarity,
				"source":      ub.Source,
				"awarded_at":  ub.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	secured.Get("/user/badges/stream", d.Stream.StreamUserBadgesSSE)

	secured.Post("/activity", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req activityRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid activity",
				"cause": err.Error(),
			})
		}

		applied, err := d.Activity.OnActivity(c.UserContext(), userID, req.Action, req.PointsDelta)
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return writeError(c, "invalid activity", err)
		}
		if err != nil {
			// badge checks never fail the action that triggered them
			log.Printf("⚠️ [BADGES] Badge check failed for %s after %s: %v", userID, req.Action, err)
			return c.JSON(fiber.Map{"new_badges": []models.Badge{}, "badge_check": "failed"})
		}

		badges := make([]models.Badge, 0, len(applied))
		for _, id := range applied {
			if b, err := d.Catalog.Lookup(id); err == nil {
				badges = append(badges, b)
			}
		}
		return c.JSON(fiber.Map{"new_badges": badges, "badge_check": "ok"})
	})
}
