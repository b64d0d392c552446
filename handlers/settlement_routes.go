// handlers/settlement_routes.go
package handlers

import (
	"badge-settlement-service/middleware"
	"badge-settlement-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSettlementRoutes(app *fiber.App, runner *services.SettlementRunner) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/settlements/challenges", func(c *fiber.Ctx) error {
		results, err := runner.RunChallengeSettlement(c.UserContext())
		if err != nil {
			return writeError(c, "challenge settlement failed", err)
		}
		return c.JSON(fiber.Map{"results": results})
	})

	admin.Post("/settlements/weekly", func(c *fiber.Ctx) error {
		result, err := runner.RunWeeklySettlement(c.UserContext())
		if err != nil {
			status := statusFor(err)
			body := fiber.Map{"error": "weekly settlement failed", "cause": err.Error()}
			if result != nil {
				body["result"] = result
			}
			return c.Status(status).JSON(body)
		}
		return c.JSON(fiber.Map{"result": result})
	})
}
