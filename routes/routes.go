package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "github.com/divyanshdixit10/OSOPmessaging-platform-sub001/controllers"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/middleware"
)

// SetupRoutes registers the campaign API and the public tracking endpoints.
func SetupRoutes(app *fiber.App, db *gorm.DB, eng *engine.Engine) {
	campaignController := controller.NewCampaignController(db, eng,
		log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags))

	// API group with request logging
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignController.CreateCampaign)
	campaigns.Get("/", campaignController.ListCampaigns)
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Post("/:id/start", campaignController.StartCampaign)
	campaigns.Post("/:id/schedule", campaignController.ScheduleCampaign)
	campaigns.Post("/:id/cancel", campaignController.CancelCampaign)
	campaigns.Get("/:id/progress", campaignController.GetCampaignProgress)
	campaigns.Get("/:id/recipients", campaignController.GetCampaignRecipients)

	api.Get("/tenants/:id/usage", campaignController.GetTenantUsage)
	api.Post("/events", campaignController.HandleEngagementWebhook)

	// Public tracking endpoints, rate limited per IP+message
	track := app.Group("/track", middleware.TrackingRateLimiter())
	track.Get("/open/:messageID/:token", campaignController.TrackOpen)
	track.Get("/click/:messageID/:token", campaignController.TrackClick)

	app.Get("/unsubscribe/:messageID/:token", campaignController.Unsubscribe)
}
