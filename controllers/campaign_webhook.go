package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

// HandleEngagementWebhook processes provider callbacks (opens, clicks,
// unsubscribes) addressed by campaign and recipient address. Engagement is
// accepted for campaigns in any non-deleted state, including completed ones.
func (cc *CampaignController) HandleEngagementWebhook(c *fiber.Ctx) error {
	var input struct {
		EventType  string `json:"event_type" validate:"required,oneof=opened clicked unsubscribed"`
		CampaignID uint   `json:"campaign_id" validate:"required"`
		Address    string `json:"address" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := cc.Engine.RecordEngagement(input.CampaignID, input.Address, input.EventType); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Delivery record not found", nil)
	}

	return c.JSON(fiber.Map{
		"message": "Event recorded",
	})
}
