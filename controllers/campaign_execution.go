package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

// StartCampaign admits a campaign to immediate dispatch
func (cc *CampaignController) StartCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	var input struct {
		Recipients []string `json:"recipients" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := cc.Engine.AdmitCampaign(c.Context(), campaignID, input.Recipients); err != nil {
		return cc.engineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Campaign dispatch started",
	})
}

// ScheduleCampaign parks a campaign until its send time
func (cc *CampaignController) ScheduleCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	var input struct {
		ScheduledAt        string   `json:"scheduled_at" validate:"required"`
		BatchSize          int      `json:"batch_size"`
		RateLimitPerMinute int      `json:"rate_limit_per_minute"`
		Recipients         []string `json:"recipients" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	at, err := utils.ParseTime(input.ScheduledAt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "scheduled_at must be RFC3339", err)
	}

	err = cc.Engine.ScheduleCampaign(c.Context(), campaignID, at, input.BatchSize, input.RateLimitPerMinute, input.Recipients)
	if err != nil {
		return cc.engineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":      "Campaign scheduled",
		"scheduled_at": at,
	})
}

// CancelCampaign requests cooperative cancellation
func (cc *CampaignController) CancelCampaign(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	if err := cc.Engine.CancelCampaign(campaignID); err != nil {
		return cc.engineError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Campaign cancelled",
	})
}

// engineError maps engine error types onto HTTP statuses
func (cc *CampaignController) engineError(c *fiber.Ctx, err error) error {
	switch {
	case engine.IsInvalidStateTransition(err):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invalid campaign state transition", err)
	case engine.IsQuotaExceeded(err):
		return utils.ErrorResponse(c, fiber.StatusPaymentRequired, "Tenant quota exceeded", err)
	default:
		cc.Logger.Printf("Engine error: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign operation failed", err)
	}
}
