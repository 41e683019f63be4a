package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

type CampaignController struct {
	DB     *gorm.DB
	Engine *engine.Engine
	Logger *log.Logger
}

func NewCampaignController(db *gorm.DB, eng *engine.Engine, logger *log.Logger) *CampaignController {
	return &CampaignController{
		DB:     db,
		Engine: eng,
		Logger: logger,
	}
}

// CreateCampaign creates a draft campaign for a tenant
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input struct {
		TenantID           uint   `json:"tenant_id" validate:"required"`
		CreatedBy          uint   `json:"created_by" validate:"required"`
		Name               string `json:"name" validate:"required,min=1,max=200"`
		Channel            string `json:"channel" validate:"required,oneof=email sms whatsapp"`
		Subject            string `json:"subject"`
		Body               string `json:"body" validate:"required"`
		BatchSize          int    `json:"batch_size"`
		RateLimitPerMinute int    `json:"rate_limit_per_minute"`
		TrackOpens         *bool  `json:"track_opens"`
		TrackClicks        *bool  `json:"track_clicks"`
		UnsubscribeLink    *bool  `json:"unsubscribe_link"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var tenant models.Tenant
	if err := cc.DB.First(&tenant, input.TenantID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", nil)
	}

	campaign := models.Campaign{
		TenantID:           input.TenantID,
		CreatedBy:          input.CreatedBy,
		Name:               input.Name,
		Channel:            input.Channel,
		Subject:            input.Subject,
		Body:               input.Body,
		Status:             models.CampaignStatusDraft,
		BatchSize:          input.BatchSize,
		RateLimitPerMinute: input.RateLimitPerMinute,
		TrackOpens:         true,
		TrackClicks:        true,
		UnsubscribeLink:    true,
	}
	if input.TrackOpens != nil {
		campaign.TrackOpens = *input.TrackOpens
	}
	if input.TrackClicks != nil {
		campaign.TrackClicks = *input.TrackClicks
	}
	if input.UnsubscribeLink != nil {
		campaign.UnsubscribeLink = *input.UnsubscribeLink
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.Printf("Failed to create campaign: %v", err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create campaign", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(campaign))
}

// ListCampaigns fetches campaigns for a tenant with pagination
func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	tenantID := utils.ParseUint(c.Query("tenant_id"))
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := cc.DB.Model(&models.Campaign{})
	if tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if channel := c.Query("channel"); channel != "" {
		query = query.Where("channel = ?", channel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count campaigns", nil)
	}

	var campaigns []models.Campaign
	if err := query.Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&campaigns).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaigns", nil)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  campaigns,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetCampaign fetches a single campaign
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}
	return c.JSON(utils.SuccessResponse(campaign))
}
