package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/utils"
)

// GetCampaignProgress returns the live progress snapshot for a campaign
func (cc *CampaignController) GetCampaignProgress(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))

	snapshot, err := cc.Engine.GetProgressSnapshot(campaignID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", nil)
	}

	return c.JSON(utils.SuccessResponse(snapshot))
}

// GetCampaignRecipients returns per-recipient delivery records with a status
// rollup, paginated
func (cc *CampaignController) GetCampaignRecipients(c *fiber.Ctx) error {
	campaignID := utils.ParseUint(c.Params("id"))
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	query := cc.DB.Model(&models.CampaignRecipient{}).Where("campaign_id = ?", campaignID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count recipients", nil)
	}

	var recipients []models.CampaignRecipient
	if err := query.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&recipients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch recipients", nil)
	}

	// Status rollup across the whole campaign, not just this page
	rows, err := cc.DB.Model(&models.CampaignRecipient{}).
		Select("status, COUNT(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Rows()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate statuses", nil)
	}
	defer rows.Close()

	rollup := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to scan rollup", nil)
		}
		rollup[status] = count
	}

	return c.JSON(fiber.Map{
		"data":   recipients,
		"rollup": rollup,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetTenantUsage returns the tenant's current-month quota consumption
func (cc *CampaignController) GetTenantUsage(c *fiber.Ctx) error {
	tenantID := utils.ParseUint(c.Params("id"))

	var tenant models.Tenant
	if err := cc.DB.First(&tenant, tenantID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", nil)
	}

	usage := fiber.Map{}
	for _, resource := range []string{
		models.ResourceEmail, models.ResourceSMS, models.ResourceWhatsApp, models.ResourceCampaigns,
	} {
		limit := tenant.LimitFor(resource)
		remaining := cc.Engine.Quota.Remaining(cc.DB, &tenant, resource)
		usage[resource] = fiber.Map{
			"limit":     limit,
			"used":      limit - remaining,
			"remaining": remaining,
		}
	}

	return c.JSON(utils.SuccessResponse(usage))
}
