package engine

import (
	"context"
	"time"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// SweepDueCampaigns promotes every scheduled campaign whose send time has
// arrived. The sweep is idempotent: a campaign already promoted by an earlier
// or concurrent tick is skipped through the guarded transition, so duplicate
// ticks are safe.
func (e *Engine) SweepDueCampaigns(ctx context.Context) {
	var due []models.Campaign
	err := e.DB.Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
		models.CampaignStatusScheduled, time.Now()).Find(&due).Error
	if err != nil {
		e.Logger.Printf("Scheduler sweep query failed: %v", err)
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		e.promote(ctx, &due[i])
	}
}

// promote moves one due campaign into dispatch. A quota failure at promotion
// marks the campaign failed with reason quota_exceeded rather than silently
// retrying it on the next tick.
func (e *Engine) promote(ctx context.Context, campaign *models.Campaign) {
	err := e.AdmitCampaign(ctx, campaign.ID, nil)
	switch {
	case err == nil:
		e.Logger.Printf("Campaign %d promoted to dispatch", campaign.ID)
	case IsInvalidStateTransition(err):
		// Already promoted by a duplicate tick or started manually.
	case IsQuotaExceeded(err):
		e.failCampaign(campaign, "quota_exceeded")
		e.Logger.Printf("Campaign %d failed at promotion: %v", campaign.ID, err)
	default:
		e.Logger.Printf("Failed to promote campaign %d: %v", campaign.ID, err)
	}
}
