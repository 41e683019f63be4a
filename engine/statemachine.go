package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// legalTransitions maps each campaign status to the statuses it may move to.
// Failed is reserved for systemic errors (quota at admission, broken sender
// configuration), never for isolated per-recipient failures.
var legalTransitions = map[string][]string{
	models.CampaignStatusDraft: {
		models.CampaignStatusScheduled,
		models.CampaignStatusInProgress,
		models.CampaignStatusCancelled,
	},
	models.CampaignStatusScheduled: {
		models.CampaignStatusInProgress,
		models.CampaignStatusFailed,
		models.CampaignStatusCancelled,
	},
	models.CampaignStatusInProgress: {
		models.CampaignStatusCompleted,
		models.CampaignStatusFailed,
		models.CampaignStatusCancelled,
	},
}

// CanTransition reports whether a campaign may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves a campaign to a new status with a guarded update so a
// concurrent mover (scheduler sweep vs. manual start) cannot apply the same
// edge twice. extra columns are written together with the status.
func transition(db *gorm.DB, campaign *models.Campaign, to string, extra map[string]interface{}) error {
	from := campaign.Status
	if !CanTransition(from, to) {
		return &InvalidStateTransitionError{CampaignID: campaign.ID, From: from, To: to}
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", campaign.ID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Someone else moved the campaign first; report the current status.
		var current models.Campaign
		if err := db.Select("status").First(&current, campaign.ID).Error; err == nil {
			from = current.Status
		}
		return &InvalidStateTransitionError{CampaignID: campaign.ID, From: from, To: to}
	}

	campaign.Status = to
	return nil
}

// startStamp returns the column set applied when a campaign enters dispatch.
func startStamp(totalRecipients, totalBatches int) map[string]interface{} {
	return map[string]interface{}{
		"started_at":       time.Now(),
		"total_recipients": totalRecipients,
		"total_batches":    totalBatches,
		"current_batch":    0,
	}
}
