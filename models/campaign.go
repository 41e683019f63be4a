package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses
const (
	CampaignStatusDraft      = "draft"
	CampaignStatusScheduled  = "scheduled"
	CampaignStatusInProgress = "in_progress"
	CampaignStatusCompleted  = "completed"
	CampaignStatusFailed     = "failed"
	CampaignStatusCancelled  = "cancelled"
)

// Delivery channels
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Campaign represents a single outbound messaging job targeting a recipient
// set over one channel
type Campaign struct {
	gorm.Model
	TenantID  uint `gorm:"not null;index" json:"tenant_id"`
	CreatedBy uint `gorm:"not null;index" json:"created_by"`

	// Campaign details
	Name    string `gorm:"not null" json:"name"`
	Channel string `gorm:"not null;default:'email'" json:"channel"` // email, sms, whatsapp
	Subject string `json:"subject"`
	Body    string `json:"body"` // rendered content; template syntax is resolved upstream

	// Scheduling and dispatch tuning
	Status             string     `gorm:"default:'draft';index" json:"status"`
	ScheduledAt        *time.Time `json:"scheduled_at"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	BatchSize          int        `gorm:"default:0" json:"batch_size"`
	RateLimitPerMinute int        `gorm:"default:0" json:"rate_limit_per_minute"` // 0 = unbounded

	// Tracking settings
	TrackOpens      bool `gorm:"default:true" json:"track_opens"`
	TrackClicks     bool `gorm:"default:true" json:"track_clicks"`
	UnsubscribeLink bool `gorm:"default:true" json:"unsubscribe_link"`

	// Statistics (denormalized for performance)
	TotalRecipients  int `gorm:"default:0" json:"total_recipients"`
	SentCount        int `gorm:"default:0" json:"sent_count"`
	DeliveredCount   int `gorm:"default:0" json:"delivered_count"`
	FailedCount      int `gorm:"default:0" json:"failed_count"`
	BounceCount      int `gorm:"default:0" json:"bounce_count"`
	OpenCount        int `gorm:"default:0" json:"open_count"`
	ClickCount       int `gorm:"default:0" json:"click_count"`
	UnsubscribeCount int `gorm:"default:0" json:"unsubscribe_count"`

	// Batch progress
	CurrentBatch int `gorm:"default:0" json:"current_batch"`
	TotalBatches int `gorm:"default:0" json:"total_batches"`

	// Set only when the whole campaign fails (quota, sender config),
	// never for isolated recipient failures
	ErrorMessage string `json:"error_message"`

	// Relations
	Recipients []CampaignRecipient `gorm:"foreignKey:CampaignID" json:"recipients,omitempty"`
}

// IsTerminal reports whether the campaign reached a final status.
func (c *Campaign) IsTerminal() bool {
	switch c.Status {
	case CampaignStatusCompleted, CampaignStatusFailed, CampaignStatusCancelled:
		return true
	}
	return false
}
