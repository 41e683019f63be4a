package models

import (
	"time"

	"gorm.io/gorm"
)

// Recipient statuses
const (
	RecipientStatusPending      = "pending"
	RecipientStatusSent         = "sent"
	RecipientStatusDelivered    = "delivered"
	RecipientStatusBounced      = "bounced"
	RecipientStatusFailed       = "failed"
	RecipientStatusOpened       = "opened"
	RecipientStatusClicked      = "clicked"
	RecipientStatusUnsubscribed = "unsubscribed"
)

// CampaignRecipient is the per-recipient delivery record for one campaign.
// The (campaign_id, address) pair is unique; rows are created when the
// recipient set is materialized and never deleted while the campaign exists.
type CampaignRecipient struct {
	gorm.Model
	CampaignID uint   `gorm:"not null;uniqueIndex:idx_campaign_address" json:"campaign_id"`
	Address    string `gorm:"not null;uniqueIndex:idx_campaign_address" json:"address"`

	Status string `gorm:"default:'pending';index" json:"status"`

	// MessageID drives open/click tracking URLs
	MessageID string `gorm:"index" json:"message_id"`

	// Activity timestamps
	SentAt         *time.Time `json:"sent_at"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	BouncedAt      *time.Time `json:"bounced_at"`
	OpenedAt       *time.Time `json:"opened_at"`
	OpenCount      int        `gorm:"default:0" json:"open_count"`
	ClickedAt      *time.Time `json:"clicked_at"`
	ClickCount     int        `gorm:"default:0" json:"click_count"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`

	// ErrorDetail carries the provider/sender error for failed records
	ErrorDetail string `json:"error_detail"`

	// Relations
	Campaign Campaign `json:"-"`
}
