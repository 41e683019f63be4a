package models

import "gorm.io/gorm"

// Quota resource types
const (
	ResourceEmail     = "email"
	ResourceSMS       = "sms"
	ResourceWhatsApp  = "whatsapp"
	ResourceCampaigns = "campaigns"
)

// Tenant is an isolated customer account with its own monthly quotas
type Tenant struct {
	gorm.Model
	Name string `gorm:"not null;uniqueIndex" json:"name"`

	// Monthly allowances per resource type
	EmailLimit    int `gorm:"default:5000" json:"email_limit"`
	SMSLimit      int `gorm:"default:1000" json:"sms_limit"`
	WhatsAppLimit int `gorm:"default:1000" json:"whatsapp_limit"`
	CampaignLimit int `gorm:"default:50" json:"campaign_limit"`

	// Relations
	Campaigns []Campaign    `gorm:"foreignKey:TenantID" json:"campaigns,omitempty"`
	Usages    []TenantUsage `gorm:"foreignKey:TenantID" json:"usages,omitempty"`
}

// LimitFor returns the tenant's monthly limit for a resource type.
func (t *Tenant) LimitFor(resource string) int {
	switch resource {
	case ResourceEmail:
		return t.EmailLimit
	case ResourceSMS:
		return t.SMSLimit
	case ResourceWhatsApp:
		return t.WhatsAppLimit
	case ResourceCampaigns:
		return t.CampaignLimit
	}
	return 0
}

// TenantUsage records consumed capacity per tenant, resource and month.
// Period is a "2006-01" key so old months age out without a reset job.
type TenantUsage struct {
	gorm.Model
	TenantID uint   `gorm:"not null;uniqueIndex:idx_tenant_resource_period" json:"tenant_id"`
	Resource string `gorm:"not null;uniqueIndex:idx_tenant_resource_period" json:"resource"`
	Period   string `gorm:"not null;uniqueIndex:idx_tenant_resource_period" json:"period"`

	Used int `gorm:"default:0" json:"used"`

	// Relations
	Tenant Tenant `json:"-"`
}
