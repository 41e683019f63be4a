package models

import "gorm.io/gorm"

// Migrate creates or updates the schema for all engine-owned tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&TenantUsage{},
		&Campaign{},
		&CampaignRecipient{},
	)
}

// CreateDefaultTenants seeds tenants used by local development setups.
func CreateDefaultTenants(db *gorm.DB) error {
	defaultTenants := []Tenant{
		{
			Name:          "acme",
			EmailLimit:    5000,
			SMSLimit:      1000,
			WhatsAppLimit: 1000,
			CampaignLimit: 50,
		},
		{
			Name:          "globex",
			EmailLimit:    100000,
			SMSLimit:      20000,
			WhatsAppLimit: 20000,
			CampaignLimit: 500,
		},
	}
	for _, tenant := range defaultTenants {
		if err := db.FirstOrCreate(&tenant, "name = ?", tenant.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
