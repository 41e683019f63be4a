package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// CurrentPeriod returns the month key usage counters are bucketed under.
func CurrentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}

// QuotaGate checks and reserves tenant monthly capacity before a campaign is
// admitted to dispatch. Admission is all-or-nothing: either both the channel
// capacity and a campaign slot are reserved, or nothing is charged.
//
// Reserved capacity is not refunded when individual recipients later fail;
// that keeps the accounting append-only at the cost of counting failed sends
// against the allowance.
type QuotaGate struct{}

// Reserve charges totalRecipients against the tenant's channel allowance and
// one campaign slot, inside the caller's transaction. On any
// QuotaExceededError the caller is expected to roll the transaction back.
func (g *QuotaGate) Reserve(tx *gorm.DB, tenant *models.Tenant, channel string, totalRecipients int) error {
	if err := g.reserveResource(tx, tenant, channel, totalRecipients); err != nil {
		return err
	}
	return g.reserveResource(tx, tenant, models.ResourceCampaigns, 1)
}

// Remaining reports the unreserved capacity for one resource this month.
func (g *QuotaGate) Remaining(db *gorm.DB, tenant *models.Tenant, resource string) int {
	var usage models.TenantUsage
	err := db.Where("tenant_id = ? AND resource = ? AND period = ?",
		tenant.ID, resource, CurrentPeriod()).First(&usage).Error
	if err != nil {
		return tenant.LimitFor(resource)
	}
	remaining := tenant.LimitFor(resource) - usage.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (g *QuotaGate) reserveResource(tx *gorm.DB, tenant *models.Tenant, resource string, amount int) error {
	usage := models.TenantUsage{
		TenantID: tenant.ID,
		Resource: resource,
		Period:   CurrentPeriod(),
	}
	if err := tx.Where(usage).FirstOrCreate(&usage).Error; err != nil {
		return err
	}

	limit := tenant.LimitFor(resource)

	// Guarded increment: the WHERE clause re-checks the limit so concurrent
	// admissions can never oversubscribe the allowance.
	res := tx.Model(&models.TenantUsage{}).
		Where("id = ? AND used + ? <= ?", usage.ID, amount, limit).
		Update("used", gorm.Expr("used + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current models.TenantUsage
		used := usage.Used
		if err := tx.First(&current, usage.ID).Error; err == nil {
			used = current.Used
		}
		return &QuotaExceededError{
			TenantID: tenant.ID,
			Resource: resource,
			Limit:    limit,
			Used:     used,
			Need:     amount,
		}
	}
	return nil
}
