package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

var tenantSeq int

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB, cfg Config) (*Engine, *MemoryEmitter) {
	t.Helper()
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 3
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 2 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	emitter := NewMemoryEmitter()
	eng := New(db, emitter, log.New(io.Discard, "", 0), cfg)
	return eng, emitter
}

func createTenant(t *testing.T, db *gorm.DB, emailLimit, campaignLimit int) *models.Tenant {
	t.Helper()
	tenantSeq++
	tenant := &models.Tenant{
		Name:          fmt.Sprintf("tenant-%d", tenantSeq),
		EmailLimit:    emailLimit,
		SMSLimit:      1000,
		WhatsAppLimit: 1000,
		CampaignLimit: campaignLimit,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}
	return tenant
}

func createCampaign(t *testing.T, db *gorm.DB, tenant *models.Tenant, mutate func(*models.Campaign)) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		TenantID:  tenant.ID,
		CreatedBy: 1,
		Name:      "Test Campaign",
		Channel:   models.ChannelEmail,
		Subject:   "Hello",
		Body:      "<p>Hello there</p>",
		Status:    models.CampaignStatusDraft,
	}
	if mutate != nil {
		mutate(campaign)
	}
	if err := db.Create(campaign).Error; err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}
	return campaign
}

func makeAddresses(n int) []string {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("user%03d@example.com", i)
	}
	return addrs
}

// waitForTerminal polls until the campaign reaches a terminal status. Fails
// the test after the deadline so a stuck dispatch cannot hang the suite.
func waitForTerminal(t *testing.T, db *gorm.DB, campaignID uint) *models.Campaign {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var campaign models.Campaign
		if err := db.First(&campaign, campaignID).Error; err != nil {
			t.Fatalf("failed to reload campaign: %v", err)
		}
		if campaign.IsTerminal() {
			return &campaign
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("campaign %d never reached a terminal status", campaignID)
	return nil
}

func reloadCampaign(t *testing.T, db *gorm.DB, campaignID uint) *models.Campaign {
	t.Helper()
	var campaign models.Campaign
	if err := db.First(&campaign, campaignID).Error; err != nil {
		t.Fatalf("failed to reload campaign: %v", err)
	}
	return &campaign
}

// fakeSender is a ChannelSender for tests. outcome decides the per-address
// result; nil means everything is delivered.
type fakeSender struct {
	channel string
	delay   time.Duration
	outcome func(address string) (*DeliveryOutcome, error)

	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Channel() string {
	if f.channel == "" {
		return models.ChannelEmail
	}
	return f.channel
}

func (f *fakeSender) ValidateAddress(string) error { return nil }

func (f *fakeSender) Send(ctx context.Context, address, subject, body string, opts TrackingOptions) (*DeliveryOutcome, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return &DeliveryOutcome{Status: OutcomeFailed, Reason: "send timed out"}, nil
		}
	}
	f.mu.Lock()
	f.sent = append(f.sent, address)
	f.mu.Unlock()
	if f.outcome != nil {
		return f.outcome(address)
	}
	return &DeliveryOutcome{Status: OutcomeDelivered}, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
