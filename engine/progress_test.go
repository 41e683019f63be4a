package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

func TestSnapshotRates(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusInProgress
		c.TotalRecipients = 100
		c.SentCount = 80
		c.DeliveredCount = 60
		c.FailedCount = 12
		c.BounceCount = 8
		c.OpenCount = 30
		c.ClickCount = 15
		c.UnsubscribeCount = 2
		c.CurrentBatch = 4
		c.TotalBatches = 5
	})

	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}
	snap, err := agg.Snapshot(campaign.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.ProgressPercentage != 80 {
		t.Errorf("progress = %.1f%%, want 80%%", snap.ProgressPercentage)
	}
	if snap.SuccessRate != 75 {
		t.Errorf("success rate = %.1f%%, want 75%%", snap.SuccessRate)
	}
	if snap.FailureRate != 25 {
		t.Errorf("failure rate = %.1f%%, want 25%%", snap.FailureRate)
	}
	if snap.OpenRate != 50 {
		t.Errorf("open rate = %.1f%%, want 50%%", snap.OpenRate)
	}
	if snap.ClickRate != 25 {
		t.Errorf("click rate = %.1f%%, want 25%%", snap.ClickRate)
	}
	if snap.InProgressCount != 20 {
		t.Errorf("in-progress count = %d, want 20", snap.InProgressCount)
	}
	if snap.CurrentBatchNumber != 4 || snap.TotalBatches != 5 {
		t.Errorf("batch progress = %d/%d, want 4/5", snap.CurrentBatchNumber, snap.TotalBatches)
	}
}

func TestSnapshotZeroDenominators(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}
	snap, err := agg.Snapshot(campaign.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.ProgressPercentage != 0 || snap.SuccessRate != 0 || snap.FailureRate != 0 ||
		snap.OpenRate != 0 || snap.ClickRate != 0 {
		t.Errorf("rates on an empty campaign should all be 0, got %+v", snap)
	}
	if snap.InProgressCount != 0 {
		t.Errorf("in-progress count = %d, want 0", snap.InProgressCount)
	}
}

func TestSnapshotMissingCampaign(t *testing.T) {
	db := setupTestDB(t)
	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}
	if _, err := agg.Snapshot(9999); err == nil {
		t.Fatal("expected an error for an unknown campaign")
	}
}

func TestRecordEngagementUniqueOpens(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	rec := &models.CampaignRecipient{
		CampaignID: campaign.ID,
		Address:    "opener@example.com",
		Status:     models.RecipientStatusDelivered,
		MessageID:  "msg-open-1",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	emitter := NewMemoryEmitter()
	agg := &Aggregator{DB: db, Emitter: emitter}

	for i := 0; i < 3; i++ {
		var fresh models.CampaignRecipient
		if err := db.First(&fresh, rec.ID).Error; err != nil {
			t.Fatalf("failed to reload recipient: %v", err)
		}
		if err := agg.RecordEngagement(campaign, &fresh, EngagementOpened); err != nil {
			t.Fatalf("RecordEngagement failed on open %d: %v", i+1, err)
		}
	}

	got := reloadCampaign(t, db, campaign.ID)
	if got.OpenCount != 1 {
		t.Errorf("campaign open_count = %d, want 1 unique opener", got.OpenCount)
	}

	var gotRec models.CampaignRecipient
	if err := db.First(&gotRec, rec.ID).Error; err != nil {
		t.Fatalf("failed to reload recipient: %v", err)
	}
	if gotRec.OpenCount != 3 {
		t.Errorf("recipient open_count = %d, want 3 repeats", gotRec.OpenCount)
	}
	if gotRec.Status != models.RecipientStatusOpened {
		t.Errorf("recipient status = %s, want opened", gotRec.Status)
	}
	if gotRec.OpenedAt == nil {
		t.Error("opened_at was not stamped")
	}
	if emitter.CountByType()[EventMessageOpened] != 3 {
		t.Errorf("message.opened emitted %d times, want 3", emitter.CountByType()[EventMessageOpened])
	}
}

func TestRecordEngagementClickPromotesStatus(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	rec := &models.CampaignRecipient{
		CampaignID: campaign.ID,
		Address:    "clicker@example.com",
		Status:     models.RecipientStatusOpened,
		MessageID:  "msg-click-1",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}
	if err := agg.RecordEngagement(campaign, rec, EngagementClicked); err != nil {
		t.Fatalf("RecordEngagement failed: %v", err)
	}

	var gotRec models.CampaignRecipient
	if err := db.First(&gotRec, rec.ID).Error; err != nil {
		t.Fatalf("failed to reload recipient: %v", err)
	}
	if gotRec.Status != models.RecipientStatusClicked {
		t.Errorf("recipient status = %s, want clicked", gotRec.Status)
	}
	if got := reloadCampaign(t, db, campaign.ID); got.ClickCount != 1 {
		t.Errorf("campaign click_count = %d, want 1", got.ClickCount)
	}
}

func TestRecordEngagementUnsubscribeOnce(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	rec := &models.CampaignRecipient{
		CampaignID: campaign.ID,
		Address:    "leaver@example.com",
		Status:     models.RecipientStatusDelivered,
		MessageID:  "msg-unsub-1",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	emitter := NewMemoryEmitter()
	agg := &Aggregator{DB: db, Emitter: emitter}

	for i := 0; i < 2; i++ {
		var fresh models.CampaignRecipient
		if err := db.First(&fresh, rec.ID).Error; err != nil {
			t.Fatalf("failed to reload recipient: %v", err)
		}
		if err := agg.RecordEngagement(campaign, &fresh, EngagementUnsubscribed); err != nil {
			t.Fatalf("RecordEngagement failed on attempt %d: %v", i+1, err)
		}
	}

	if got := reloadCampaign(t, db, campaign.ID); got.UnsubscribeCount != 1 {
		t.Errorf("campaign unsubscribe_count = %d, want 1", got.UnsubscribeCount)
	}
	if emitter.CountByType()[EventMessageUnsubscribed] != 1 {
		t.Errorf("message.unsubscribed emitted %d times, want 1 (repeat is a no-op)", emitter.CountByType()[EventMessageUnsubscribed])
	}
}

// Duplicate callbacks routinely race: both load the recipient before either
// write lands (pixel prefetchers, proxy fetches). The unique campaign counter
// must still move exactly once.
func TestRecordEngagementStaleCopiesCountOnce(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)

	tests := []struct {
		name      string
		eventType string
		counter   func(c *models.Campaign) int
	}{
		{"opened", EngagementOpened, func(c *models.Campaign) int { return c.OpenCount }},
		{"clicked", EngagementClicked, func(c *models.Campaign) int { return c.ClickCount }},
		{"unsubscribed", EngagementUnsubscribed, func(c *models.Campaign) int { return c.UnsubscribeCount }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
				c.Status = models.CampaignStatusCompleted
			})
			rec := &models.CampaignRecipient{
				CampaignID: campaign.ID,
				Address:    tt.name + "@example.com",
				Status:     models.RecipientStatusDelivered,
				MessageID:  "msg-dup-" + tt.name,
			}
			if err := db.Create(rec).Error; err != nil {
				t.Fatalf("failed to create recipient: %v", err)
			}

			agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}

			// Both copies predate either write, like two racing callbacks.
			var copies [2]models.CampaignRecipient
			for i := range copies {
				if err := db.First(&copies[i], rec.ID).Error; err != nil {
					t.Fatalf("failed to load recipient copy: %v", err)
				}
			}
			for i := range copies {
				if err := agg.RecordEngagement(campaign, &copies[i], tt.eventType); err != nil {
					t.Fatalf("RecordEngagement failed for copy %d: %v", i, err)
				}
			}

			got := reloadCampaign(t, db, campaign.ID)
			if n := tt.counter(got); n != 1 {
				t.Errorf("campaign %s counter = %d after duplicate callbacks, want 1", tt.name, n)
			}
		})
	}
}

func TestRecordEngagementConcurrentOpensCountOnce(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	rec := &models.CampaignRecipient{
		CampaignID: campaign.ID,
		Address:    "hammered@example.com",
		Status:     models.RecipientStatusDelivered,
		MessageID:  "msg-race-1",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var fresh models.CampaignRecipient
			if err := db.First(&fresh, rec.ID).Error; err != nil {
				errs <- err
				return
			}
			errs <- agg.RecordEngagement(campaign, &fresh, EngagementOpened)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordEngagement failed: %v", err)
		}
	}

	if got := reloadCampaign(t, db, campaign.ID); got.OpenCount != 1 {
		t.Errorf("campaign open_count = %d after %d concurrent opens, want 1", got.OpenCount, callers)
	}

	var gotRec models.CampaignRecipient
	if err := db.First(&gotRec, rec.ID).Error; err != nil {
		t.Fatalf("failed to reload recipient: %v", err)
	}
	if gotRec.OpenCount != callers {
		t.Errorf("recipient open_count = %d, want %d repeats", gotRec.OpenCount, callers)
	}
}

func TestRecordEngagementUnknownType(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)
	rec := &models.CampaignRecipient{CampaignID: campaign.ID, Address: "x@example.com"}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	agg := &Aggregator{DB: db, Emitter: NewMemoryEmitter()}
	if err := agg.RecordEngagement(campaign, rec, "forwarded"); err == nil {
		t.Fatal("expected an error for an unknown engagement type")
	}
}

// Engagement keeps flowing after the campaign completes; the tracking URLs
// outlive the dispatch task.
func TestEngagementAfterCompletion(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	eng, _ := newTestEngine(t, db, Config{})
	eng.RegisterSender(&fakeSender{})

	if err := eng.AdmitCampaign(context.Background(), campaign.ID, []string{"late@example.com"}); err != nil {
		t.Fatalf("AdmitCampaign failed: %v", err)
	}
	got := waitForTerminal(t, db, campaign.ID)
	if got.Status != models.CampaignStatusCompleted {
		t.Fatalf("campaign finished as %s, want completed", got.Status)
	}

	if err := eng.RecordEngagement(campaign.ID, "late@example.com", EngagementOpened); err != nil {
		t.Fatalf("RecordEngagement after completion failed: %v", err)
	}

	snap, err := eng.GetProgressSnapshot(campaign.ID)
	if err != nil {
		t.Fatalf("GetProgressSnapshot failed: %v", err)
	}
	if snap.OpenCount != 1 {
		t.Errorf("open_count = %d, want 1 after post-completion open", snap.OpenCount)
	}
	if snap.Status != models.CampaignStatusCompleted {
		t.Errorf("status = %s, engagement must not reopen the campaign", snap.Status)
	}
}

func TestRecordEngagementByMessageID(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, func(c *models.Campaign) {
		c.Status = models.CampaignStatusCompleted
	})

	rec := &models.CampaignRecipient{
		CampaignID: campaign.ID,
		Address:    "pixel@example.com",
		Status:     models.RecipientStatusDelivered,
		MessageID:  "msg-pixel-7",
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("failed to create recipient: %v", err)
	}

	eng, _ := newTestEngine(t, db, Config{})
	if err := eng.RecordEngagementByMessageID("msg-pixel-7", EngagementOpened); err != nil {
		t.Fatalf("RecordEngagementByMessageID failed: %v", err)
	}
	if got := reloadCampaign(t, db, campaign.ID); got.OpenCount != 1 {
		t.Errorf("campaign open_count = %d, want 1", got.OpenCount)
	}

	if err := eng.RecordEngagementByMessageID("no-such-message", EngagementOpened); err == nil {
		t.Fatal("expected an error for an unknown message id")
	}
}
