package engine

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// Engagement event types accepted from collaborators (open/click callbacks)
const (
	EngagementOpened       = "opened"
	EngagementClicked      = "clicked"
	EngagementUnsubscribed = "unsubscribed"
)

// ProgressSnapshot is the read-mostly projection of campaign counters served
// to presentation layers. Rates are percentages, 0 when the denominator is 0.
type ProgressSnapshot struct {
	CampaignID         uint       `json:"campaign_id"`
	Status             string     `json:"status"`
	TotalRecipients    int        `json:"total_recipients"`
	SentCount          int        `json:"sent_count"`
	SuccessCount       int        `json:"success_count"`
	FailedCount        int        `json:"failed_count"`
	BouncedCount       int        `json:"bounced_count"`
	InProgressCount    int        `json:"in_progress_count"`
	OpenCount          int        `json:"open_count"`
	ClickCount         int        `json:"click_count"`
	UnsubscribeCount   int        `json:"unsubscribe_count"`
	ProgressPercentage float64    `json:"progress_percentage"`
	SuccessRate        float64    `json:"success_rate"`
	FailureRate        float64    `json:"failure_rate"`
	OpenRate           float64    `json:"open_rate"`
	ClickRate          float64    `json:"click_rate"`
	CurrentBatchNumber int        `json:"current_batch_number"`
	TotalBatches       int        `json:"total_batches"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ErrorMessage       string     `json:"error_message,omitempty"`
}

// Aggregator owns the campaign counters under concurrent updates from all
// dispatch workers. Counter math happens in SQL (gorm.Expr increments), so
// updates are atomic without a process-wide lock and a snapshot read never
// blocks a writer.
type Aggregator struct {
	DB      *gorm.DB
	Emitter EventEmitter
}

// RecordOutcome persists one recipient's send attempt result and bumps the
// campaign counters: sent_count on every attempt, plus exactly one of
// delivered/bounced/failed. Only the worker that owns the recipient calls
// this, so the recipient row is never written concurrently.
func (a *Aggregator) RecordOutcome(campaign *models.Campaign, rec *models.CampaignRecipient, outcome *DeliveryOutcome) error {
	now := time.Now()

	recUpdates := map[string]interface{}{"sent_at": now}
	counters := map[string]interface{}{"sent_count": gorm.Expr("sent_count + 1")}

	switch outcome.Status {
	case OutcomeDelivered:
		recUpdates["status"] = models.RecipientStatusDelivered
		recUpdates["delivered_at"] = now
		counters["delivered_count"] = gorm.Expr("delivered_count + 1")
	case OutcomeBounced:
		recUpdates["status"] = models.RecipientStatusBounced
		recUpdates["bounced_at"] = now
		recUpdates["error_detail"] = outcome.Reason
		counters["bounce_count"] = gorm.Expr("bounce_count + 1")
	default:
		recUpdates["status"] = models.RecipientStatusFailed
		recUpdates["error_detail"] = outcome.Reason
		counters["failed_count"] = gorm.Expr("failed_count + 1")
	}

	if err := a.DB.Model(&models.CampaignRecipient{}).Where("id = ?", rec.ID).Updates(recUpdates).Error; err != nil {
		return err
	}
	if err := a.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).Updates(counters).Error; err != nil {
		return err
	}

	switch outcome.Status {
	case OutcomeDelivered:
		a.emit(EventMessageDelivered, campaign, rec.Address, "")
	case OutcomeBounced:
		a.emit(EventMessageBounced, campaign, rec.Address, outcome.Reason)
	}
	return nil
}

// RecordEngagement applies an inbound open/click/unsubscribe event. These
// arrive asynchronously and are accepted for campaigns in any non-deleted
// state, including after completion; the counters outlive the dispatch task.
// Campaign-level engagement counters count unique recipients, per-recipient
// counts track repeats. Uniqueness is decided by the guarded first-event
// write, never by a previously loaded copy of the row, so concurrent
// duplicates (pixel prefetchers, proxy fetches) cannot double count.
func (a *Aggregator) RecordEngagement(campaign *models.Campaign, rec *models.CampaignRecipient, eventType string) error {
	now := time.Now()

	var first bool
	var err error
	var emitType, counterColumn string

	switch eventType {
	case EngagementOpened:
		first, err = a.firstEngagement(rec.ID, "opened_at", map[string]interface{}{
			"opened_at":  now,
			"open_count": gorm.Expr("open_count + 1"),
		})
		if err != nil {
			return err
		}
		if !first {
			if err := a.bumpRecipientCounter(rec.ID, "open_count"); err != nil {
				return err
			}
		}
		if err := a.promoteStatus(rec.ID, models.RecipientStatusOpened, models.RecipientStatusDelivered); err != nil {
			return err
		}
		emitType, counterColumn = EventMessageOpened, "open_count"
	case EngagementClicked:
		first, err = a.firstEngagement(rec.ID, "clicked_at", map[string]interface{}{
			"clicked_at":  now,
			"click_count": gorm.Expr("click_count + 1"),
		})
		if err != nil {
			return err
		}
		if !first {
			if err := a.bumpRecipientCounter(rec.ID, "click_count"); err != nil {
				return err
			}
		}
		if err := a.promoteStatus(rec.ID, models.RecipientStatusClicked,
			models.RecipientStatusDelivered, models.RecipientStatusOpened); err != nil {
			return err
		}
		emitType, counterColumn = EventMessageClicked, "click_count"
	case EngagementUnsubscribed:
		first, err = a.firstEngagement(rec.ID, "unsubscribed_at", map[string]interface{}{
			"unsubscribed_at": now,
			"status":          models.RecipientStatusUnsubscribed,
		})
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		emitType, counterColumn = EventMessageUnsubscribed, "unsubscribe_count"
	default:
		return fmt.Errorf("unknown engagement event type: %s", eventType)
	}

	if first {
		err := a.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
			Update(counterColumn, gorm.Expr(counterColumn+" + 1")).Error
		if err != nil {
			return err
		}
	}

	a.emit(emitType, campaign, rec.Address, "")
	return nil
}

// firstEngagement applies the recipient update only while the guard column is
// still NULL and reports whether this caller won the first-event write. The
// guard rides in the WHERE clause, so among any number of concurrent
// duplicates exactly one observes first == true.
func (a *Aggregator) firstEngagement(recipientID uint, guard string, updates map[string]interface{}) (bool, error) {
	res := a.DB.Model(&models.CampaignRecipient{}).
		Where("id = ? AND "+guard+" IS NULL", recipientID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (a *Aggregator) bumpRecipientCounter(recipientID uint, column string) error {
	return a.DB.Model(&models.CampaignRecipient{}).Where("id = ?", recipientID).
		Update(column, gorm.Expr(column+" + 1")).Error
}

// promoteStatus advances the recipient status only from the listed states, so
// an open can never demote a click and engagement never touches failed or
// unsubscribed records.
func (a *Aggregator) promoteStatus(recipientID uint, to string, from ...string) error {
	return a.DB.Model(&models.CampaignRecipient{}).
		Where("id = ? AND status IN ?", recipientID, from).
		Update("status", to).Error
}

// Snapshot reads a consistent projection of the campaign counters. It may be
// slightly stale under heavy concurrency but never blocks the writers.
func (a *Aggregator) Snapshot(campaignID uint) (*ProgressSnapshot, error) {
	var campaign models.Campaign
	if err := a.DB.First(&campaign, campaignID).Error; err != nil {
		return nil, err
	}
	return snapshotOf(&campaign), nil
}

func snapshotOf(c *models.Campaign) *ProgressSnapshot {
	s := &ProgressSnapshot{
		CampaignID:         c.ID,
		Status:             c.Status,
		TotalRecipients:    c.TotalRecipients,
		SentCount:          c.SentCount,
		SuccessCount:       c.DeliveredCount,
		FailedCount:        c.FailedCount,
		BouncedCount:       c.BounceCount,
		InProgressCount:    c.TotalRecipients - c.SentCount,
		OpenCount:          c.OpenCount,
		ClickCount:         c.ClickCount,
		UnsubscribeCount:   c.UnsubscribeCount,
		CurrentBatchNumber: c.CurrentBatch,
		TotalBatches:       c.TotalBatches,
		ScheduledAt:        c.ScheduledAt,
		StartedAt:          c.StartedAt,
		CompletedAt:        c.CompletedAt,
		ErrorMessage:       c.ErrorMessage,
	}
	if s.InProgressCount < 0 {
		s.InProgressCount = 0
	}
	s.ProgressPercentage = percentage(c.SentCount, c.TotalRecipients)
	s.SuccessRate = percentage(c.DeliveredCount, c.SentCount)
	s.FailureRate = percentage(c.FailedCount+c.BounceCount, c.SentCount)
	s.OpenRate = percentage(c.OpenCount, c.DeliveredCount)
	s.ClickRate = percentage(c.ClickCount, c.DeliveredCount)
	return s
}

func percentage(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func (a *Aggregator) emit(eventType string, campaign *models.Campaign, recipient, detail string) {
	if a.Emitter == nil {
		return
	}
	a.Emitter.Emit(Event{
		Type:       eventType,
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		Recipient:  recipient,
		Detail:     detail,
		Timestamp:  time.Now(),
	})
}
