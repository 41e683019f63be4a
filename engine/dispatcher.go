package engine

import (
	"context"
	"sync"
	"time"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// dispatchState tracks one campaign's in-flight dispatch. The cancelled flag
// is checked before each new recipient is admitted; in-flight sends finish.
type dispatchState struct {
	cancelled sync.Once
	stopped   chan struct{}
	done      chan struct{}
}

func newDispatchState() *dispatchState {
	return &dispatchState{
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *dispatchState) cancel() {
	s.cancelled.Do(func() { close(s.stopped) })
}

func (s *dispatchState) isCancelled() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// dispatch drains a campaign's batches through the worker pool. Recipients
// within a batch are handed to workers in input order; completion order is
// whatever the workers make of it. The unbuffered jobs channel means batch
// N+1 is never fed before batch N is fully submitted to the pool, which keeps
// memory bounded and batches sequenced at the admission level.
func (e *Engine) dispatch(ctx context.Context, campaign *models.Campaign, recipients []*models.CampaignRecipient, state *dispatchState) {
	defer func() {
		e.mu.Lock()
		delete(e.active, campaign.ID)
		e.mu.Unlock()
		close(state.done)
	}()

	sender, err := e.senderFor(campaign.Channel)
	if err != nil {
		// Admission validates the sender, so this only fires if the registry
		// changed mid-flight. Systemic: the whole campaign fails.
		e.failCampaign(campaign, err.Error())
		return
	}

	limiter := NewRateLimiter(campaign.RateLimitPerMinute)
	batches := SplitBatches(recipients, e.batchSizeFor(campaign))

	workers := e.Config.WorkerCount
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan *models.CampaignRecipient)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				e.processRecipient(ctx, campaign, sender, limiter, rec)
			}
		}()
	}

feed:
	for i, batch := range batches {
		if state.isCancelled() {
			break
		}
		e.setCurrentBatch(campaign, i+1)
		for _, rec := range batch {
			if state.isCancelled() {
				break feed
			}
			jobs <- rec
		}
	}
	close(jobs)
	wg.Wait()

	e.finalize(campaign, state.isCancelled())
}

// processRecipient is the per-recipient pipeline: rate-limiter token, send
// with retry, record the outcome. Errors here are recorded against the
// recipient and never abort the batch.
func (e *Engine) processRecipient(ctx context.Context, campaign *models.Campaign, sender ChannelSender, limiter *RateLimiter, rec *models.CampaignRecipient) {
	if err := limiter.Wait(ctx); err != nil {
		// Engine shutdown mid-wait; the record stays pending.
		return
	}

	outcome := e.sendWithRetry(ctx, campaign, sender, rec)
	if err := e.Aggregator.RecordOutcome(campaign, rec, outcome); err != nil {
		e.Logger.Printf("Failed to record outcome for recipient %d: %v", rec.ID, err)
	}
}

// sendWithRetry invokes the channel sender under the per-call timeout,
// retrying transport-level outages with growing backoff. Exhausted retries
// and non-retryable errors become a failed outcome for this recipient.
func (e *Engine) sendWithRetry(ctx context.Context, campaign *models.Campaign, sender ChannelSender, rec *models.CampaignRecipient) *DeliveryOutcome {
	attempts := e.Config.SenderRetryMax + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := e.Config.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	timeout := e.Config.SendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := TrackingOptions{
		MessageID:       rec.MessageID,
		TrackOpens:      campaign.TrackOpens,
		TrackClicks:     campaign.TrackClicks,
		UnsubscribeLink: campaign.UnsubscribeLink,
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		outcome, err := sender.Send(callCtx, rec.Address, campaign.Subject, campaign.Body, opts)
		cancel()
		if err == nil {
			return outcome
		}
		lastErr = err
		if !IsSenderUnavailable(err) {
			break
		}
		e.Logger.Printf("Sender unavailable for recipient %d (attempt %d/%d): %v", rec.ID, attempt+1, attempts, err)
		time.Sleep(backoff * time.Duration(attempt+1))
	}

	return &DeliveryOutcome{Status: OutcomeFailed, Reason: lastErr.Error()}
}

func (e *Engine) setCurrentBatch(campaign *models.Campaign, batch int) {
	if err := e.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
		Update("current_batch", batch).Error; err != nil {
		e.Logger.Printf("Failed to update current batch for campaign %d: %v", campaign.ID, err)
	}
}

// finalize closes out the dispatch once the pool drains. A cancelled campaign
// keeps its cancelled status and pending records stay pending; anything else
// becomes completed regardless of individual recipient failures.
func (e *Engine) finalize(campaign *models.Campaign, cancelled bool) {
	if cancelled {
		e.Logger.Printf("Campaign %d dispatch stopped after cancellation", campaign.ID)
		return
	}

	err := transition(e.DB, campaign, models.CampaignStatusCompleted, map[string]interface{}{
		"completed_at": time.Now(),
	})
	if err != nil {
		if IsInvalidStateTransition(err) {
			// Cancelled between the last send and here; nothing to do.
			return
		}
		e.Logger.Printf("Failed to complete campaign %d: %v", campaign.ID, err)
		return
	}

	e.Logger.Printf("Campaign %d completed", campaign.ID)
	e.emitCampaignEvent(EventCampaignCompleted, campaign, "")
}

// failCampaign marks a campaign failed for a systemic error. Never called
// for isolated recipient failures.
func (e *Engine) failCampaign(campaign *models.Campaign, reason string) {
	err := transition(e.DB, campaign, models.CampaignStatusFailed, map[string]interface{}{
		"completed_at":  time.Now(),
		"error_message": reason,
	})
	if err != nil {
		e.Logger.Printf("Failed to mark campaign %d as failed: %v", campaign.ID, err)
		return
	}
	e.emitCampaignEvent(EventCampaignFailed, campaign, reason)
}
