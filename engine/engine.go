package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// Config holds the dispatch tuning knobs.
type Config struct {
	WorkerCount      int
	DefaultBatchSize int
	SendTimeout      time.Duration
	SenderRetryMax   int
	RetryBackoff     time.Duration
}

// Engine is the campaign dispatch and progress engine. It owns admitted
// campaigns exclusively: collaborators only read snapshots or request
// transitions through its methods.
type Engine struct {
	DB         *gorm.DB
	Quota      *QuotaGate
	Aggregator *Aggregator
	Emitter    EventEmitter
	Logger     *log.Logger
	Config     Config

	senders map[string]ChannelSender

	mu     sync.Mutex
	active map[uint]*dispatchState
}

// New builds an Engine. Senders are registered per channel afterwards with
// RegisterSender.
func New(db *gorm.DB, emitter EventEmitter, logger *log.Logger, cfg Config) *Engine {
	if emitter == nil {
		emitter = NewMemoryEmitter()
	}
	return &Engine{
		DB:         db,
		Quota:      &QuotaGate{},
		Aggregator: &Aggregator{DB: db, Emitter: emitter},
		Emitter:    emitter,
		Logger:     logger,
		Config:     cfg,
		senders:    make(map[string]ChannelSender),
		active:     make(map[uint]*dispatchState),
	}
}

// RegisterSender installs the sender used for one channel.
func (e *Engine) RegisterSender(s ChannelSender) {
	e.senders[s.Channel()] = s
}

func (e *Engine) senderFor(channel string) (ChannelSender, error) {
	s, ok := e.senders[channel]
	if !ok {
		return nil, fmt.Errorf("no sender configured for channel %q", channel)
	}
	return s, nil
}

// AdmitCampaign materializes the recipient set, reserves tenant quota and
// moves the campaign into dispatch. All-or-nothing: a quota or transition
// failure rolls everything back and leaves the campaign untouched. With an
// empty address list the already-materialized pending recipients are used
// (the scheduler promotion path).
func (e *Engine) AdmitCampaign(ctx context.Context, campaignID uint, addresses []string) error {
	var campaign models.Campaign
	if err := e.DB.First(&campaign, campaignID).Error; err != nil {
		return err
	}

	if !CanTransition(campaign.Status, models.CampaignStatusInProgress) {
		return &InvalidStateTransitionError{
			CampaignID: campaign.ID,
			From:       campaign.Status,
			To:         models.CampaignStatusInProgress,
		}
	}

	if _, err := e.senderFor(campaign.Channel); err != nil {
		return err
	}

	// Register the dispatch handle before the status flips to in_progress so
	// a cancellation arriving right after admission always finds it. A handle
	// already present means another admission is in flight.
	state := newDispatchState()
	e.mu.Lock()
	if _, exists := e.active[campaign.ID]; exists {
		e.mu.Unlock()
		return &InvalidStateTransitionError{
			CampaignID: campaign.ID,
			From:       models.CampaignStatusInProgress,
			To:         models.CampaignStatusInProgress,
		}
	}
	e.active[campaign.ID] = state
	e.mu.Unlock()

	var recipients []*models.CampaignRecipient
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		recipients, err = e.materializeRecipients(tx, &campaign, addresses)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return fmt.Errorf("campaign %d has no recipients", campaign.ID)
		}

		var tenant models.Tenant
		if err := tx.First(&tenant, campaign.TenantID).Error; err != nil {
			return err
		}
		if err := e.Quota.Reserve(tx, &tenant, campaign.Channel, len(recipients)); err != nil {
			return err
		}

		total := len(recipients)
		totalBatches := TotalBatchesFor(total, e.batchSizeFor(&campaign))
		if err := transition(tx, &campaign, models.CampaignStatusInProgress, startStamp(total, totalBatches)); err != nil {
			return err
		}
		campaign.TotalRecipients = total
		campaign.TotalBatches = totalBatches
		return nil
	})
	if err != nil {
		e.mu.Lock()
		delete(e.active, campaign.ID)
		e.mu.Unlock()
		close(state.done)
		return err
	}

	e.Logger.Printf("Campaign %d admitted: %d recipients in %d batches", campaign.ID, campaign.TotalRecipients, campaign.TotalBatches)
	e.emitCampaignEvent(EventCampaignStarted, &campaign, "")

	// Dispatch owns its own lifetime; the admitting request must not cancel it.
	go e.dispatch(context.Background(), &campaign, recipients, state)
	return nil
}

// ScheduleCampaign materializes the recipient set and parks the campaign
// until the sweep promotes it. One-shot scheduling only.
func (e *Engine) ScheduleCampaign(ctx context.Context, campaignID uint, at time.Time, batchSize, ratePerMinute int, addresses []string) error {
	if at.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}

	var campaign models.Campaign
	if err := e.DB.First(&campaign, campaignID).Error; err != nil {
		return err
	}

	return e.DB.Transaction(func(tx *gorm.DB) error {
		recipients, err := e.materializeRecipients(tx, &campaign, addresses)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return fmt.Errorf("campaign %d has no recipients", campaign.ID)
		}

		if batchSize <= 0 {
			batchSize = e.Config.DefaultBatchSize
		}
		total := len(recipients)
		return transition(tx, &campaign, models.CampaignStatusScheduled, map[string]interface{}{
			"scheduled_at":          at,
			"batch_size":            batchSize,
			"rate_limit_per_minute": ratePerMinute,
			"total_recipients":      total,
			"total_batches":         TotalBatchesFor(total, batchSize),
		})
	})
}

// CancelCampaign requests cooperative cancellation. In-flight sends finish,
// no new recipient is admitted, pending records stay pending. Terminal
// campaigns cannot be cancelled.
func (e *Engine) CancelCampaign(campaignID uint) error {
	var campaign models.Campaign
	if err := e.DB.First(&campaign, campaignID).Error; err != nil {
		return err
	}

	if err := transition(e.DB, &campaign, models.CampaignStatusCancelled, nil); err != nil {
		return err
	}

	e.mu.Lock()
	state, running := e.active[campaignID]
	e.mu.Unlock()
	if running {
		state.cancel()
	}

	e.Logger.Printf("Campaign %d cancelled", campaignID)
	return nil
}

// RecordEngagement applies an inbound open/click/unsubscribe event for a
// recipient, addressed by campaign and recipient address.
func (e *Engine) RecordEngagement(campaignID uint, address, eventType string) error {
	var campaign models.Campaign
	if err := e.DB.First(&campaign, campaignID).Error; err != nil {
		return err
	}

	var rec models.CampaignRecipient
	if err := e.DB.Where("campaign_id = ? AND address = ?", campaignID, address).First(&rec).Error; err != nil {
		return err
	}

	return e.Aggregator.RecordEngagement(&campaign, &rec, eventType)
}

// RecordEngagementByMessageID resolves the tracking message ID to a
// recipient and applies the engagement event. Used by the tracking endpoints.
func (e *Engine) RecordEngagementByMessageID(messageID, eventType string) error {
	var rec models.CampaignRecipient
	if err := e.DB.Where("message_id = ?", messageID).First(&rec).Error; err != nil {
		return err
	}

	var campaign models.Campaign
	if err := e.DB.First(&campaign, rec.CampaignID).Error; err != nil {
		return err
	}

	return e.Aggregator.RecordEngagement(&campaign, &rec, eventType)
}

// GetProgressSnapshot returns the live progress projection for a campaign.
func (e *Engine) GetProgressSnapshot(campaignID uint) (*ProgressSnapshot, error) {
	return e.Aggregator.Snapshot(campaignID)
}

// WaitForDispatch blocks until the campaign's dispatch goroutine exits.
// Intended for tests and graceful shutdown; returns immediately when no
// dispatch is running.
func (e *Engine) WaitForDispatch(campaignID uint) {
	e.mu.Lock()
	state, ok := e.active[campaignID]
	e.mu.Unlock()
	if !ok {
		return
	}
	<-state.done
}

func (e *Engine) batchSizeFor(campaign *models.Campaign) int {
	if campaign.BatchSize > 0 {
		return campaign.BatchSize
	}
	return e.Config.DefaultBatchSize
}

// materializeRecipients creates pending delivery records for each distinct
// address, idempotently on the (campaign, address) pair, and returns every
// pending record for the campaign in creation order.
func (e *Engine) materializeRecipients(tx *gorm.DB, campaign *models.Campaign, addresses []string) ([]*models.CampaignRecipient, error) {
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		rec := models.CampaignRecipient{CampaignID: campaign.ID, Address: addr}
		err := tx.Where(&models.CampaignRecipient{CampaignID: campaign.ID, Address: addr}).
			Attrs(models.CampaignRecipient{
				Status:    models.RecipientStatusPending,
				MessageID: uuid.New().String(),
			}).
			FirstOrCreate(&rec).Error
		if err != nil {
			return nil, err
		}
	}

	var recipients []*models.CampaignRecipient
	err := tx.Where("campaign_id = ? AND status = ?", campaign.ID, models.RecipientStatusPending).
		Order("id").
		Find(&recipients).Error
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func (e *Engine) emitCampaignEvent(eventType string, campaign *models.Campaign, detail string) {
	if e.Emitter == nil {
		return
	}
	e.Emitter.Emit(Event{
		Type:       eventType,
		CampaignID: campaign.ID,
		TenantID:   campaign.TenantID,
		Detail:     detail,
		Timestamp:  time.Now(),
	})
}
