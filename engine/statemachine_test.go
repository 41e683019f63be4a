package engine

import (
	"errors"
	"testing"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{models.CampaignStatusDraft, models.CampaignStatusScheduled, true},
		{models.CampaignStatusDraft, models.CampaignStatusInProgress, true},
		{models.CampaignStatusDraft, models.CampaignStatusCancelled, true},
		{models.CampaignStatusDraft, models.CampaignStatusCompleted, false},
		{models.CampaignStatusDraft, models.CampaignStatusFailed, false},

		{models.CampaignStatusScheduled, models.CampaignStatusInProgress, true},
		{models.CampaignStatusScheduled, models.CampaignStatusFailed, true},
		{models.CampaignStatusScheduled, models.CampaignStatusCancelled, true},
		{models.CampaignStatusScheduled, models.CampaignStatusCompleted, false},
		{models.CampaignStatusScheduled, models.CampaignStatusDraft, false},

		{models.CampaignStatusInProgress, models.CampaignStatusCompleted, true},
		{models.CampaignStatusInProgress, models.CampaignStatusFailed, true},
		{models.CampaignStatusInProgress, models.CampaignStatusCancelled, true},
		{models.CampaignStatusInProgress, models.CampaignStatusDraft, false},
		{models.CampaignStatusInProgress, models.CampaignStatusScheduled, false},

		// Terminal statuses never move
		{models.CampaignStatusCompleted, models.CampaignStatusInProgress, false},
		{models.CampaignStatusCompleted, models.CampaignStatusCancelled, false},
		{models.CampaignStatusFailed, models.CampaignStatusInProgress, false},
		{models.CampaignStatusCancelled, models.CampaignStatusInProgress, false},
		{models.CampaignStatusCancelled, models.CampaignStatusCompleted, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionUpdatesStatus(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	if err := transition(db, campaign, models.CampaignStatusInProgress, nil); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if campaign.Status != models.CampaignStatusInProgress {
		t.Errorf("in-memory status = %s, want in_progress", campaign.Status)
	}
	if got := reloadCampaign(t, db, campaign.ID); got.Status != models.CampaignStatusInProgress {
		t.Errorf("persisted status = %s, want in_progress", got.Status)
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	err := transition(db, campaign, models.CampaignStatusCompleted, nil)
	if !IsInvalidStateTransition(err) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	if got := reloadCampaign(t, db, campaign.ID); got.Status != models.CampaignStatusDraft {
		t.Errorf("status changed to %s after a rejected transition", got.Status)
	}
}

// A concurrent mover wins the guarded update; the loser gets the current
// status back in the error instead of applying the edge twice.
func TestTransitionGuardsAgainstConcurrentMove(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	// Another actor cancels the campaign behind this copy's back.
	stale := *campaign
	if err := transition(db, campaign, models.CampaignStatusCancelled, nil); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}

	err := transition(db, &stale, models.CampaignStatusInProgress, nil)
	if !IsInvalidStateTransition(err) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
	var tErr *InvalidStateTransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("could not unwrap transition error")
	}
	if tErr.From != models.CampaignStatusCancelled {
		t.Errorf("error reports From = %s, want cancelled", tErr.From)
	}
}

func TestTransitionWritesExtraColumns(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTenant(t, db, 1000, 50)
	campaign := createCampaign(t, db, tenant, nil)

	if err := transition(db, campaign, models.CampaignStatusInProgress, startStamp(42, 5)); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	got := reloadCampaign(t, db, campaign.ID)
	if got.TotalRecipients != 42 {
		t.Errorf("total_recipients = %d, want 42", got.TotalRecipients)
	}
	if got.TotalBatches != 5 {
		t.Errorf("total_batches = %d, want 5", got.TotalBatches)
	}
	if got.StartedAt == nil {
		t.Error("started_at was not stamped")
	}
	if got.CurrentBatch != 0 {
		t.Errorf("current_batch = %d, want 0", got.CurrentBatch)
	}
}
