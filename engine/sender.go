package engine

import "context"

// Delivery outcome statuses
const (
	OutcomeDelivered = "delivered"
	OutcomeBounced   = "bounced"
	OutcomeFailed    = "failed"
)

// TrackingOptions carries the per-message tracking settings resolved from the
// campaign flags. MessageID keys the open/click callback URLs.
type TrackingOptions struct {
	MessageID       string
	TrackOpens      bool
	TrackClicks     bool
	UnsubscribeLink bool
}

// DeliveryOutcome is the terminal per-recipient result of a send attempt.
type DeliveryOutcome struct {
	Status string // delivered, bounced, failed
	Reason string // provider detail for bounced/failed
}

// ChannelSender sends one message to one recipient over a specific transport.
// Variants differ only in transport and address validation; the dispatch core
// selects one from the campaign's channel field and is otherwise oblivious.
//
// Send returns a *SenderUnavailableError for transport-level outages, which
// the dispatcher retries with backoff. Any other error, and any bounced or
// failed outcome, is terminal for that recipient only.
type ChannelSender interface {
	Channel() string
	ValidateAddress(address string) error
	Send(ctx context.Context, address, subject, body string, opts TrackingOptions) (*DeliveryOutcome, error)
}
