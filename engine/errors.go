package engine

import (
	"errors"
	"fmt"
)

// InvalidStateTransitionError is returned when a campaign lifecycle move is
// not allowed. The campaign row is left unchanged.
type InvalidStateTransitionError struct {
	CampaignID uint
	From       string
	To         string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("campaign %d: invalid state transition %s -> %s", e.CampaignID, e.From, e.To)
}

// IsInvalidStateTransition reports whether err is an InvalidStateTransitionError.
func IsInvalidStateTransition(err error) bool {
	var target *InvalidStateTransitionError
	return errors.As(err, &target)
}

// QuotaExceededError is returned when a tenant's monthly allowance cannot
// cover the requested capacity. Admission is all-or-nothing, so nothing is
// charged when this error is returned.
type QuotaExceededError struct {
	TenantID uint
	Resource string
	Limit    int
	Used     int
	Need     int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tenant %d: %s quota exceeded (limit %d, used %d, need %d)",
		e.TenantID, e.Resource, e.Limit, e.Used, e.Need)
}

// IsQuotaExceeded reports whether err is a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var target *QuotaExceededError
	return errors.As(err, &target)
}

// SenderUnavailableError marks a transport-level sender failure. The
// dispatcher retries these with backoff before recording the recipient as
// failed; all other send errors are terminal for that recipient.
type SenderUnavailableError struct {
	Channel string
	Err     error
}

func (e *SenderUnavailableError) Error() string {
	return fmt.Sprintf("%s sender unavailable: %v", e.Channel, e.Err)
}

func (e *SenderUnavailableError) Unwrap() error { return e.Err }

// IsSenderUnavailable reports whether err is a retryable transport failure.
func IsSenderUnavailable(err error) bool {
	var target *SenderUnavailableError
	return errors.As(err, &target)
}
