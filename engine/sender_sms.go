package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// SMSSender posts messages to an HTTP SMS gateway.
type SMSSender struct {
	GatewayURL string
	APIKey     string
	From       string

	Client *http.Client
}

func (s *SMSSender) Channel() string { return models.ChannelSMS }

// ValidateAddress accepts E.164-style phone numbers.
func (s *SMSSender) ValidateAddress(address string) error {
	return validatePhone(address)
}

func (s *SMSSender) Send(ctx context.Context, address, subject, body string, opts TrackingOptions) (*DeliveryOutcome, error) {
	if err := s.ValidateAddress(address); err != nil {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "invalid address: " + err.Error()}, nil
	}
	if s.GatewayURL == "" {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "sms gateway not configured"}, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"to":         address,
		"from":       s.From,
		"body":       body,
		"message_id": opts.MessageID,
	})

	return postToGateway(ctx, s.client(), s.Channel(), s.GatewayURL+"/messages", s.APIKey, payload)
}

func (s *SMSSender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// postToGateway shares the provider response mapping between the SMS and
// WhatsApp senders: 2xx delivered, 4xx bounced, 5xx or network error retryable.
func postToGateway(ctx context.Context, client *http.Client, channel, url, apiKey string, payload []byte) (*DeliveryOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &DeliveryOutcome{Status: OutcomeFailed, Reason: "send timed out"}, nil
		}
		return nil, &SenderUnavailableError{Channel: channel, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &DeliveryOutcome{Status: OutcomeDelivered}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &DeliveryOutcome{Status: OutcomeBounced, Reason: fmt.Sprintf("provider rejected: %s", resp.Status)}, nil
	default:
		return nil, &SenderUnavailableError{Channel: channel, Err: fmt.Errorf("gateway returned %s", resp.Status)}
	}
}

func validatePhone(address string) error {
	n := strings.TrimPrefix(address, "+")
	if len(n) < 7 || len(n) > 15 {
		return fmt.Errorf("phone number must have 7-15 digits")
	}
	for _, r := range n {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("phone number contains non-digit characters")
		}
	}
	return nil
}
