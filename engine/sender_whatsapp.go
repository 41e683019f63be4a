package engine

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
)

// WhatsAppSender posts messages to a WhatsApp Business gateway.
type WhatsAppSender struct {
	GatewayURL string
	APIKey     string
	From       string

	Client *http.Client
}

func (s *WhatsAppSender) Channel() string { return models.ChannelWhatsApp }

func (s *WhatsAppSender) ValidateAddress(address string) error {
	return validatePhone(address)
}

func (s *WhatsAppSender) Send(ctx context.Context, address, subject, body string, opts TrackingOptions) (*DeliveryOutcome, error) {
	if err := s.ValidateAddress(address); err != nil {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "invalid address: " + err.Error()}, nil
	}
	if s.GatewayURL == "" {
		return &DeliveryOutcome{Status: OutcomeFailed, Reason: "whatsapp gateway not configured"}, nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"from":              s.From,
		"to":                address,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})

	return postToGateway(ctx, s.client(), s.Channel(), s.GatewayURL+"/messages", s.APIKey, payload)
}

func (s *WhatsAppSender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}
