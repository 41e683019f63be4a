package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Lifecycle and delivery event types published to collaborators
const (
	EventCampaignStarted     = "campaign.started"
	EventCampaignCompleted   = "campaign.completed"
	EventCampaignFailed      = "campaign.failed"
	EventMessageDelivered    = "message.delivered"
	EventMessageBounced      = "message.bounced"
	EventMessageOpened       = "message.opened"
	EventMessageClicked      = "message.clicked"
	EventMessageUnsubscribed = "message.unsubscribed"
)

// Event is the fire-and-forget notification payload.
type Event struct {
	Type       string    `json:"type"`
	CampaignID uint      `json:"campaign_id"`
	TenantID   uint      `json:"tenant_id"`
	Recipient  string    `json:"recipient,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventEmitter notifies external collaborators of lifecycle and delivery
// events. Implementations must never block dispatch and never return errors
// to the engine; emission failures are their own concern to log.
type EventEmitter interface {
	Emit(event Event)
}

// MemoryEmitter buffers events in memory. Used by tests and by deployments
// running without a broker.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

func (m *MemoryEmitter) Emit(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of everything emitted so far.
func (m *MemoryEmitter) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// CountByType tallies emitted events per type.
func (m *MemoryEmitter) CountByType() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, ev := range m.events {
		counts[ev.Type]++
	}
	return counts
}

// AMQPEmitter publishes events to a topic exchange, routing key = event type.
type AMQPEmitter struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAMQPEmitter(url, exchange string) (*AMQPEmitter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPEmitter{conn: conn, channel: ch, exchange: exchange}, nil
}

func (e *AMQPEmitter) Emit(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal event")
		return
	}

	err = e.channel.Publish(e.exchange, event.Type, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.Timestamp,
		Body:        body,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"event_type":  event.Type,
			"campaign_id": event.CampaignID,
		}).WithError(err).Warn("failed to publish event")
	}
}

func (e *AMQPEmitter) Close() error {
	if err := e.channel.Close(); err != nil {
		e.conn.Close()
		return err
	}
	return e.conn.Close()
}
