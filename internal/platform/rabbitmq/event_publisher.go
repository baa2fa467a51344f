package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is the JSON envelope published for every domain event.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// EventPublisher publishes to a durable topic exchange using the event type as
// routing key. A nil *EventPublisher drops every event.
type EventPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewEventPublisher(conn *amqp.Connection, exchange string) (*EventPublisher, error) {
	p := &EventPublisher{conn: conn, exchange: exchange}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *EventPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange failed: %w", err)
	}
	p.ch = ch
	return nil
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	if p == nil {
		return nil
	}
	msg, err := buildPublishing(eventType, data, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("publish %s failed: %w", eventType, err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}

func buildPublishing(eventType string, data interface{}, at time.Time) (amqp.Publishing, error) {
	payload, err := json.Marshal(Event{Type: eventType, OccurredAt: at, Data: data})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s event failed: %w", eventType, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Type:         eventType,
		Body:         payload,
	}, nil
}
