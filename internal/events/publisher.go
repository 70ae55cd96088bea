// Package events fans accepted location updates out to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

var _ tracking.EventPublisher = (*LocationPublisher)(nil)

const (
	DefaultExchange = "localtalent.events"
	eventLocation   = "booking.location"
)

// publishChannel is the slice of *amqp.Channel the publisher needs.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type LocationPublisher struct {
	ch       publishChannel
	exchange string
	now      func() time.Time
}

// Dial connects to url and returns the connection, which the caller owns.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}

// NewLocationPublisher opens a channel on conn and declares a durable fanout
// exchange. Consumers bind their own queues.
func NewLocationPublisher(conn *amqp.Connection, exchange string) (*LocationPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return newLocationPublisher(ch, exchange), nil
}

func newLocationPublisher(ch publishChannel, exchange string) *LocationPublisher {
	return &LocationPublisher{ch: ch, exchange: exchange, now: time.Now}
}

type locationMessage struct {
	Event      string           `json:"event"`
	BookingID  domain.BookingID `json:"booking_id"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	Status     *string          `json:"status,omitempty"`
	ETAMinutes *int             `json:"eta_minutes,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

func (p *LocationPublisher) PublishLocation(ctx context.Context, ev domain.LocationEvent) error {
	body, err := json.Marshal(locationMessage{
		Event:      eventLocation,
		BookingID:  ev.BookingID,
		Latitude:   ev.Latitude,
		Longitude:  ev.Longitude,
		Status:     ev.Status,
		ETAMinutes: ev.ETAMinutes,
		Timestamp:  p.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal location event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        eventLocation,
		Body:        body,
	})
}

func (p *LocationPublisher) Close() error { return p.ch.Close() }
