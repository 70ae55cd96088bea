// Package ingest accepts location updates published by worker devices over
// MQTT and feeds them into the tracking service.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

const (
	DefaultTopic  = "localtalent/bookings/+/location"
	submitTimeout = 5 * time.Second

	// DefaultMaxInFlight bounds concurrent submits from device messages.
	DefaultMaxInFlight = 32
)

type locationSubmitter interface {
	SubmitLocation(ctx context.Context, id domain.BookingID, u domain.LocationUpdate) error
}

// Connect dials broker with the given client id and waits for the session.
// onConnect runs after every successful connect, reconnects included.
// Handlers run concurrently, so a slow submit never stalls the client.
func Connect(broker, clientID string, onConnect mqtt.OnConnectHandler) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectTimeout(10 * time.Second)
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

type LocationSubscriber struct {
	client  mqtt.Client
	topic   string
	svc     locationSubmitter
	logger  *zap.Logger
	slots   chan struct{}
	started atomic.Bool
}

func NewLocationSubscriber(topic string, svc locationSubmitter, logger *zap.Logger) *LocationSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.L()
	}
	return &LocationSubscriber{
		topic:  topic,
		svc:    svc,
		logger: logger.Named("ingest"),
		slots:  make(chan struct{}, DefaultMaxInFlight),
	}
}

// Start subscribes on client. Once started, OnConnect restores the
// subscription after every reconnect.
func (s *LocationSubscriber) Start(client mqtt.Client) error {
	s.client = client
	s.started.Store(true)
	return s.subscribe(client)
}

func (s *LocationSubscriber) Stop() error {
	if !s.started.Swap(false) || s.client == nil {
		return nil
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}

// OnConnect is the client's connect handler. Clean sessions drop
// subscriptions on the broker, so they are sent again on each reconnect.
func (s *LocationSubscriber) OnConnect(client mqtt.Client) {
	if !s.started.Load() {
		return
	}
	if err := s.subscribe(client); err != nil {
		s.logger.Error("mqtt resubscribe failed", zap.String("topic", s.topic), zap.Error(err))
		return
	}
	s.logger.Info("mqtt resubscribed", zap.String("topic", s.topic))
}

func (s *LocationSubscriber) subscribe(client mqtt.Client) error {
	token := client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

type devicePayload struct {
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Status     *string  `json:"status"`
	ETAMinutes *int     `json:"eta_minutes"`
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	log := s.logger.With(zap.String("topic", msg.Topic()))

	id, err := bookingFromTopic(msg.Topic())
	if err != nil {
		log.Warn("ignoring location message", zap.Error(err))
		return
	}

	var p devicePayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		log.Warn("invalid location payload", zap.Error(err))
		return
	}
	if p.Lat == nil || p.Lng == nil {
		log.Warn("location payload missing lat/lng", zap.Int64("booking_id", int64(id)))
		return
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		log.Warn("ingest saturated, dropping location", zap.Int64("booking_id", int64(id)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	u := domain.LocationUpdate{Lat: *p.Lat, Lng: *p.Lng, Status: p.Status, ETAMinutes: p.ETAMinutes}
	if err := s.svc.SubmitLocation(ctx, id, u); err != nil {
		if errors.Is(err, domain.ErrInvalidLocation) {
			log.Warn("rejected location update", zap.Int64("booking_id", int64(id)), zap.Error(err))
			return
		}
		log.Error("submit location failed", zap.Int64("booking_id", int64(id)), zap.Error(err))
	}
}

// bookingFromTopic reads the booking id from the segment before "location".
func bookingFromTopic(topic string) (domain.BookingID, error) {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-1] != "location" {
		return 0, fmt.Errorf("unexpected topic %q", topic)
	}
	raw := parts[len(parts)-2]
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad booking id %q in topic", raw)
	}
	return domain.BookingID(n), nil
}
