package ingest

import (
	"context"
	"errors"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

type call struct {
	id domain.BookingID
	u  domain.LocationUpdate
}

type mockSubmitter struct {
	calls []call
	err   error
}

func (m *mockSubmitter) SubmitLocation(_ context.Context, id domain.BookingID, u domain.LocationUpdate) error {
	m.calls = append(m.calls, call{id, u})
	return m.err
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 1 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return f.topic }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func newTestSubscriber(svc locationSubmitter) (*LocationSubscriber, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLocationSubscriber("", svc, zap.New(core)), logs
}

func TestHandleMessage_Success(t *testing.T) {
	svc := &mockSubmitter{}
	sub, _ := newTestSubscriber(svc)

	sub.handleMessage(nil, &fakeMQTTMessage{
		topic:   "localtalent/bookings/42/location",
		payload: []byte(`{"lat":17.385,"lng":78.4867,"status":"enroute","eta_minutes":7}`),
	})

	if len(svc.calls) != 1 {
		t.Fatalf("got %d submits, want 1", len(svc.calls))
	}
	c := svc.calls[0]
	if c.id != 42 || c.u.Lat != 17.385 || c.u.Lng != 78.4867 {
		t.Errorf("unexpected call %+v", c)
	}
	if c.u.Status == nil || *c.u.Status != "enroute" || c.u.ETAMinutes == nil || *c.u.ETAMinutes != 7 {
		t.Errorf("optional fields lost: %+v", c.u)
	}
}

func TestHandleMessage_BadTopicOrPayload(t *testing.T) {
	cases := []struct {
		name  string
		topic string
		body  string
	}{
		{"non numeric id", "localtalent/bookings/abc/location", `{"lat":1,"lng":1}`},
		{"zero id", "localtalent/bookings/0/location", `{"lat":1,"lng":1}`},
		{"wrong suffix", "localtalent/bookings/4/status", `{"lat":1,"lng":1}`},
		{"bad json", "localtalent/bookings/4/location", `{"lat":`},
		{"missing coordinates", "localtalent/bookings/42/location", `{"status":"arrived"}`},
		{"missing lng", "localtalent/bookings/42/location", `{"lat":17.3}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := &mockSubmitter{}
			sub, logs := newTestSubscriber(svc)
			sub.handleMessage(nil, &fakeMQTTMessage{topic: c.topic, payload: []byte(c.body)})
			if len(svc.calls) != 0 {
				t.Errorf("submit called for %s", c.name)
			}
			if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
				t.Errorf("expected one warning, got %v", logs.All())
			}
		})
	}
}

func TestHandleMessage_SubmitErrors(t *testing.T) {
	svc := &mockSubmitter{err: errors.New("store down")}
	sub, logs := newTestSubscriber(svc)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "localtalent/bookings/9/location", payload: []byte(`{"lat":1,"lng":1}`)})
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Errorf("persistence failure not logged at error: %v", logs.All())
	}

	svc.err = domain.ErrInvalidLocation
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "localtalent/bookings/9/location", payload: []byte(`{"lat":100,"lng":1}`)})
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Errorf("validation failure not logged at warn: %v", logs.All())
	}
}

func TestHandleMessage_DropsWhenSaturated(t *testing.T) {
	svc := &mockSubmitter{}
	sub, logs := newTestSubscriber(svc)
	for i := 0; i < cap(sub.slots); i++ {
		sub.slots <- struct{}{}
	}

	sub.handleMessage(nil, &fakeMQTTMessage{topic: "localtalent/bookings/3/location", payload: []byte(`{"lat":1,"lng":1}`)})
	if len(svc.calls) != 0 {
		t.Fatalf("submit called while saturated")
	}
	if logs.FilterMessage("ingest saturated, dropping location").Len() != 1 {
		t.Errorf("drop not logged: %v", logs.All())
	}

	<-sub.slots
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "localtalent/bookings/3/location", payload: []byte(`{"lat":1,"lng":1}`)})
	if len(svc.calls) != 1 {
		t.Errorf("got %d submits after a slot freed, want 1", len(svc.calls))
	}
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (f *fakeToken) Wait() bool   { return true }
func (f *fakeToken) Error() error { return f.err }

// fakeClient records subscriptions. Unused methods panic via the nil embed.
type fakeClient struct {
	mqtt.Client
	subscribed   []string
	unsubscribed []string
	subErr       error
}

func (f *fakeClient) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	f.subscribed = append(f.subscribed, topic)
	return &fakeToken{err: f.subErr}
}

func (f *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return &fakeToken{}
}

func TestOnConnect_ResubscribesAfterStart(t *testing.T) {
	sub, logs := newTestSubscriber(&mockSubmitter{})
	client := &fakeClient{}

	sub.OnConnect(client)
	if len(client.subscribed) != 0 {
		t.Fatalf("subscribed before Start: %v", client.subscribed)
	}

	if err := sub.Start(client); err != nil {
		t.Fatal(err)
	}
	sub.OnConnect(client)
	sub.OnConnect(client)
	if len(client.subscribed) != 3 || client.subscribed[2] != DefaultTopic {
		t.Fatalf("subscriptions = %v, want Start plus two reconnects", client.subscribed)
	}

	if err := sub.Stop(); err != nil {
		t.Fatal(err)
	}
	sub.OnConnect(client)
	if len(client.subscribed) != 3 {
		t.Errorf("resubscribed after Stop: %v", client.subscribed)
	}
	if len(client.unsubscribed) != 1 {
		t.Errorf("unsubscribed = %v", client.unsubscribed)
	}
	if logs.FilterMessage("mqtt resubscribed").Len() != 2 {
		t.Errorf("expected two resubscribe logs, got %v", logs.All())
	}
}

func TestOnConnect_LogsSubscribeFailure(t *testing.T) {
	sub, logs := newTestSubscriber(&mockSubmitter{})
	client := &fakeClient{}
	if err := sub.Start(client); err != nil {
		t.Fatal(err)
	}

	client.subErr = errors.New("not authorized")
	sub.OnConnect(client)
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() != 1 {
		t.Errorf("resubscribe failure not logged: %v", logs.All())
	}
}
