package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestHub() (*Registry, *Hub) {
	reg := NewRegistry()
	return reg, NewHub(reg, zap.NewNop())
}

func nextSent(t *testing.T, p *fakePeer) map[string]any {
	t.Helper()
	select {
	case raw := <-p.sent:
		var msg map[string]any
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal sent message: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sent message")
		return nil
	}
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHub_AcceptRelease(t *testing.T) {
	reg, h := newTestHub()
	o := h.Accept(11, (&recorder{}).Send)

	if o.BookingID != 11 || o.ID == "" {
		t.Fatalf("unexpected observer %+v", o)
	}
	if got := len(reg.Snapshot(11)); got != 1 {
		t.Fatalf("got %d observers, want 1", got)
	}

	h.Release(o)
	h.Release(o)
	if reg.Len() != 0 {
		t.Fatalf("Len() = %d after release, want 0", reg.Len())
	}
}

func TestHub_ServeRegistersAndGreets(t *testing.T) {
	reg, h := newTestHub()
	p := newFakePeer()
	done := make(chan error, 1)

	go func() { done <- h.Serve(context.Background(), 21, p) }()

	msg := nextSent(t, p)
	if msg["type"] != "connected" || msg["bookingId"] != float64(21) {
		t.Fatalf("unexpected greeting %v", msg)
	}
	if got := len(reg.Snapshot(21)); got != 1 {
		t.Fatalf("got %d observers while active, want 1", got)
	}

	// inbound traffic is keep-alive only
	p.inbound <- []byte(`{"type":"ping"}`)
	p.inbound <- []byte("anything")
	close(p.inbound)

	if err := waitServe(t, done); !errors.Is(err, io.EOF) {
		t.Fatalf("Serve returned %v, want io.EOF", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("observer leaked after normal close")
	}
}

func TestHub_ServeDeregistersOnPeerError(t *testing.T) {
	reg, h := newTestHub()
	p := newFakePeer()
	done := make(chan error, 1)

	go func() { done <- h.Serve(context.Background(), 22, p) }()
	nextSent(t, p)

	_ = p.Close()

	if err := waitServe(t, done); !errors.Is(err, errPeerGone) {
		t.Fatalf("Serve returned %v, want errPeerGone", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("observer leaked after abrupt disconnect")
	}
}

func TestHub_ServeStopsOnCancel(t *testing.T) {
	reg, h := newTestHub()
	p := newFakePeer()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- h.Serve(ctx, 23, p) }()
	nextSent(t, p)

	cancel()

	if err := waitServe(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve returned %v, want context.Canceled", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("observer leaked after cancellation")
	}
}

func TestHub_ServeGreetingFailure(t *testing.T) {
	reg, h := newTestHub()
	p := newFakePeer()
	p.sendErr = errPeerGone

	err := h.Serve(context.Background(), 24, p)
	if !errors.Is(err, errPeerGone) {
		t.Fatalf("Serve returned %v, want errPeerGone", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("observer leaked after failed greeting")
	}
}

func TestHub_ServedObserverReceivesBroadcast(t *testing.T) {
	reg, h := newTestHub()
	d := NewDispatcher(reg, zap.NewNop())
	p := newFakePeer()
	done := make(chan error, 1)

	go func() { done <- h.Serve(context.Background(), 25, p) }()
	nextSent(t, p)

	res := d.Broadcast(25, testEvent(25))
	if res.Attempted != 1 || res.Failed != 0 {
		t.Fatalf("got %+v, want one successful delivery", res)
	}
	msg := nextSent(t, p)
	if msg["type"] != "location" {
		t.Fatalf("got %v, want a location message", msg)
	}

	close(p.inbound)
	waitServe(t, done)
}
