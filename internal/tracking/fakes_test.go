package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

var errPeerGone = errors.New("peer gone")

// recorder collects every payload sent to it.
type recorder struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (r *recorder) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, append([]byte(nil), p...))
	return nil
}

func (r *recorder) Messages(t *testing.T) []map[string]any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, 0, len(r.msgs))
	for _, m := range r.msgs {
		var v map[string]any
		if err := json.Unmarshal(m, &v); err != nil {
			t.Fatalf("unmarshal %s: %v", m, err)
		}
		out = append(out, v)
	}
	return out
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// fakePeer stands in for a websocket connection.
type fakePeer struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	sent      chan []byte
	sendErr   error
}

func newFakePeer() *fakePeer {
	return &fakePeer{
		inbound: make(chan []byte),
		closed:  make(chan struct{}),
		sent:    make(chan []byte, 16),
	}
}

func (p *fakePeer) Send(payload []byte) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	select {
	case <-p.closed:
		return errPeerGone
	default:
	}
	p.sent <- payload
	return nil
}

func (p *fakePeer) Receive() error {
	select {
	case _, ok := <-p.inbound:
		if !ok {
			return io.EOF
		}
		return nil
	case <-p.closed:
		return errPeerGone
	}
}

func (p *fakePeer) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

type mockStore struct {
	persistFn func(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, eta *int) error
	historyFn func(ctx context.Context, id domain.BookingID, lat, lng float64) error
}

func (m *mockStore) PersistLocation(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, eta *int) error {
	if m.persistFn == nil {
		return nil
	}
	return m.persistFn(ctx, id, lat, lng, status, eta)
}

func (m *mockStore) AppendLocationHistory(ctx context.Context, id domain.BookingID, lat, lng float64) error {
	if m.historyFn == nil {
		return nil
	}
	return m.historyFn(ctx, id, lat, lng)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.LocationEvent
	err    error
}

func (m *mockPublisher) PublishLocation(_ context.Context, ev domain.LocationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
