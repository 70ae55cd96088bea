package tracking

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/protocol"
)

// Peer is the transport end of one tracking connection.
type Peer interface {
	Send(payload []byte) error
	// Receive blocks until an inbound message arrives or the peer is gone.
	Receive() error
	Close() error
}

// Hub runs observer connections against a Registry.
type Hub struct {
	reg    *Registry
	logger *zap.Logger
}

func NewHub(reg *Registry, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.L()
	}
	return &Hub{reg: reg, logger: logger.Named("hub")}
}

// Accept registers a new observer for id that delivers through send.
func (h *Hub) Accept(id domain.BookingID, send SendFunc) *Observer {
	o := NewObserver(id, send)
	h.reg.Subscribe(id, o)
	h.logger.Debug("observer joined",
		zap.Int64("booking_id", int64(id)),
		zap.String("observer_id", o.ID),
	)
	return o
}

// Release deregisters o. It is safe to call more than once.
func (h *Hub) Release(o *Observer) {
	h.reg.Unsubscribe(o.BookingID, o)
	h.logger.Debug("observer left",
		zap.Int64("booking_id", int64(o.BookingID)),
		zap.String("observer_id", o.ID),
	)
}

// Serve keeps p registered for id until the peer disconnects, errors, or
// ctx is cancelled. Inbound messages are read and discarded. Whatever ends
// the loop, the observer is released exactly once on the way out.
func (h *Hub) Serve(ctx context.Context, id domain.BookingID, p Peer) error {
	o := h.Accept(id, p.Send)
	defer h.Release(o)

	stop := context.AfterFunc(ctx, func() { _ = p.Close() })
	defer stop()

	greeting, err := json.Marshal(protocol.NewConnected(id))
	if err != nil {
		return err
	}
	if err := p.Send(greeting); err != nil {
		return err
	}

	for {
		if err := p.Receive(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}
