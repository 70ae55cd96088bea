package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

// SendFunc delivers one serialized message to a peer. It abstracts over the
// websocket connection so this package never imports the transport.
type SendFunc func(payload []byte) error

// Observer is one live connection watching a single booking. The booking is
// fixed when the observer is created.
type Observer struct {
	ID        string
	BookingID domain.BookingID
	send      SendFunc
}

func NewObserver(id domain.BookingID, send SendFunc) *Observer {
	return &Observer{ID: uuid.NewString(), BookingID: id, send: send}
}

func (o *Observer) Send(payload []byte) error {
	return o.send(payload)
}

// LocationStore is the persistence collaborator consulted by SubmitLocation.
type LocationStore interface {
	PersistLocation(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, etaMinutes *int) error
	AppendLocationHistory(ctx context.Context, id domain.BookingID, lat, lng float64) error
}

// EventPublisher forwards accepted location events to downstream consumers.
type EventPublisher interface {
	PublishLocation(ctx context.Context, ev domain.LocationEvent) error
}

// PersistenceError reports that the store rejected an update. The broadcast
// for that update did not run.
type PersistenceError struct {
	Op        string
	BookingID domain.BookingID
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for booking %d: %v", e.Op, e.BookingID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
