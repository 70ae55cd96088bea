package tracking

import (
	"context"

	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

type Option func(*Service)

// WithPublisher forwards every accepted event to p after the broadcast.
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.publisher = p } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// Service is the entry point for new location reports.
type Service struct {
	store      LocationStore
	dispatcher *Dispatcher
	publisher  EventPublisher
	logger     *zap.Logger
}

func NewService(store LocationStore, dispatcher *Dispatcher, opts ...Option) *Service {
	s := &Service{store: store, dispatcher: dispatcher}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = zap.L()
	}
	s.logger = s.logger.Named("ingress")
	return s
}

// SubmitLocation persists u for booking id and then fans it out to the
// booking's observers. Only validation and persistence errors are returned;
// once the store has accepted the update the call succeeds regardless of
// how many deliveries went through.
func (s *Service) SubmitLocation(ctx context.Context, id domain.BookingID, u domain.LocationUpdate) error {
	ev, err := domain.NewLocationEvent(id, u)
	if err != nil {
		return err
	}

	if err := s.store.PersistLocation(ctx, id, ev.Latitude, ev.Longitude, ev.Status, ev.ETAMinutes); err != nil {
		return &PersistenceError{Op: "persist location", BookingID: id, Err: err}
	}
	if err := s.store.AppendLocationHistory(ctx, id, ev.Latitude, ev.Longitude); err != nil {
		return &PersistenceError{Op: "append location history", BookingID: id, Err: err}
	}

	s.dispatcher.Broadcast(id, ev)

	if s.publisher != nil {
		if err := s.publisher.PublishLocation(ctx, ev); err != nil {
			s.logger.Warn("publish location event",
				zap.Int64("booking_id", int64(id)),
				zap.Error(err),
			)
		}
	}
	return nil
}
