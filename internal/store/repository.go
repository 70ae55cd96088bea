package store

import (
	"context"
	"errors"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrWorkerNotFound = errors.New("worker not found")
)

// Repository is the record store behind the HTTP layer and the tracking
// ingress.
type Repository interface {
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	SearchWorkers(ctx context.Context, q string) ([]domain.Worker, error)
	GetWorker(ctx context.Context, id int64) (domain.Worker, error)
	InsertWorker(ctx context.Context, w domain.NewWorker) (domain.Worker, error)

	InsertBooking(ctx context.Context, b domain.NewBooking) (domain.Booking, error)
	FetchBooking(ctx context.Context, id domain.BookingID) (domain.Booking, error)

	PersistLocation(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, etaMinutes *int) error
	AppendLocationHistory(ctx context.Context, id domain.BookingID, lat, lng float64) error
	LocationHistory(ctx context.Context, id domain.BookingID) ([]domain.HistoryPoint, error)

	Backend() string
	Ping(ctx context.Context) error
	Close() error
}

var _ tracking.LocationStore = (Repository)(nil)
