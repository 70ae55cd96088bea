package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

const (
	workerColumns  = `id, name, skill, city, experience, phone, is_woman`
	bookingColumns = `id, worker_id, customer_name, customer_phone, status, created_at, updated_at, current_lat, current_lng, eta_minutes`

	pgForeignKeyViolation = "23503"
)

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres opens a lib/pq pool for dsn and checks it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return NewPostgresRepository(db), nil
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DB exposes the pool for migrations and schema checks.
func (r *PostgresRepository) DB() *sql.DB { return r.db }

func (r *PostgresRepository) Backend() string { return BackendPostgres }

func (r *PostgresRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *PostgresRepository) Close() error { return r.db.Close() }

func (r *PostgresRepository) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	return r.queryWorkers(ctx,
		`SELECT `+workerColumns+` FROM workers ORDER BY experience DESC NULLS LAST, id`)
}

// SearchWorkers matches q against name, skill and city. A query mentioning
// "woman" lists women workers instead; an empty query lists everyone.
func (r *PostgresRepository) SearchWorkers(ctx context.Context, q string) ([]domain.Worker, error) {
	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return r.ListWorkers(ctx)
	case strings.Contains(strings.ToLower(q), "woman"):
		return r.queryWorkers(ctx,
			`SELECT `+workerColumns+` FROM workers WHERE is_woman = true ORDER BY experience DESC NULLS LAST, id`)
	default:
		return r.queryWorkers(ctx,
			`SELECT `+workerColumns+` FROM workers WHERE name ILIKE $1 OR skill ILIKE $1 OR city ILIKE $1 ORDER BY experience DESC NULLS LAST, id`,
			"%"+q+"%")
	}
}

func (r *PostgresRepository) GetWorker(ctx context.Context, id int64) (domain.Worker, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id)
	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Worker{}, ErrNotFound
	}
	return w, err
}

func (r *PostgresRepository) InsertWorker(ctx context.Context, nw domain.NewWorker) (domain.Worker, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO workers (name, skill, city, experience, phone, is_woman) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+workerColumns,
		nw.Name, nw.Skill, nw.City, nw.ExperienceYears(), nw.Phone, nw.IsWoman(),
	)
	w, err := scanWorker(row)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("insert worker: %w", err)
	}
	return w, nil
}

func (r *PostgresRepository) InsertBooking(ctx context.Context, nb domain.NewBooking) (domain.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO bookings (worker_id, customer_name, customer_phone) VALUES ($1, $2, $3) RETURNING `+bookingColumns,
		nb.WorkerID, nb.CustomerName, nb.CustomerPhone,
	)
	b, err := scanBooking(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Booking{}, ErrWorkerNotFound
		}
		return domain.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) FetchBooking(ctx context.Context, id domain.BookingID) (domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, int64(id))
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, ErrNotFound
	}
	return b, err
}

// PersistLocation stores the current position. Status and ETA keep their
// previous values when nil.
func (r *PostgresRepository) PersistLocation(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, etaMinutes *int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET current_lat = $1, current_lng = $2, updated_at = NOW(), status = COALESCE($3, status), eta_minutes = COALESCE($4, eta_minutes) WHERE id = $5`,
		lat, lng, status, etaMinutes, int64(id),
	)
	if err != nil {
		return fmt.Errorf("update booking location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking location: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AppendLocationHistory(ctx context.Context, id domain.BookingID, lat, lng float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO booking_location_history (booking_id, lat, lng) VALUES ($1, $2, $3)`,
		int64(id), lat, lng,
	)
	if err != nil {
		return fmt.Errorf("insert location history: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LocationHistory(ctx context.Context, id domain.BookingID) ([]domain.HistoryPoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT booking_id, lat, lng, recorded_at FROM booking_location_history WHERE booking_id = $1 ORDER BY recorded_at ASC, id ASC`,
		int64(id),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.HistoryPoint{}
	for rows.Next() {
		var p domain.HistoryPoint
		if err := rows.Scan(&p.BookingID, &p.Lat, &p.Lng, &p.RecordedAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) queryWorkers(ctx context.Context, query string, args ...any) ([]domain.Worker, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// isForeignKeyViolation accepts errors from both lib/pq and the pgx stdlib
// driver.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgForeignKeyViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorker(s scanner) (domain.Worker, error) {
	var w domain.Worker
	var exp sql.NullInt64
	if err := s.Scan(&w.ID, &w.Name, &w.Skill, &w.City, &exp, &w.Phone, &w.IsWoman); err != nil {
		return domain.Worker{}, err
	}
	if exp.Valid {
		n := int(exp.Int64)
		w.Experience = &n
	}
	return w, nil
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b           domain.Booking
		name, phone sql.NullString
		lat, lng    sql.NullFloat64
		eta         sql.NullInt64
	)
	if err := s.Scan(&b.ID, &b.WorkerID, &name, &phone, &b.Status, &b.CreatedAt, &b.UpdatedAt, &lat, &lng, &eta); err != nil {
		return domain.Booking{}, err
	}
	if name.Valid {
		b.CustomerName = &name.String
	}
	if phone.Valid {
		b.CustomerPhone = &phone.String
	}
	if lat.Valid {
		b.CurrentLat = &lat.Float64
	}
	if lng.Valid {
		b.CurrentLng = &lng.Float64
	}
	if eta.Valid {
		n := int(eta.Int64)
		b.ETAMinutes = &n
	}
	return b, nil
}
