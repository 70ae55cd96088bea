package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

var (
	bucketWorkers  = []byte("workers")
	bucketBookings = []byte("bookings")
	bucketHistory  = []byte("location_history")
)

var _ Repository = (*BoltRepository)(nil)

// BoltRepository keeps every record in a single bbolt file. It is meant for
// single-node deployments and local development.
type BoltRepository struct {
	db  *bolt.DB
	now func() time.Time
}

func OpenBolt(path string) (*BoltRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("bolt db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketWorkers, bucketBookings, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *BoltRepository) Backend() string { return BackendBolt }

func (r *BoltRepository) Ping(context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error { return nil })
}

func (r *BoltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *BoltRepository) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	return r.filterWorkers(func(domain.Worker) bool { return true })
}

func (r *BoltRepository) SearchWorkers(ctx context.Context, q string) ([]domain.Worker, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	switch {
	case q == "":
		return r.ListWorkers(ctx)
	case strings.Contains(q, "woman"):
		return r.filterWorkers(func(w domain.Worker) bool { return w.IsWoman })
	default:
		return r.filterWorkers(func(w domain.Worker) bool {
			return strings.Contains(strings.ToLower(w.Name), q) ||
				strings.Contains(strings.ToLower(w.Skill), q) ||
				strings.Contains(strings.ToLower(w.City), q)
		})
	}
}

func (r *BoltRepository) GetWorker(ctx context.Context, id int64) (domain.Worker, error) {
	var w domain.Worker
	err := r.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketWorkers), itob(uint64(id)), &w)
	})
	return w, err
}

func (r *BoltRepository) InsertWorker(ctx context.Context, nw domain.NewWorker) (domain.Worker, error) {
	w := domain.Worker{
		Name:       nw.Name,
		Skill:      nw.Skill,
		City:       nw.City,
		Phone:      nw.Phone,
		Experience: nw.ExperienceYears(),
		IsWoman:    nw.IsWoman(),
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWorkers)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		w.ID = int64(seq)
		return putJSON(b, itob(seq), w)
	})
	return w, err
}

func (r *BoltRepository) InsertBooking(ctx context.Context, nb domain.NewBooking) (domain.Booking, error) {
	now := r.now()
	bk := domain.Booking{
		WorkerID:      nb.WorkerID,
		CustomerName:  nb.CustomerName,
		CustomerPhone: nb.CustomerPhone,
		Status:        "pending",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		if nb.WorkerID <= 0 || tx.Bucket(bucketWorkers).Get(itob(uint64(nb.WorkerID))) == nil {
			return ErrWorkerNotFound
		}
		b := tx.Bucket(bucketBookings)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		bk.ID = domain.BookingID(seq)
		return putJSON(b, itob(seq), bk)
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return bk, nil
}

func (r *BoltRepository) FetchBooking(ctx context.Context, id domain.BookingID) (domain.Booking, error) {
	var bk domain.Booking
	err := r.db.View(func(tx *bolt.Tx) error {
		return getJSON(tx.Bucket(bucketBookings), itob(uint64(id)), &bk)
	})
	return bk, err
}

func (r *BoltRepository) PersistLocation(ctx context.Context, id domain.BookingID, lat, lng float64, status *string, etaMinutes *int) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBookings)
		key := itob(uint64(id))
		var bk domain.Booking
		if err := getJSON(b, key, &bk); err != nil {
			return err
		}
		bk.CurrentLat = &lat
		bk.CurrentLng = &lng
		if status != nil {
			bk.Status = *status
		}
		if etaMinutes != nil {
			eta := *etaMinutes
			bk.ETAMinutes = &eta
		}
		bk.UpdatedAt = r.now()
		return putJSON(b, key, bk)
	})
}

// AppendLocationHistory stores points under booking id + sequence keys so
// one booking's trail is a contiguous, ordered key range.
func (r *BoltRepository) AppendLocationHistory(ctx context.Context, id domain.BookingID, lat, lng float64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketBookings).Get(itob(uint64(id))) == nil {
			return ErrNotFound
		}
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		p := domain.HistoryPoint{BookingID: id, Lat: lat, Lng: lng, RecordedAt: r.now()}
		return putJSON(b, append(itob(uint64(id)), itob(seq)...), p)
	})
}

func (r *BoltRepository) LocationHistory(ctx context.Context, id domain.BookingID) ([]domain.HistoryPoint, error) {
	out := []domain.HistoryPoint{}
	prefix := itob(uint64(id))
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var p domain.HistoryPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func (r *BoltRepository) filterWorkers(keep func(domain.Worker) bool) ([]domain.Worker, error) {
	out := []domain.Worker{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWorkers).ForEach(func(_, v []byte) error {
			var w domain.Worker
			if err := json.Unmarshal(v, &w); err != nil {
				return err
			}
			if keep(w) {
				out = append(out, w)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByExperience(out)
	return out, nil
}

// sortByExperience orders most experienced first, unknown experience last.
func sortByExperience(ws []domain.Worker) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i].Experience, ws[j].Experience
		switch {
		case a == nil && b == nil:
			return ws[i].ID < ws[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return ws[i].ID < ws[j].ID
		}
	})
}

func getJSON(b *bolt.Bucket, key []byte, v any) error {
	raw := b.Get(key)
	if raw == nil {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, raw)
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
