package domain

import "time"

// BookingID identifies a booking. Values are assigned by the store.
type BookingID int64

type Worker struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Skill      string `json:"skill"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
	Experience *int   `json:"experience"`
	IsWoman    bool   `json:"is_woman"`
}

// NewWorker is the registration payload accepted by /api/add-worker.
type NewWorker struct {
	Name       string `json:"name"`
	Skill      string `json:"skill"`
	City       string `json:"city"`
	Phone      string `json:"phone"`
	Experience string `json:"experience"`
	Category   string `json:"category"`
}

type Booking struct {
	ID            BookingID `json:"id"`
	WorkerID      int64     `json:"worker_id"`
	CustomerName  *string   `json:"customer_name"`
	CustomerPhone *string   `json:"customer_phone"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CurrentLat    *float64  `json:"current_lat"`
	CurrentLng    *float64  `json:"current_lng"`
	ETAMinutes    *int      `json:"eta_minutes"`
}

type NewBooking struct {
	WorkerID      int64   `json:"worker_id"`
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`
}

// HistoryPoint is one row of a booking's append-only location trail.
type HistoryPoint struct {
	BookingID  BookingID `json:"booking_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}
