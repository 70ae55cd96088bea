package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidLocation is returned for malformed coordinates or a missing booking id.
var ErrInvalidLocation = errors.New("invalid location")

// LocationUpdate is the caller-supplied part of a location report.
type LocationUpdate struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Status     *string `json:"status,omitempty"`
	ETAMinutes *int    `json:"eta_minutes,omitempty"`
}

// LocationEvent is built once per update and shared read-only by every
// delivery of that update. Nothing mutates it after NewLocationEvent.
type LocationEvent struct {
	BookingID  BookingID
	Latitude   float64
	Longitude  float64
	Status     *string
	ETAMinutes *int
}

// NewLocationEvent validates u and copies it into an event for id. The
// optional fields are copied so later writes to u cannot leak into the event.
func NewLocationEvent(id BookingID, u LocationUpdate) (LocationEvent, error) {
	if err := validate(id, u); err != nil {
		return LocationEvent{}, err
	}
	ev := LocationEvent{BookingID: id, Latitude: u.Lat, Longitude: u.Lng}
	if u.Status != nil {
		s := *u.Status
		ev.Status = &s
	}
	if u.ETAMinutes != nil {
		n := *u.ETAMinutes
		ev.ETAMinutes = &n
	}
	return ev, nil
}

func validate(id BookingID, u LocationUpdate) error {
	if id <= 0 {
		return fmt.Errorf("%w: booking id: required", ErrInvalidLocation)
	}
	if math.IsNaN(u.Lat) || u.Lat < -90 || u.Lat > 90 {
		return fmt.Errorf("%w: lat: must be between -90 and 90", ErrInvalidLocation)
	}
	if math.IsNaN(u.Lng) || u.Lng < -180 || u.Lng > 180 {
		return fmt.Errorf("%w: lng: must be between -180 and 180", ErrInvalidLocation)
	}
	if u.ETAMinutes != nil && *u.ETAMinutes < 0 {
		return fmt.Errorf("%w: eta_minutes: must not be negative", ErrInvalidLocation)
	}
	return nil
}
