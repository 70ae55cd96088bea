package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewLocationEvent_CopiesOptionalFields(t *testing.T) {
	status := "enroute"
	eta := 10
	u := LocationUpdate{Lat: 17, Lng: 80, Status: &status, ETAMinutes: &eta}

	ev, err := NewLocationEvent(42, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status = "arrived"
	eta = 0
	if *ev.Status != "enroute" || *ev.ETAMinutes != 10 {
		t.Fatalf("event shares memory with the update: %q %d", *ev.Status, *ev.ETAMinutes)
	}
	if ev.BookingID != 42 || ev.Latitude != 17 || ev.Longitude != 80 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestNewLocationEvent_Bounds(t *testing.T) {
	cases := []struct {
		name string
		id   BookingID
		u    LocationUpdate
		ok   bool
	}{
		{"edges", 1, LocationUpdate{Lat: -90, Lng: 180}, true},
		{"zero booking", 0, LocationUpdate{}, false},
		{"negative booking", -4, LocationUpdate{}, false},
		{"lat above", 1, LocationUpdate{Lat: 90.0001}, false},
		{"lng below", 1, LocationUpdate{Lng: -180.0001}, false},
		{"nan lat", 1, LocationUpdate{Lat: math.NaN()}, false},
		{"inf lng", 1, LocationUpdate{Lng: math.Inf(1)}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewLocationEvent(c.id, c.u)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && !errors.Is(err, ErrInvalidLocation) {
				t.Fatalf("got %v, want ErrInvalidLocation", err)
			}
		})
	}
}
