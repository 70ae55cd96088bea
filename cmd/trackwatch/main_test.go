package main

import "testing"

func TestTrackingURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5000":         "ws://localhost:5000/ws/bookings/42",
		"https://talent.example.com/":   "wss://talent.example.com/ws/bookings/42",
		"http://proxy:8080/localtalent": "ws://proxy:8080/localtalent/ws/bookings/42",
	}
	for in, want := range cases {
		got, err := trackingURL(in, 42)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if got != want {
			t.Errorf("trackingURL(%q) = %q, want %q", in, got, want)
		}
	}
}
