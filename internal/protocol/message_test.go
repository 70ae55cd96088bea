package protocol

import (
	"encoding/json"
	"testing"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

func TestEncodeLocation_OmitsAbsentFields(t *testing.T) {
	b, err := EncodeLocation(domain.LocationEvent{BookingID: 42, Latitude: 17.1, Longitude: 80.1})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"location","bookingId":42,"lat":17.1,"lng":80.1}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestEncodeLocation_AllFields(t *testing.T) {
	status, eta := "enroute", 10
	b, err := EncodeLocation(domain.LocationEvent{
		BookingID: 42, Latitude: 17, Longitude: 80, Status: &status, ETAMinutes: &eta,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"location","bookingId":42,"lat":17,"lng":80,"status":"enroute","etaMinutes":10}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestConnectedRoundTrip(t *testing.T) {
	b, _ := json.Marshal(NewConnected(5))
	msg, err := DecodeMessage(b)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeConnected {
		t.Fatalf("got type %q", msg.Type)
	}
}
