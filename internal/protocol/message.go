package protocol

import (
	"encoding/json"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

const (
	TypeConnected = "connected"
	TypeLocation  = "location"
)

type Message struct {
	Type string `json:"type"`
}

// Connected greets an observer once it is registered for a booking.
type Connected struct {
	Message
	BookingID domain.BookingID `json:"bookingId"`
}

type Location struct {
	Message
	BookingID  domain.BookingID `json:"bookingId"`
	Lat        float64          `json:"lat"`
	Lng        float64          `json:"lng"`
	Status     *string          `json:"status,omitempty"`
	ETAMinutes *int             `json:"etaMinutes,omitempty"`
}

func NewConnected(id domain.BookingID) Connected {
	return Connected{Message: Message{Type: TypeConnected}, BookingID: id}
}

func NewLocation(ev domain.LocationEvent) Location {
	return Location{
		Message:    Message{Type: TypeLocation},
		BookingID:  ev.BookingID,
		Lat:        ev.Latitude,
		Lng:        ev.Longitude,
		Status:     ev.Status,
		ETAMinutes: ev.ETAMinutes,
	}
}

// EncodeLocation renders the wire form of ev. It is called once per
// broadcast; every observer receives the same bytes.
func EncodeLocation(ev domain.LocationEvent) ([]byte, error) {
	return json.Marshal(NewLocation(ev))
}

func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}
