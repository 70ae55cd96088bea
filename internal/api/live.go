package api

import (
	"net/http"

	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

// liveHandler reports which bookings have live observers.
type liveHandler struct {
	reg        *tracking.Registry
	dispatcher *tracking.Dispatcher
}

type liveView struct {
	Observers int                    `json:"observers"`
	Bookings  []tracking.BookingView `json:"bookings"`
	Delivery  tracking.Stats         `json:"delivery"`
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v := liveView{Observers: h.reg.Len(), Bookings: h.reg.SnapshotView()}
	if h.dispatcher != nil {
		v.Delivery = h.dispatcher.Stats()
	}
	writeJSON(w, http.StatusOK, v)
}
