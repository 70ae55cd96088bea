package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/logutil"
	"github.com/gkanna939017-lab/local-talent/internal/store"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

type locationRequest struct {
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	Status     *string  `json:"status"`
	ETAMinutes *int     `json:"eta_minutes"`
}

// updateLocation persists a position report and fans it out to the
// booking's live observers.
func (h *handlers) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, "Missing lat/lng")
		return
	}

	bookingID := domain.BookingID(id)
	err := h.tracker.SubmitLocation(r.Context(), bookingID, domain.LocationUpdate{
		Lat:        *req.Lat,
		Lng:        *req.Lng,
		Status:     req.Status,
		ETAMinutes: req.ETAMinutes,
	})
	if err != nil {
		status, msg := locationErrorStatus(err)
		if status == http.StatusInternalServerError {
			logutil.L(r.Context()).Error("submit location failed",
				zap.Int64("booking_id", id), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	resp := map[string]any{"success": true}
	if b, err := h.repo.FetchBooking(r.Context(), bookingID); err == nil {
		resp["booking"] = b
	}
	writeJSON(w, http.StatusOK, resp)
}

func locationErrorStatus(err error) (int, string) {
	var perr *tracking.PersistenceError
	switch {
	case errors.Is(err, domain.ErrInvalidLocation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Booking not found"
	case errors.As(err, &perr):
		return http.StatusInternalServerError, perr.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
