package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/logutil"
	"github.com/gkanna939017-lab/local-talent/internal/store"
)

type workerStore interface {
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	SearchWorkers(ctx context.Context, q string) ([]domain.Worker, error)
	GetWorker(ctx context.Context, id int64) (domain.Worker, error)
	InsertWorker(ctx context.Context, w domain.NewWorker) (domain.Worker, error)
	InsertBooking(ctx context.Context, b domain.NewBooking) (domain.Booking, error)
	FetchBooking(ctx context.Context, id domain.BookingID) (domain.Booking, error)
	LocationHistory(ctx context.Context, id domain.BookingID) ([]domain.HistoryPoint, error)
}

type locationSubmitter interface {
	SubmitLocation(ctx context.Context, id domain.BookingID, u domain.LocationUpdate) error
}

type handlers struct {
	repo    workerStore
	tracker locationSubmitter
}

// workerView adds the display form of experience ("5 years").
type workerView struct {
	domain.Worker
	Exp string `json:"exp"`
}

func viewWorker(w domain.Worker) workerView {
	v := workerView{Worker: w}
	if w.Experience != nil && *w.Experience > 0 {
		v.Exp = fmt.Sprintf("%d years", *w.Experience)
	}
	return v
}

func viewWorkers(ws []domain.Worker) []workerView {
	out := make([]workerView, len(ws))
	for i, w := range ws {
		out[i] = viewWorker(w)
	}
	return out
}

func (h *handlers) listWorkers(w http.ResponseWriter, r *http.Request) {
	ws, err := h.repo.ListWorkers(r.Context())
	if err != nil {
		internalError(w, r, "list workers", err)
		return
	}
	writeJSON(w, http.StatusOK, viewWorkers(ws))
}

func (h *handlers) searchWorkers(w http.ResponseWriter, r *http.Request) {
	ws, err := h.repo.SearchWorkers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		internalError(w, r, "search workers", err)
		return
	}
	writeJSON(w, http.StatusOK, viewWorkers(ws))
}

func (h *handlers) getWorker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wk, err := h.repo.GetWorker(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case err != nil:
		internalError(w, r, "get worker", err)
	default:
		writeJSON(w, http.StatusOK, viewWorker(wk))
	}
}

func (h *handlers) addWorker(w http.ResponseWriter, r *http.Request) {
	var req domain.NewWorker
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, skill, city, phone")
		return
	}
	wk, err := h.repo.InsertWorker(r.Context(), req)
	if err != nil {
		internalError(w, r, "insert worker", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "worker": viewWorker(wk)})
}

type bookingRequest struct {
	WorkerID      int64   `json:"worker_id"`
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`
}

func (h *handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.WorkerID <= 0 {
		writeError(w, http.StatusBadRequest, "Missing required field: worker_id")
		return
	}
	b, err := h.repo.InsertBooking(r.Context(), domain.NewBooking{
		WorkerID:      req.WorkerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	switch {
	case errors.Is(err, store.ErrWorkerNotFound):
		writeError(w, http.StatusBadRequest, "Worker not found")
	case err != nil:
		internalError(w, r, "insert booking", err)
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"booking": b})
	}
}

func (h *handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.repo.FetchBooking(r.Context(), domain.BookingID(id))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case err != nil:
		internalError(w, r, "fetch booking", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"booking": b})
	}
}

func (h *handlers) bookingHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pts, err := h.repo.LocationHistory(r.Context(), domain.BookingID(id))
	if err != nil {
		internalError(w, r, "location history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": pts})
}

// pathID parses the {id} URL parameter and writes a 400 when it is not a
// positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logutil.L(r.Context()).Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}
