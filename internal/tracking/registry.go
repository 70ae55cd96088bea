package tracking

import (
	"sort"
	"sync"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
)

// Registry maps each booking to the observers currently watching it.
// It never closes an observer; that is the job of the connection that
// created it.
type Registry struct {
	mu     sync.RWMutex
	data   map[domain.BookingID]map[*Observer]struct{}
	owners map[*Observer]domain.BookingID
}

func NewRegistry() *Registry {
	return &Registry{
		data:   make(map[domain.BookingID]map[*Observer]struct{}),
		owners: make(map[*Observer]domain.BookingID),
	}
}

// Subscribe adds o to the set for id. Subscribing twice is a no-op. An
// observer registered under another booking is moved, so it never sits in
// two sets at once.
func (r *Registry) Subscribe(id domain.BookingID, o *Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owners[o]; ok {
		if prev == id {
			return
		}
		r.removeLocked(prev, o)
	}

	set, ok := r.data[id]
	if !ok {
		set = make(map[*Observer]struct{})
		r.data[id] = set
	}
	set[o] = struct{}{}
	r.owners[o] = id
}

// Unsubscribe removes o from the set for id if it is there.
func (r *Registry) Unsubscribe(id domain.BookingID, o *Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id, o)
}

func (r *Registry) removeLocked(id domain.BookingID, o *Observer) {
	set, ok := r.data[id]
	if !ok {
		return
	}
	if _, ok := set[o]; !ok {
		return
	}
	delete(set, o)
	delete(r.owners, o)
	if len(set) == 0 {
		delete(r.data, id)
	}
}

// Snapshot returns a copy of the observers for id at this instant. The
// caller may iterate it while the registry keeps changing.
func (r *Registry) Snapshot(id domain.BookingID) []*Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.data[id]
	out := make([]*Observer, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	return out
}

// Len reports the number of registered observers across all bookings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

type BookingView struct {
	BookingID domain.BookingID `json:"bookingId"`
	Observers int              `json:"observers"`
}

// SnapshotView summarizes the registry for diagnostics, ordered by booking.
func (r *Registry) SnapshotView() []BookingView {
	r.mu.RLock()
	out := make([]BookingView, 0, len(r.data))
	for id, set := range r.data {
		out = append(out, BookingView{BookingID: id, Observers: len(set)})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out
}
