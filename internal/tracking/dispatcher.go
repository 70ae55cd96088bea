package tracking

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/logutil"
	"github.com/gkanna939017-lab/local-talent/internal/protocol"
)

// Delivery summarizes one broadcast. It is informational only.
type Delivery struct {
	Attempted int
	Failed    int
}

type Stats struct {
	Broadcasts uint64 `json:"broadcasts"`
	Delivered  uint64 `json:"delivered"`
	Failed     uint64 `json:"failed"`
}

// Dispatcher fans location events out to the observers of a booking.
type Dispatcher struct {
	reg    *Registry
	logger *zap.Logger

	broadcasts atomic.Uint64
	delivered  atomic.Uint64
	failed     atomic.Uint64
}

func NewDispatcher(reg *Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.L()
	}
	return &Dispatcher{reg: reg, logger: logger.Named("dispatcher")}
}

// Broadcast sends ev to every observer registered for id when the call
// starts. A failed send is logged and skipped; the observer stays
// registered until its own connection notices the disconnect.
func (d *Dispatcher) Broadcast(id domain.BookingID, ev domain.LocationEvent) Delivery {
	observers := d.reg.Snapshot(id)
	d.broadcasts.Add(1)
	if len(observers) == 0 {
		return Delivery{}
	}

	payload, err := protocol.EncodeLocation(ev)
	if err != nil {
		d.logger.Error("encode location event", zap.Int64("booking_id", int64(id)), zap.Error(err))
		return Delivery{}
	}

	var res Delivery
	for _, o := range observers {
		res.Attempted++
		if err := o.Send(payload); err != nil {
			res.Failed++
			d.logger.Debug("delivery failed",
				zap.Int64("booking_id", int64(id)),
				zap.String("observer_id", o.ID),
				zap.Error(err),
			)
		}
	}

	d.delivered.Add(uint64(res.Attempted - res.Failed))
	d.failed.Add(uint64(res.Failed))
	d.logger.Debug("broadcast location", logutil.Values(
		zap.Int64("booking_id", int64(id)),
		zap.Int("observers", len(observers)),
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", res.Failed),
	))
	return res
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Broadcasts: d.broadcasts.Load(),
		Delivered:  d.delivered.Load(),
		Failed:     d.failed.Load(),
	}
}
