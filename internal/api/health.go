package api

import (
	"context"
	"net/http"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type amqpConn interface {
	IsClosed() bool
}

type mqttClient interface {
	IsConnected() bool
}

// HealthChecker reports storage and broker connectivity. Brokers left nil
// are not configured and are omitted from the report.
type HealthChecker struct {
	store    pinger
	backend  string
	amqpConn amqpConn
	mqtt     mqttClient
}

func NewHealthChecker(store pinger, backend string, amqpConn amqpConn, mqtt mqttClient) *HealthChecker {
	return &HealthChecker{store: store, backend: backend, amqpConn: amqpConn, mqtt: mqtt}
}

type depStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := map[string]depStatus{}

	if err := h.store.Ping(r.Context()); err != nil {
		deps[h.backend] = depStatus{Status: "down", Error: err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		deps[h.backend] = depStatus{Status: "up"}
	}

	if h.amqpConn != nil {
		if h.amqpConn.IsClosed() {
			deps["rabbitmq"] = depStatus{Status: "down", Error: "connection closed"}
			status = http.StatusServiceUnavailable
		} else {
			deps["rabbitmq"] = depStatus{Status: "up"}
		}
	}

	if h.mqtt != nil {
		if !h.mqtt.IsConnected() {
			deps["mqtt"] = depStatus{Status: "down", Error: "not connected"}
			status = http.StatusServiceUnavailable
		} else {
			deps["mqtt"] = depStatus{Status: "up"}
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeJSON(w, status, map[string]any{
		"status":       overall,
		"dependencies": deps,
	})
}
