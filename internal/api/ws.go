package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/domain"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

// WSConfig bounds how long a tracking connection may stall.
type WSConfig struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
}

func (c WSConfig) withDefaults() WSConfig {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	return c
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler serves /ws/bookings/{id}: one connection observes one booking.
type WSHandler struct {
	Hub    *tracking.Hub
	Config WSConfig
	logger *zap.Logger
}

func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade error", zap.Error(err))
		return
	}

	p := newWSPeer(conn, h.Config)
	defer p.Close()

	err = h.Hub.Serve(r.Context(), domain.BookingID(id), p)
	if err != nil && !isNormalClose(err) {
		h.logger.Debug("tracking connection ended",
			zap.Int64("booking_id", id), zap.Error(err))
	}
}

// wsPeer adapts a gorilla connection to tracking.Peer. Gorilla allows one
// concurrent writer, so every write goes through mu.
type wsPeer struct {
	conn *websocket.Conn
	cfg  WSConfig

	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newWSPeer(conn *websocket.Conn, cfg WSConfig) *wsPeer {
	p := &wsPeer{conn: conn, cfg: cfg, done: make(chan struct{})}
	_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})
	go p.pingLoop()
	return p
}

func (p *wsPeer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

// Receive discards one inbound message.
func (p *wsPeer) Receive() error {
	_, _, err := p.conn.ReadMessage()
	return err
}

func (p *wsPeer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		p.mu.Unlock()
		err = p.conn.Close()
	})
	return err
}

func (p *wsPeer) pingLoop() {
	t := time.NewTicker(p.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-t.C:
			p.mu.Lock()
			err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(p.cfg.WriteTimeout))
			p.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent)
}
