// Command trackwatch opens the live tracking channel of one booking and
// prints every message it receives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/logutil"
	"github.com/gkanna939017-lab/local-talent/internal/protocol"
)

func main() {
	base := flag.String("url", "http://localhost:5000", "server base URL")
	booking := flag.Int64("booking", 0, "booking id to watch")
	post := flag.Bool("post", false, "submit one sample update after connecting")
	lat := flag.Float64("lat", 17.385, "latitude for -post")
	lng := flag.Float64("lng", 78.4867, "longitude for -post")
	status := flag.String("status", "enroute", "status for -post")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := logutil.New(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if *booking <= 0 {
		logger.Fatal("please provide a booking id via -booking")
	}

	wsURL, err := trackingURL(*base, *booking)
	if err != nil {
		logger.Fatal("bad -url", zap.Error(err))
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatal("dial", zap.String("url", wsURL), zap.Error(err))
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logger.Info("connection closed", zap.Error(err))
				return
			}
			msg, err := protocol.DecodeMessage(data)
			if err != nil {
				logger.Warn("undecodable message", zap.ByteString("raw", data), zap.Error(err))
				continue
			}
			fmt.Printf("%s %-9s %s\n", time.Now().Format(time.TimeOnly), msg.Type, data)
		}
	}()

	if *post {
		if err := postSample(*base, *booking, *lat, *lng, *status); err != nil {
			logger.Error("post sample update", zap.Error(err))
		}
	}

	select {
	case <-done:
	case <-interrupt:
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func trackingURL(base string, booking int64) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = fmt.Sprintf("%s/ws/bookings/%d", strings.TrimRight(u.Path, "/"), booking)
	return u.String(), nil
}

func postSample(base string, booking int64, lat, lng float64, status string) error {
	body, err := json.Marshal(map[string]any{"lat": lat, "lng": lng, "status": status})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/bookings/%d/update-location", strings.TrimRight(base, "/"), booking)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	return nil
}
