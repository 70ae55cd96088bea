package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/gkanna939017-lab/local-talent/internal/api"
	"github.com/gkanna939017-lab/local-talent/internal/config"
	"github.com/gkanna939017-lab/local-talent/internal/events"
	"github.com/gkanna939017-lab/local-talent/internal/ingest"
	"github.com/gkanna939017-lab/local-talent/internal/store"
	"github.com/gkanna939017-lab/local-talent/internal/tracking"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	baseCtx    context.Context
	cancelBase context.CancelFunc

	Repo     store.Repository
	Registry *tracking.Registry
	Tracker  *tracking.Service

	amqpConn   *amqp.Connection
	publisher  *events.LocationPublisher
	mqttClient mqtt.Client
	subscriber *ingest.LocationSubscriber
}

// NewServer opens storage and the optional brokers and wires the tracking
// core behind the HTTP router. Broker failures are fatal only when the
// broker is configured.
func NewServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.L()
	}
	s := &Server{logger: logger}

	repo, err := openRepository(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	s.Repo = repo

	reg := tracking.NewRegistry()
	disp := tracking.NewDispatcher(reg, logger)
	opts := []tracking.Option{tracking.WithLogger(logger)}

	var amqpHealth interface{ IsClosed() bool }
	if cfg.RabbitMQ.URL != "" {
		conn, err := events.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			s.close()
			return nil, err
		}
		s.amqpConn = conn
		amqpHealth = conn
		pub, err := events.NewLocationPublisher(conn, cfg.RabbitMQ.Exchange)
		if err != nil {
			s.close()
			return nil, err
		}
		s.publisher = pub
		opts = append(opts, tracking.WithPublisher(pub))
		logger.Info("publishing location events", zap.String("exchange", cfg.RabbitMQ.Exchange))
	}

	s.Registry = reg
	s.Tracker = tracking.NewService(repo, disp, opts...)

	var mqttHealth interface{ IsConnected() bool }
	if cfg.MQTT.Broker != "" {
		sub := ingest.NewLocationSubscriber(cfg.MQTT.Topic, s.Tracker, logger)
		client, err := ingest.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, sub.OnConnect)
		if err != nil {
			s.close()
			return nil, err
		}
		s.mqttClient = client
		mqttHealth = client
		s.subscriber = sub
		if err := sub.Start(client); err != nil {
			s.close()
			return nil, fmt.Errorf("mqtt subscribe %s: %w", cfg.MQTT.Topic, err)
		}
		logger.Info("subscribed to device locations", zap.String("topic", cfg.MQTT.Topic))
	}

	handler := api.SetupRoutes(api.Deps{
		Repo:       repo,
		Tracker:    s.Tracker,
		Hub:        tracking.NewHub(reg, logger),
		Registry:   reg,
		Dispatcher: disp,
		Health:     api.NewHealthChecker(repo, repo.Backend(), amqpHealth, mqttHealth),
		WS: api.WSConfig{
			WriteTimeout: cfg.Tracking.WriteTimeout.Duration,
			PongWait:     cfg.Tracking.PongWait.Duration,
			PingInterval: cfg.Tracking.PingInterval.Duration,
		},
		StaticDir: cfg.HTTP.StaticDir,
		Logger:    logger,
	})

	// Tracking connections are hijacked and outlive Shutdown, so they are
	// ended by cancelling the base context instead.
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	return s, nil
}

func openRepository(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (store.Repository, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		repo, err := store.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		logger.Info("using bolt store", zap.String("path", cfg.BoltPath))
		return repo, nil

	case config.BackendPostgres:
		repo, err := store.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := store.Migrate(ctx, repo.DB()); err != nil {
				_ = repo.Close()
				return nil, err
			}
		}
		schema, err := store.LoadSchema(ctx, repo.DB(), nil)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		if err := schema.RequireColumns("bookings", store.BookingLocationColumns...); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("bookings table cannot store locations: %w", err)
		}
		logger.Info("using postgres store", zap.Strings("tables", schema.Tables()))
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves HTTP until SIGINT/SIGTERM or a listener failure, then drains
// for up to five seconds.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		s.logger.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		s.logger.Error("http server error", zap.Error(runErr))
	}

	s.cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return errors.Join(runErr, err)
}

func (s *Server) close() {
	if s.subscriber != nil {
		if err := s.subscriber.Stop(); err != nil {
			s.logger.Warn("mqtt unsubscribe", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect(250)
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.amqpConn != nil {
		_ = s.amqpConn.Close()
	}
	if s.Repo != nil {
		if err := s.Repo.Close(); err != nil {
			s.logger.Warn("close store", zap.Error(err))
		}
	}
}
