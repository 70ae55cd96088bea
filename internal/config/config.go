package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

type Config struct {
	HTTP     HTTPConfig     `toml:"http"`
	Storage  StorageConfig  `toml:"storage"`
	Tracking TrackingConfig `toml:"tracking"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	MQTT     MQTTConfig     `toml:"mqtt"`
	Logging  LoggingConfig  `toml:"logging"`
}

type HTTPConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

type StorageConfig struct {
	Backend     string `toml:"backend"`
	PostgresDSN string `toml:"postgres_dsn"`
	BoltPath    string `toml:"bolt_path"`
	Migrate     bool   `toml:"migrate"`
}

// TrackingConfig bounds the websocket tracking channel.
type TrackingConfig struct {
	WriteTimeout Duration `toml:"write_timeout"`
	PongWait     Duration `toml:"pong_wait"`
	PingInterval Duration `toml:"ping_interval"`
}

// RabbitMQConfig is optional. An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
}

// MQTTConfig is optional. An empty broker disables device ingress.
type MQTTConfig struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Topic    string `toml:"topic"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration reads TOML strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":5000"},
		Storage: StorageConfig{
			Backend:     BackendPostgres,
			PostgresDSN: pgDSN(),
			BoltPath:    "data/localtalent.db",
			Migrate:     true,
		},
		Tracking: TrackingConfig{
			WriteTimeout: Duration{10 * time.Second},
			PongWait:     Duration{60 * time.Second},
			PingInterval: Duration{54 * time.Second},
		},
		RabbitMQ: RabbitMQConfig{Exchange: "localtalent.events"},
		MQTT: MQTTConfig{
			ClientID: "localtalent-server",
			Topic:    "localtalent/bookings/+/location",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load layers defaults, then the TOML file at path (skipped when path is
// empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.StaticDir = getEnv("STATIC_DIR", c.HTTP.StaticDir)
	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	if anyEnv("PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE") {
		c.Storage.PostgresDSN = pgDSN()
	}
	c.Storage.PostgresDSN = getEnv("DATABASE_URL", c.Storage.PostgresDSN)
	c.Storage.BoltPath = getEnv("BOLT_PATH", c.Storage.BoltPath)
	if v, err := strconv.ParseBool(os.Getenv("DB_MIGRATE")); err == nil {
		c.Storage.Migrate = v
	}
	c.RabbitMQ.URL = getEnv("RABBITMQ_URL", c.RabbitMQ.URL)
	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
		}
	case BackendBolt:
		if strings.TrimSpace(c.Storage.BoltPath) == "" {
			errs = append(errs, errors.New("storage.bolt_path is required for the bolt backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	for name, d := range map[string]Duration{
		"tracking.write_timeout": c.Tracking.WriteTimeout,
		"tracking.pong_wait":     c.Tracking.PongWait,
		"tracking.ping_interval": c.Tracking.PingInterval,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Tracking.PingInterval.Duration >= c.Tracking.PongWait.Duration {
		errs = append(errs, errors.New("tracking.ping_interval must be shorter than tracking.pong_wait"))
	}
	if c.MQTT.Broker != "" && c.MQTT.Topic == "" {
		errs = append(errs, errors.New("mqtt.topic is required when mqtt.broker is set"))
	}
	return errors.Join(errs...)
}

// pgDSN composes a DSN from the libpq environment variables.
func pgDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("PGUSER", "postgres"), getEnv("PGPASSWORD", "postgres")),
		Host:     getEnv("PGHOST", "localhost") + ":" + getEnv("PGPORT", "5432"),
		Path:     "/" + getEnv("PGDATABASE", "local_talent"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func anyEnv(keys ...string) bool {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return true
		}
	}
	return false
}
