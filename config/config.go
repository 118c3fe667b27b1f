package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Platform PlatformConfig `yaml:"platform"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" env:"HTTP_ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" env:"HTTP_SWAGGER_DIR"`
}

type GRPCConfig struct {
	Address string `yaml:"address" env:"GRPC_ADDRESS"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	Name     string `yaml:"name" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"ssl_mode" env:"POSTGRES_SSL_MODE"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	BookingEventsTopic string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC"`
	GroupID            string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type BookingConfig struct {
	OfferingCacheTTL int    `yaml:"offering_cache_ttl_seconds" env:"BOOKING_OFFERING_CACHE_TTL_SECONDS"`
	IdempotencyTTL   int    `yaml:"idempotency_ttl_seconds" env:"BOOKING_IDEMPOTENCY_TTL_SECONDS"`
	Timezone         string `yaml:"timezone" env:"BOOKING_TIMEZONE"`
}

// Location resolves the timezone used to decide what "today" is. Empty means UTC.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(b.Timezone)
}

type WorkerConfig struct {
	OutboxPollSeconds int `yaml:"outbox_poll_seconds" env:"WORKER_OUTBOX_POLL_SECONDS"`
	OutboxBatchSize   int `yaml:"outbox_batch_size" env:"WORKER_OUTBOX_BATCH_SIZE"`
}

// PlatformConfig identifies the system account that authors booking notifications.
type PlatformConfig struct {
	SystemUserID int64  `yaml:"system_user_id" env:"PLATFORM_SYSTEM_USER_ID"`
	BaseURL      string `yaml:"base_url" env:"PLATFORM_BASE_URL"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// LoadConfig reads the YAML file at path and then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env overrides: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "booking-notifications"
	}
	if c.Booking.OfferingCacheTTL <= 0 {
		c.Booking.OfferingCacheTTL = 60
	}
	if c.Booking.IdempotencyTTL <= 0 {
		c.Booking.IdempotencyTTL = 24 * 60 * 60
	}
	if c.Worker.OutboxPollSeconds <= 0 {
		c.Worker.OutboxPollSeconds = 2
	}
	if c.Worker.OutboxBatchSize <= 0 {
		c.Worker.OutboxBatchSize = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
