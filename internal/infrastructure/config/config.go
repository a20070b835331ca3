package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "FULFILLMENT"

type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Inventory InventoryConfig
	Payment   PaymentConfig
	Telemetry TelemetryConfig
	Kafka     KafkaConfig
	Bus       BusConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Version string
}

type LogConfig struct {
	Level  string
	Format string
	Output []string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig selects the backend for orders, payments and attempts.
type StorageConfig struct {
	Driver   string // memory | sqlite | postgres
	SQLite   string // file path or ":memory:"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type InventoryConfig struct {
	Backend string   // storage | redis
	Seed    []string // "PRODUCT=QUANTITY"
}

type PaymentConfig struct {
	Gateway     string // always | simulated
	SuccessRate float64
	Seed        int64
	Breaker     BreakerConfig
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32
	OpenTimeout time.Duration
}

type TelemetryConfig struct {
	Enabled       bool
	Endpoint      string
	Insecure      bool
	SamplingRatio float64
	DBTracing     bool
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type BusConfig struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

// Load reads configuration with this priority (highest first):
//  1. environment variables with the FULFILLMENT_ prefix (FULFILLMENT_STORAGE_DRIVER)
//  2. config.toml in one of paths (defaults to "." and "/app")
//  3. built-in defaults
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if len(paths) == 0 {
		paths = []string{".", "/app"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetStringSlice("log.output"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Storage: StorageConfig{
			Driver:   v.GetString("storage.driver"),
			SQLite:   v.GetString("storage.sqlite"),
			Host:     v.GetString("storage.host"),
			Port:     v.GetInt("storage.port"),
			User:     v.GetString("storage.user"),
			Password: v.GetString("storage.password"),
			DBName:   v.GetString("storage.dbname"),
			SSLMode:  v.GetString("storage.sslmode"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Inventory: InventoryConfig{
			Backend: v.GetString("inventory.backend"),
			Seed:    v.GetStringSlice("inventory.seed"),
		},
		Payment: PaymentConfig{
			Gateway:     v.GetString("payment.gateway"),
			SuccessRate: v.GetFloat64("payment.success_rate"),
			Seed:        v.GetInt64("payment.seed"),
			Breaker: BreakerConfig{
				Enabled:     v.GetBool("payment.breaker.enabled"),
				MaxFailures: v.GetUint32("payment.breaker.max_failures"),
				OpenTimeout: v.GetDuration("payment.breaker.open_timeout"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:       v.GetBool("telemetry.enabled"),
			Endpoint:      v.GetString("telemetry.endpoint"),
			Insecure:      v.GetBool("telemetry.insecure"),
			SamplingRatio: v.GetFloat64("telemetry.sampling_ratio"),
			DBTracing:     v.GetBool("telemetry.db_tracing"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Bus: BusConfig{
			QueueSize:      v.GetInt("bus.queue_size"),
			Concurrency:    v.GetInt("bus.concurrency"),
			HandlerTimeout: v.GetDuration("bus.handler_timeout"),
		},
	}
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1
	}
	if !v.IsSet("payment.success_rate") {
		cfg.Payment.SuccessRate = 0.7
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "minishop-fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.Output) == 0 {
		cfg.Log.Output = []string{"stdout"}
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.SQLite == "" {
		cfg.Storage.SQLite = "fulfillment.db"
	}
	if cfg.Storage.Host == "" {
		cfg.Storage.Host = "localhost"
	}
	if cfg.Storage.Port == 0 {
		cfg.Storage.Port = 5432
	}
	if cfg.Storage.SSLMode == "" {
		cfg.Storage.SSLMode = "disable"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "inventory:"
	}
	if cfg.Inventory.Backend == "" {
		cfg.Inventory.Backend = "storage"
	}
	if cfg.Payment.Gateway == "" {
		cfg.Payment.Gateway = "always"
	}
	if cfg.Payment.Breaker.MaxFailures == 0 {
		cfg.Payment.Breaker.MaxFailures = 5
	}
	if cfg.Payment.Breaker.OpenTimeout == 0 {
		cfg.Payment.Breaker.OpenTimeout = 30 * time.Second
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "fulfillment.attempts"
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console; got %q", c.Log.Format)
	}
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be memory, sqlite or postgres; got %q", c.Storage.Driver)
	}
	switch c.Inventory.Backend {
	case "storage", "redis":
	default:
		return fmt.Errorf("inventory.backend must be storage or redis; got %q", c.Inventory.Backend)
	}
	switch c.Payment.Gateway {
	case "always", "simulated":
	default:
		return fmt.Errorf("payment.gateway must be always or simulated; got %q", c.Payment.Gateway)
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return fmt.Errorf("payment.success_rate must be between 0 and 1, got %f", c.Payment.SuccessRate)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	if _, err := c.Inventory.Levels(); err != nil {
		return err
	}
	return nil
}

// Levels parses the seed list into product quantities.
func (c InventoryConfig) Levels() (map[string]int, error) {
	levels := make(map[string]int, len(c.Seed))
	for _, entry := range c.Seed {
		product, qty, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || product == "" {
			return nil, fmt.Errorf("inventory.seed entry %q must look like PRODUCT=QUANTITY", entry)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("inventory.seed entry %q has an invalid quantity", entry)
		}
		levels[strings.TrimSpace(product)] = n
	}
	return levels, nil
}

// DSN returns the postgres connection string with properly escaped values.
func (s StorageConfig) DSN() string {
	if s.Driver == "sqlite" {
		return s.SQLite
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   fmt.Sprintf("%s:%d", s.Host, s.Port),
		Path:   s.DBName,
	}
	q := u.Query()
	q.Set("sslmode", s.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
