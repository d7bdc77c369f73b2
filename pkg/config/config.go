package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	Service  string  `yaml:"service" env:"SERVICE_NAME" env-default:"crud-service"`
	HTTP     HTTP    `yaml:"http"`
	Postgres PG      `yaml:"postgres"`
	Redis    Redis   `yaml:"redis"`
	Kafka    Kafka   `yaml:"kafka"`
	Outbox   Outbox  `yaml:"outbox"`
	Logger   Logger  `yaml:"logger"`
	Tracing  Tracing `yaml:"tracing"`
	Limiter  Limiter `yaml:"limiter"`
	Metrics  Metrics `yaml:"metrics"`
	Product  Product `yaml:"product"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":8000"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
}

type PG struct {
	URL             string        `yaml:"url" env:"DB_URL" env-required:"true"`
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env-default:"5s"`
	MigrationsPath  string        `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

type Outbox struct {
	BatchSize int           `yaml:"batch_size" env-default:"50"`
	Interval  time.Duration `yaml:"interval" env-default:"500ms"`
	Retention time.Duration `yaml:"retention" env:"OUTBOX_RETENTION" env-default:"168h"`
}

type Logger struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR" env-default:":9091"`
}

type Product struct {
	DefaultSellerID int64 `yaml:"default_seller_id" env:"PRODUCT_DEFAULT_SELLER_ID" env-default:"1"`
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the file named by CONFIG_PATH, or fallbackPath when unset.
func MustLoad(fallbackPath string) *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = fallbackPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	return cfg
}

func (c *Config) LoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:   c.Logger.Level,
		Env:     c.Env,
		Service: c.Service,
	}
}
