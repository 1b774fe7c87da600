package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type key string

const KeyLogger = key("logger")

type Config struct {
	Service  Service
	Platform Platform
	Logger   Logger
	Postgres ReadEnvDB
	Source   Source
	Stream   Stream
	Consumer Consumer
	Kafka    Kafka
	Metrics  Metrics
	Tracing  Tracing
}

type Service struct {
	Port string `env:"SERVICE_PORT" env-default:"8765"`
	Name string `env:"SERVICE_NAME" env-default:"user-stream-service"`
}

type Platform struct {
	Env string `env:"ENV" env-default:"dev"`
}

type Logger struct {
	Host string `env:"LOGGER_SERVICE_HOST"`
	Port string `env:"LOGGER_SERVICE_PORT"`
}

type ReadEnvDB struct {
	User     string `env:"USERSTREAM_POSTGRES_USER" env-default:"analytics_user"`
	Password string `env:"USERSTREAM_POSTGRES_PASSWORD"`
	Database string `env:"USERSTREAM_POSTGRES_DB" env-default:"analytics"`
	Host     string `env:"USERSTREAM_POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"USERSTREAM_POSTGRES_PORT" env-default:"5433"`
}

// Source describes the upstream random user generator.
type Source struct {
	URL     string        `env:"SOURCE_URL" env-default:"https://randomuser.me/api/?results=1&inc=gender,name,email,login,dob,registered,phone,cell,picture,location,nat"`
	Timeout time.Duration `env:"SOURCE_TIMEOUT" env-default:"10s"`
}

// Stream holds the broadcaster cadence and fan-out limits.
type Stream struct {
	Interval      time.Duration `env:"STREAM_INTERVAL" env-default:"1s"`
	Backoff       time.Duration `env:"STREAM_BACKOFF" env-default:"5s"`
	SendTimeout   time.Duration `env:"STREAM_SEND_TIMEOUT" env-default:"250ms"`
	BufferSize    int           `env:"STREAM_SUBSCRIBER_BUFFER" env-default:"16"`
	MaxStrikes    int           `env:"STREAM_MAX_STRIKES" env-default:"3"`
	StatsInterval time.Duration `env:"STREAM_STATS_INTERVAL" env-default:"60s"`
}

type Consumer struct {
	ServerURL  string        `env:"CONSUMER_SERVER_URL" env-default:"ws://localhost:8765/ws"`
	RetryDelay time.Duration `env:"CONSUMER_RETRY_DELAY" env-default:"5s"`
	Milestone  int64         `env:"CONSUMER_MILESTONE" env-default:"60"`
}

type Kafka struct {
	Enabled bool     `env:"KAFKA_MIRROR_ENABLED" env-default:"false"`
	Brokers []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Topic   string   `env:"KAFKA_USER_STREAM_TOPIC" env-default:"user-stream"`
}

type Metrics struct {
	Port string `env:"METRICS_PORT" env-default:"9102"`
}

type Tracing struct {
	Enabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4318"`
}

func MustLoad() *Config {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			log.Fatalf("failed to read config file %s: %s", path, err)
		}
		return cfg
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		log.Fatalf("failed to read env variables: %s", err)
	}

	return cfg
}
