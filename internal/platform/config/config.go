package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stockroom/pkg/platform/sentinel"
	strutil "stockroom/pkg/platform/strings"
)

// Source kinds.
const (
	KindCSV   = "csv"
	KindYAML  = "yaml"
	KindSQL   = "sql"
	KindRedis = "redis"
	KindKafka = "kafka"
)

const defaultQuery = `SELECT id, name, quantity, note FROM items`

// Config is everything the stockroom binary needs.
type Config struct {
	Server Server
	Log    Log
	Source Source
	Watch  Watch
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string // guards write endpoints when set
}

// Log selects the slog handler.
type Log struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Watch controls reload-on-change for file origins.
type Watch struct {
	Enabled  bool
	Debounce time.Duration
}

// Source describes where inventory records come from. Only the block that
// matches Kind is read.
type Source struct {
	Kind     string
	Origin   string // path, URL or s3://bucket/key for csv and yaml
	Capacity int    // expected number of distinct records, 0 if unknown

	CSV   CSV
	YAML  YAML
	SQL   SQL
	Redis RedisConfig
	Kafka Kafka
	S3    S3
}

type CSV struct {
	Comma rune
}

type YAML struct {
	Key string
}

type SQL struct {
	Driver string // pgx, postgres or sqlite
	DSN    string
	Query  string
}

// RedisConfig configures the go-redis client used by the redis source.
type RedisConfig struct {
	URL          string
	Prefix       string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers []string
	Topic   string
}

// S3 is read when Origin has the s3:// scheme. Empty credentials fall back to
// the default AWS chain.
type S3 struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// FromEnv builds a Config from STOCKROOM_* environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:       env("STOCKROOM_ADDR", ":8080"),
			AdminToken: os.Getenv("STOCKROOM_ADMIN_TOKEN"),
		},
		Log: Log{
			Level:  env("STOCKROOM_LOG_LEVEL", "info"),
			Format: env("STOCKROOM_LOG_FORMAT", "text"),
		},
		Watch: Watch{
			Enabled:  os.Getenv("STOCKROOM_WATCH") == "true",
			Debounce: envDuration("STOCKROOM_WATCH_DEBOUNCE", 250*time.Millisecond),
		},
		Source: Source{
			Kind:     env("STOCKROOM_SOURCE_KIND", KindCSV),
			Origin:   os.Getenv("STOCKROOM_SOURCE"),
			Capacity: envInt("STOCKROOM_SOURCE_CAPACITY", 0),
			CSV: CSV{
				Comma: envRune("STOCKROOM_CSV_COMMA", ','),
			},
			YAML: YAML{
				Key: os.Getenv("STOCKROOM_YAML_KEY"),
			},
			SQL: SQL{
				Driver: env("STOCKROOM_SQL_DRIVER", "pgx"),
				DSN:    os.Getenv("STOCKROOM_SQL_DSN"),
				Query:  env("STOCKROOM_SQL_QUERY", defaultQuery),
			},
			Redis: RedisConfig{
				URL:          os.Getenv("STOCKROOM_REDIS_URL"),
				Prefix:       env("STOCKROOM_REDIS_PREFIX", "item:"),
				PoolSize:     envInt("STOCKROOM_REDIS_POOL_SIZE", 10),
				DialTimeout:  envDuration("STOCKROOM_REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  envDuration("STOCKROOM_REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: envDuration("STOCKROOM_REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Kafka: Kafka{
				Brokers: envList("STOCKROOM_KAFKA_BROKERS"),
				Topic:   os.Getenv("STOCKROOM_KAFKA_TOPIC"),
			},
			S3: S3{
				Region:          env("AWS_REGION", "us-east-1"),
				Endpoint:        os.Getenv("STOCKROOM_S3_ENDPOINT"),
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				PathStyle:       os.Getenv("STOCKROOM_S3_PATH_STYLE") == "true",
			},
		},
	}
}

// Validate checks that the block selected by Kind is usable.
func (s Source) Validate() error {
	var missing string
	switch s.Kind {
	case KindCSV, KindYAML:
		if strings.TrimSpace(s.Origin) == "" {
			missing = "origin"
		}
	case KindSQL:
		switch {
		case s.SQL.Driver == "":
			missing = "sql driver"
		case s.SQL.DSN == "":
			missing = "sql dsn"
		case s.SQL.Query == "":
			missing = "sql query"
		}
	case KindRedis:
		if s.Redis.URL == "" {
			missing = "redis url"
		}
	case KindKafka:
		switch {
		case len(s.Kafka.Brokers) == 0:
			missing = "kafka brokers"
		case s.Kafka.Topic == "":
			missing = "kafka topic"
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q", sentinel.ErrInvalidConfig, s.Kind)
	}
	if missing != "" {
		return fmt.Errorf("%w: %s source needs %s", sentinel.ErrInvalidConfig, s.Kind, missing)
	}
	if s.Capacity < 0 {
		return fmt.Errorf("%w: negative capacity", sentinel.ErrInvalidConfig)
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func envRune(key string, fallback rune) rune {
	if r := []rune(os.Getenv(key)); len(r) == 1 {
		return r[0]
	}
	return fallback
}

func envList(key string) []string {
	return strutil.SplitList(os.Getenv(key), ",")
}
