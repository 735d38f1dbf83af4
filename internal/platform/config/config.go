package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config captures process-level configuration. All values come from the
// environment under the ARKHIV_ prefix so main stays lean.
type Config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	// JWTSigningKey verifies inbound bearer tokens. Token issuance lives in
	// the identity provider, not here.
	JWTSigningKey string `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`

	// PostgresDSN selects the durable stores. Empty means in-memory stores
	// (development and tests).
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	Redis RedisConfig `envconfig:"REDIS"`
	Kafka KafkaConfig `envconfig:"KAFKA"`

	// UploadsDir is the root for attached record files.
	UploadsDir string `envconfig:"UPLOADS_DIR" default:"./uploads/records"`

	// DownloadRateLimit caps download attempts per principal per window.
	DownloadRateLimit  int           `envconfig:"DOWNLOAD_RATE_LIMIT" default:"30"`
	DownloadRateWindow time.Duration `envconfig:"DOWNLOAD_RATE_WINDOW" default:"1m"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig configures the optional audit event sink.
type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"AUDIT_TOPIC" default:"arkhiv.audit"`
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("ARKHIV", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	return cfg, nil
}
