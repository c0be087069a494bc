package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config is the whole service configuration, loaded from the environment.
// A .env file in the working directory is honored when present.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8090"`
	GatewayID  string `envconfig:"GATEWAY_ID" default:"gw-1"`
	NodeID     int64  `envconfig:"NODE_ID" default:"1"`

	MongoURI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string        `envconfig:"MONGO_DATABASE" default:"wschat"`
	MongoCollection string        `envconfig:"MONGO_COLLECTION" default:"history"`
	MongoMaxRetry   int           `envconfig:"MONGO_MAX_RETRY" default:"5"`
	MongoOpTimeout  time.Duration `envconfig:"MONGO_OP_TIMEOUT" default:"5s"`

	// Redis is optional; empty addr disables the presence mirror.
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	PresenceTTL   time.Duration `envconfig:"PRESENCE_TTL" default:"2m"`

	HistoryLimit  int64 `envconfig:"HISTORY_LIMIT" default:"10"`
	SendQueueSize int   `envconfig:"SEND_QUEUE_SIZE" default:"256"`
}

func Load() (*Config, error) {
	// Best-effort: absent .env is the normal production case.
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.MongoDatabase == "" || c.MongoCollection == "" {
		return errors.New("MONGO_DATABASE and MONGO_COLLECTION are required")
	}
	if c.HistoryLimit < 0 {
		return errors.New("HISTORY_LIMIT must be >= 0")
	}
	if c.SendQueueSize <= 0 {
		return errors.New("SEND_QUEUE_SIZE must be > 0")
	}
	return nil
}
