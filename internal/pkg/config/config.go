package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// TokenTTL bounds how long an issued session token stays valid.
	TokenTTL time.Duration `env:"TOKEN_TTL, default=24h"`

	// Storage selects the registry backend: "file" keeps everything in a
	// local JSON snapshot, "mongo" uses MongoDB.
	Storage  string `env:"STORAGE,   default=file"`
	DataFile string `env:"DATA_FILE, default=data/state.json"`

	// HeartbeatInterval is how often a bound session refreshes its
	// presence record.
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL, default=30s"`
	// PresenceTTL is the window after the last heartbeat during which a
	// member still counts as online.
	PresenceTTL time.Duration `env:"PRESENCE_TTL, default=2m"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=store_system"`
}

type RedisConfig struct {
	// Addr empty disables Redis entirely; checkout replay protection is
	// then switched off.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
