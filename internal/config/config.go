package config

import (
	"github.com/joeshaw/envdecode"
	errwrap "github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

type Config struct {
	HTTPPort   string `env:"HTTP_PORT,default=8080"`
	SQLitePath string `env:"SQLITE_PATH,default=telemetry.db"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`

	// EncryptionKey is the hex-encoded 32-byte key used to encrypt stored
	// Oracle passwords. Required.
	EncryptionKey string `env:"ENCRYPTION_KEY,required"`

	// AMQPUrl enables run-summary event publishing when set.
	AMQPUrl      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE,default=telemetry.runs"`
}

// Load reads .env (if present) and decodes the environment.
func Load() (*Config, error) {
	_ = gotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, errwrap.Wrap(err, "config.Load")
	}
	return &cfg, nil
}
