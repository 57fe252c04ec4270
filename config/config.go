package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds the full process configuration. Values come from the
// environment (optionally preloaded from a .env file by main).
type Config struct {
	Port        string `env:"PORT" envDefault:"4000"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	MongoURI     string `env:"MONGODB_URI"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"goventure"`

	ClientOrigins []string `env:"CLIENT_ORIGINS" envSeparator:"," envDefault:"http://localhost:8082"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`

	UploadsDir    string `env:"UPLOADS_DIR" envDefault:"uploads"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"`
	GCSBucket     string `env:"GCS_BUCKET"`
	GCSCredsFile  string `env:"GCS_CREDENTIALS_FILE"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Production reports whether the process runs with production settings,
// which switches logs to JSON and gin to release mode.
func (c *Config) Production() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
