package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration, loaded from GATEHOUSE_*
// environment variables.
type Config struct {
	Issuer   string   `env:"ISSUER" envDefault:"gatehouse"`
	Audience []string `env:"AUDIENCE"`
	Port     int      `env:"PORT" envDefault:"8080"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"gatehouse.db"`
	PepperFile   string `env:"PEPPER_FILE" envDefault:"pepper"`
	SeedFile     string `env:"SEED_FILE"`

	// AdminSecret bootstraps the built-in admin client when no seed file
	// is configured and the store is empty. Leaving it unset skips the
	// built-in seed entirely.
	AdminSecret string `env:"ADMIN_SECRET"`

	Algorithm      string        `env:"ALGORITHM" envDefault:"EdDSA"`
	KeyStorageMode string        `env:"KEY_STORAGE_MODE" envDefault:"ephemeral"`
	KeyGracePeriod time.Duration `env:"KEY_GRACE_PERIOD" envDefault:"720h"`
	KeyRotateEvery time.Duration `env:"KEY_ROTATE_EVERY"`
	MasterKeyPath  string        `env:"MASTER_KEY_PATH"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "GATEHOUSE_"})
	if err != nil {
		return Config{}, fmt.Errorf("parse configuration: %w", err)
	}

	switch cfg.KeyStorageMode {
	case "ephemeral", "persistent":
	default:
		return Config{}, fmt.Errorf("invalid GATEHOUSE_KEY_STORAGE_MODE %q", cfg.KeyStorageMode)
	}
	return cfg, nil
}
