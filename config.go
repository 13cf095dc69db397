package subscribeto

import (
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// Config is the process configuration, read from the environment. cmd/server
// loads a .env file first so local development needs no exported variables.
type Config struct {
	HTTPAddr     string `json:"http_addr"`
	DSN          string `json:"dsn"`
	CipherSecret string `json:"-"`
	LogLevel     string `json:"log_level"`
	Debug        bool   `json:"debug"`
}

// LoadConfig reads the configuration from the environment and validates it.
// The cipher secret has no default on purpose: without it every token the
// process minted before a restart would silently stop opening.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:     envOr("HTTP_ADDR", ":8572"),
		DSN:          envOr("DATABASE_DSN", "file:subscribeto.db"),
		CipherSecret: os.Getenv("CIPHER_SECRET"),
		LogLevel:     envOr("LOG_LEVEL", "info"),
		Debug:        envBool("DEBUG"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.HTTPAddr, validation.Required),
			validation.Field(&c.DSN, validation.Required),
			validation.Field(&c.CipherSecret, validation.Required, validation.Length(16, 0)),
		)
	}, "Invalid configuration"); err != nil {
		return err
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
