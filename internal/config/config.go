package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every knob the server reads from the environment.
type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	DBDSN     string `env:"DB_DSN,required"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	JWTSecret string `env:"JWT_SECRET,required"`

	// SMTP is optional; when Host is empty, notifications are dropped.
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine, real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
