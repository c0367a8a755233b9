package config

import (
	"github.com/caarlos0/env/v11"

	"campaign-fulfillment/internal/config/configs"
)

// Config is the whole service configuration, read from the environment.
// Every section is a struct from the configs package parsed under its own
// variable prefix.
type Config struct {
	// Env names the deployment (prod, dev, ...). It is attached to every
	// log record.
	Env string `env:"ENV" envDefault:"prod"`

	HTTP     configs.HTTP     `envPrefix:"HTTP_"`
	Log      configs.Logger   `envPrefix:"LOG_"`
	Psql     configs.Postgres `envPrefix:"PSQL_"`
	Store    configs.Store    `envPrefix:"STORE_"`
	Lease    configs.Lease    `envPrefix:"LEASE_"`
	Notify   configs.Notify   `envPrefix:"NOTIFY_"`
	Creative configs.Creative `envPrefix:"CREATIVE_"`
}

// Load parses the environment into a Config, applying defaults for unset
// variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
