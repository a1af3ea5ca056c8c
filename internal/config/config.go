// Package config содержит логику чтения конфигурации сервиса смартпарк.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса смартпарк.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	RemoteAddress string `env:"PARKING_REMOTE_ADDRESS"`
	GeoAddress    string `env:"GEO_SERVICE_ADDRESS"`
	AuthSecret    string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envRemoteAddress := cfg.RemoteAddress
	envGeoAddress := cfg.GeoAddress
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.RemoteAddress, "r", "", "remote availability service address")
	flag.StringVar(&cfg.GeoAddress, "g", "", "geocoding and routing service address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envRemoteAddress != "" {
		cfg.RemoteAddress = envRemoteAddress
	}
	if envGeoAddress != "" {
		cfg.GeoAddress = envGeoAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
