// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Every package that needs
// configuration declares its own Config struct with `env` tags; the binary
// loads each one once at startup:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
// Parsed values are cached per type for the lifetime of the process.
// ResetCache clears the cache in tests.
package config
