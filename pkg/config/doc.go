// Package config parses environment variables into typed structs with
// caarlos0/env tags, loading .env files through godotenv first.
//
//	cfg, err := config.Load[AppConfig](config.WithEnvFiles(".env"))
//
// Variables already set in the process environment win over values in .env
// files. Missing .env files are ignored.
package config
