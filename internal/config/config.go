package config

import "os"

type Config struct {
	Addr        string
	DatabaseURL string
	LogLevel    string
}

// FromEnv reads the server configuration. Main loads .env beforehand so
// local development picks values up from a file.
func FromEnv() Config {
	return Config{
		Addr:        envOr("REVERSUS_ADDR", ":8080"),
		DatabaseURL: os.Getenv("REVERSUS_DATABASE_URL"),
		LogLevel:    envOr("REVERSUS_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
