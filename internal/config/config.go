// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string
	RabbitURL string
	LogPath   string
	AdminUser string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:      getenv("LIBRA_ADDR", ":8080"),
		DBPath:    getenv("LIBRA_DB_PATH", "libra.sqlite3"),
		JWTSecret: os.Getenv("LIBRA_JWT_SECRET"),
		RabbitURL: os.Getenv("RABBITMQ_URL"),
		LogPath:   os.Getenv("LIBRA_LOG_PATH"),
		AdminUser: getenv("LIBRA_ADMIN_USER", "admin"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
