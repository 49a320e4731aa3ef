package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	JWTSecret     string
	JWTExpiration time.Duration
	ServerPort    string
	// AllocationWindowed makes the 100% capacity check count only
	// assignments whose date range overlaps the proposed one. Off by
	// default: the cap is organization-wide and date-insensitive.
	AllocationWindowed bool
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/planboard"),
		JWTSecret:          getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:      24 * time.Hour,
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		AllocationWindowed: getEnv("ALLOCATION_WINDOWED", "") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
