package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func Load() App {
	// Missing .env is fine outside local dev.
	_ = godotenv.Load()

	cfg := App{
		Port:           getenv("APP_PORT", "8080"),
		DatabaseURL:    must("DATABASE_URL"),
		JWTSecret:      getenv("JWT_SECRET", "local_dev_secret"),
		LateFeePerDay:  getenvFloat("LATE_FEE_PER_DAY", 0.5),
		AccrueInterval: getenv("FEE_ACCRUE_INTERVAL", "1h"),
		Env:            getenv("APP_ENV", "dev"),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("bad float env, using default", "key", k, "value", v)
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
