package main

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// config is the process configuration, read from the environment after
// godotenv has loaded .env.
type config struct {
	Port           string
	LogLevel       string
	DatabasePath   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	PuzzlesFile    string // empty means the embedded catalog
	DailySalt      string
	AISeed         uint64
	HasAISeed      bool
	Production     bool
}

func loadConfig() config {
	cfg := config{
		Port:           getEnv("PORT", "5175"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/crossword.db"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "crossword_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		PuzzlesFile:    os.Getenv("PUZZLES_FILE"),
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		Production:     os.Getenv("NODE_ENV") == "production",
	}
	if v := os.Getenv("AI_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Warn().Str("AI_SEED", v).Msg("ignoring non-numeric AI_SEED")
		} else {
			cfg.AISeed, cfg.HasAISeed = seed, true
		}
	}
	if cfg.Production && cfg.JWTSecret == "dev_secret_change_me" {
		log.Warn().Msg("JWT_SECRET is unset in production")
	}
	return cfg
}

func (c config) jwtExpires() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an integer, falling back to def.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str(k, v).Msg("ignoring non-numeric value")
	}
	return def
}
