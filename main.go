package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crossword-battle/assets"
	"github.com/robalobadob/crossword-battle/internal/ai"
	"github.com/robalobadob/crossword-battle/internal/database"
	"github.com/robalobadob/crossword-battle/internal/httpserver"
	"github.com/robalobadob/crossword-battle/internal/live"
	"github.com/robalobadob/crossword-battle/internal/puzzle"
	"github.com/robalobadob/crossword-battle/internal/stats"
	"github.com/robalobadob/crossword-battle/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	catalog, err := puzzle.Load(cfg.PuzzlesFile, nil)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PuzzlesFile).Msg("failed to load puzzles")
	}

	policy := ai.New(nil)
	if cfg.HasAISeed {
		policy = ai.NewSeeded(cfg.AISeed)
		log.Info().Uint64("seed", cfg.AISeed).Msg("ai policy seeded")
	}

	srv := httpserver.New(httpserver.Options{
		Store:   store.NewMemoryStore(),
		DB:      db,
		Stats:   stats.New(db),
		Catalog: catalog,
		Policy:  policy,
		Hub:     live.NewHub(nil),
		Config: httpserver.Config{
			JWTSecret:    cfg.JWTSecret,
			JWTExpires:   cfg.jwtExpires(),
			CookieName:   cfg.CookieName,
			ClientOrigin: cfg.ClientOrigin,
			Production:   cfg.Production,
			DailySalt:    cfg.DailySalt,
		},
	})
	log.Info().Str("port", cfg.Port).Msg("starting crossword-battle server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
