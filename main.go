package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordripple/internal/clock"
	"github.com/robalobadob/wordripple/internal/config"
	"github.com/robalobadob/wordripple/internal/db"
	"github.com/robalobadob/wordripple/internal/game"
	"github.com/robalobadob/wordripple/internal/gate"
	"github.com/robalobadob/wordripple/internal/httpserver"
	"github.com/robalobadob/wordripple/internal/prefs"
	"github.com/robalobadob/wordripple/internal/puzzle"
	"github.com/robalobadob/wordripple/internal/scores"
	"github.com/robalobadob/wordripple/internal/semantics"
	"github.com/robalobadob/wordripple/internal/store"
	"github.com/robalobadob/wordripple/internal/telemetry"
	"github.com/robalobadob/wordripple/internal/words"
	"github.com/robalobadob/wordripple/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "wordripple", cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	conn, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer conn.Close()

	dict, err := words.Load(cfg.WordsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}

	loc, _ := cfg.Location()
	cal := puzzle.NewCalendar(loc)
	puzzles := puzzle.NewGenerator(dict)
	// A dictionary that cannot produce two distinct words is unusable.
	today, err := puzzles.Generate(cal.Today())
	if err != nil {
		log.Fatal().Err(err).Msg("daily puzzle self-check failed")
	}
	log.Info().Int("words", dict.Len()).Str("date", today.Date.String()).Msg("dictionary loaded")

	pool := worker.New(cfg.PersistWorkers, 64, worker.DefaultJobTimeout)
	pool.Start(context.Background())

	prefStore := prefs.NewStore(conn)
	remote := gate.NewRemoteStore(conn)
	scoreStore := scores.NewStore(conn)
	sessions := store.NewMemoryStore()
	sessions.StartSweeper(ctx, time.Minute, cfg.SessionTTL)

	srv := httpserver.New(cfg, httpserver.Deps{
		DB:       conn,
		Sessions: sessions,
		Game: game.Deps{
			Dict:      dict,
			Relater:   semantics.New(cfg.DatamuseURL, cfg.RelatednessTimeout, nil),
			Puzzles:   puzzles,
			Gate:      gate.New(remote, prefStore),
			Scores:    scoreStore,
			Prefs:     prefStore,
			Scheduler: clock.Real{},
			Runner:    pool,
			Calendar:  cal,
		},
		Prefs:       prefStore,
		Scores:      scoreStore,
		Completions: remote,
		Words:       dict,
	})
	srv.StartJanitor(ctx, time.Minute, cfg.SessionTTL)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("starting wordripple server")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}

	// Close sessions first so scores still in their expiry grace reach the pool.
	sessions.CloseAll()
	pool.Close()

	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(tctx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
