// Package main provides the emostream worker entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/emostream-io/emostream/internal/config"
	"github.com/emostream-io/emostream/internal/db/sqlite"
	"github.com/emostream-io/emostream/internal/emotion"
	"github.com/emostream-io/emostream/internal/responder"
	"github.com/emostream-io/emostream/internal/session"
	"github.com/emostream-io/emostream/internal/watcher"
	"github.com/emostream-io/emostream/internal/worker"
	"github.com/emostream-io/emostream/internal/worker/stream"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default from settings)")
	dbPath := flag.String("db", "", "SQLite database path (default: data dir)")
	recordingsDir := flag.String("recordings", "", "Recordings directory (default from settings)")
	prototypes := flag.String("prototypes", "", "Path to a prototype override YAML")
	noJournal := flag.Bool("no-journal", false, "Disable the SQLite event journal")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// .env is optional; environment overrides still apply in Load.
	_ = godotenv.Load()

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.WorkerPort = *port
	}
	if *recordingsDir != "" {
		cfg.RecordingsDir = *recordingsDir
	}
	if *prototypes != "" {
		cfg.PrototypesPath = *prototypes
	}
	config.Set(cfg)

	classifier := emotion.NewClassifier()
	if cfg.PrototypesPath != "" {
		protos, err := emotion.LoadPrototypes(cfg.PrototypesPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.PrototypesPath).Msg("Failed to load prototypes")
		}
		classifier = emotion.NewClassifierWith(protos)
		log.Info().Int("prototypes", len(protos)).Msg("Loaded prototype catalog")
	}

	var resp session.Responder
	if cfg.OpenAIAPIKey != "" {
		r, err := responder.NewOpenAI(responder.Config{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.OpenAIAPIKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build responder")
		}
		resp = r
		log.Info().Str("model", cfg.Model).Msg("Responder enabled")
	} else {
		log.Warn().Msg("No API key configured, responses use the rule-based fallback")
	}

	var store *sqlite.Store
	if !*noJournal {
		path := *dbPath
		if path == "" {
			path = config.DBPath()
		}
		store, err = sqlite.NewStore(sqlite.Config{
			Path:     path,
			MaxConns: cfg.MaxConns,
			LogLevel: logger.Silent,
		})
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to open journal database")
		}
		defer store.Close()
	}

	sessions := session.NewManager(classifier, emotion.DefaultSmootherConfig(), resp)
	broadcaster := stream.NewBroadcaster(cfg.StaleTimeout())
	svc := worker.New(cfg, store, sessions, broadcaster, Version)

	recWatcher, err := watcher.New(cfg.RecordingsDir, func() {
		if err := svc.RefreshRecordings(); err != nil {
			log.Warn().Err(err).Msg("Failed to refresh recordings index")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create recordings watcher")
	}
	if err := recWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Recordings watcher did not start")
	}
	defer recWatcher.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(gctx)
	})
	g.Go(func() error {
		broadcaster.MonitorStale(gctx)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Worker exited with error")
	}
	log.Info().Msg("Worker stopped")
}
