package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsemeet/meetingtracker/internal/api"
	"github.com/pulsemeet/meetingtracker/internal/broadcaster"
	"github.com/pulsemeet/meetingtracker/internal/config"
	"github.com/pulsemeet/meetingtracker/internal/database"
	"github.com/pulsemeet/meetingtracker/internal/engagement"
	"github.com/pulsemeet/meetingtracker/internal/meetingsvc"
	"github.com/pulsemeet/meetingtracker/internal/metrics"
	"github.com/pulsemeet/meetingtracker/internal/pubsub"
	"github.com/pulsemeet/meetingtracker/internal/wsapi"
)

// version, commit, and buildTime are injected at build time via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var overrides config.Overrides
	var showVersion bool
	flag.StringVar(&overrides.EnvFile, "env-file", "", "Path to .env file (default: .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s (commit=%s, built=%s)\n", version, commit, buildTime)
		os.Exit(0)
	}

	startTime := time.Now()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", buildTime).
		Str("log_level", level.String()).
		Msg("meetingtracker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbLog := log.With().Str("component", "database").Logger()
	poolCfg := database.PoolConfig{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}
	db, err := database.ConnectAndBootstrap(ctx, cfg.DatabaseURL, poolCfg, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Pub/sub bus: one per-meeting channel, shared across every connection
	// and the periodic broadcaster.
	bus := pubsub.New(cfg.SubscriberQueueSize, log)

	// Engagement engine, with the smoothing strategy selected by config.
	var smoother engagement.Smoother
	switch engagement.Algorithm(cfg.SmoothingAlgorithm) {
	case engagement.AlgorithmNone:
		smoother = engagement.NoSmoothing{}
	default:
		smoother = engagement.Kalman{
			ProcessVariance:     cfg.KalmanProcessVariance,
			MeasurementVariance: cfg.KalmanMeasurementVariance,
		}
	}
	engine := engagement.New(db, smoother)

	// Meeting discovery/upsert service, shared by the HTTP visit endpoint,
	// the WS lifecycle's meeting lookup, and the periodic broadcaster.
	meetings := meetingsvc.New(db)

	// WS message router and services (join/status/ping/leave).
	services := wsapi.NewServices(db, engine, bus)
	router := wsapi.NewRouter(services)
	wsLog := log.With().Str("component", "wsapi").Logger()
	conn := wsapi.NewConnection(meetings, db, engine, bus, router, wsLog)

	// Periodic broadcaster: every BroadcastInterval, rollup-delta every
	// active meeting and notify countdown clients of newly started ones.
	bcastLog := log.With().Str("component", "broadcaster").Logger()
	bcast := broadcaster.New(meetings, engine, bus, cfg.BroadcastInterval, bcastLog)
	bcast.Start(ctx)
	defer bcast.Stop()

	// Prometheus collector reading live pub/sub and broadcaster gauges at
	// scrape time, alongside the database pool's own stats.
	if cfg.MetricsEnabled {
		metrics.MustRegisterCollector(db.Pool, bus, bcast)
	}

	var corsOrigins []string
	if cfg.CORSOrigins != "" {
		for _, o := range strings.Split(cfg.CORSOrigins, ",") {
			if s := strings.TrimSpace(o); s != "" {
				corsOrigins = append(corsOrigins, s)
			}
		}
	}

	httpLog := log.With().Str("component", "http").Logger()
	visitHandler := api.NewVisitHandler(meetings)
	meetingsHandler := api.NewMeetingsHandler(meetings, db, db)
	wsHandler := api.NewWSHandler(conn, corsOrigins, httpLog)

	srv := api.NewServer(api.ServerOptions{
		Config:      cfg,
		DB:          db,
		Broadcaster: bcast,
		Visit:       visitHandler,
		Meetings:    meetingsHandler,
		WS:          wsHandler,
		Version:     fmt.Sprintf("%s (commit=%s, built=%s)", version, commit, buildTime),
		StartTime:   startTime,
		Log:         httpLog,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().
		Str("listen", cfg.HTTPAddr).
		Str("version", version).
		Dur("startup_ms", time.Since(startTime)).
		Msg("meetingtracker ready")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("meetingtracker stopped")
}
