package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danielhkuo/do4btc/cliparse"
	"github.com/danielhkuo/do4btc/db"
	"github.com/danielhkuo/do4btc/handlers"
	"github.com/danielhkuo/do4btc/live"
	"github.com/danielhkuo/do4btc/metrics"
	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/opennode"
	"github.com/danielhkuo/do4btc/router"
	"github.com/danielhkuo/do4btc/supastore"
	"github.com/danielhkuo/do4btc/tuning"
)

const (
	shutdownTimeout = 10 * time.Second
	feedRetryDelay  = 5 * time.Second
)

// ideaStore is satisfied by both db.Store and supastore.Store.
type ideaStore interface {
	handlers.IdeaStore
	live.IdeaStore
}

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error parsing flags:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error building logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg cliparse.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	motionTuning, err := tuning.Load(cfg.TuningFile)
	if err != nil {
		return err
	}

	store, feed, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("idea store ready", zap.String("store", cfg.Store))

	charger := opennode.New(opennode.Config{
		BaseURL:       cfg.OpenNodeURL,
		APIKey:        cfg.OpenNodeAPIKey,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger.Named("opennode"))

	collector := metrics.New()

	hub := live.NewHub(store, charger, live.Config{VoteSats: cfg.VoteSats, Tuning: motionTuning},
		logger.Named("live"), collector)
	go runFeed(ctx, hub, feed, logger)

	// Periodic full resync catches anything the change feed missed
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ResyncSchedule, func() {
		if err := hub.Resync(ctx); err != nil {
			logger.Warn("scheduled resync failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("resync schedule %q: %w", cfg.ResyncSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.TuningFile != "" {
		watcher, err := tuning.NewWatcher(cfg.TuningFile, logger.Named("tuning"))
		if err != nil {
			return err
		}
		go watcher.Run(ctx, hub.SetTuning)
	}

	liveServer := live.NewServer(ctx, hub, originChecker(cfg.AllowedOrigins), logger.Named("ws"))

	mux := router.NewRouter(router.Deps{
		Store:   store,
		Charger: charger,
		Live:    liveServer.HandleWebSocket,
		Metrics: collector,
		Logger:  logger.Named("http"),
	}, cfg)

	server := http.Server{
		Handler:           mux,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
			server.Close()
		}
	}()

	// Start server
	logger.Info("listening", zap.Int("port", cfg.Port))
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server closed")
	return nil
}

// openStore builds the idea store and its change feed for cfg.Store.
func openStore(ctx context.Context, cfg cliparse.Config, logger *zap.Logger) (ideaStore, live.ChangeFeed, func(), error) {
	switch cfg.Store {
	case models.StoreSupabase:
		store, err := supastore.New(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, nil, err
		}
		feed := supastore.NewRealtime(cfg.SupabaseURL, cfg.SupabaseKey, logger.Named("realtime"))
		return store, feed, func() {}, nil

	case models.StorePostgres, models.StoreSQLite:
		conn, err := db.Open(ctx, cfg.Store, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.CreateSchema(conn); err != nil {
			conn.Close()
			return nil, nil, nil, fmt.Errorf("schema creation failed: %w", err)
		}
		closeConn := func() { conn.Close() }

		// postgres publishes through its trigger; sqlite publishes in process
		if cfg.Store == models.StorePostgres {
			store := db.NewStore(conn, nil)
			return store, db.NewPGFeed(cfg.DatabaseURL, store, logger.Named("pgfeed")), closeConn, nil
		}
		feed := db.NewLocalFeed()
		return db.NewStore(conn, feed), feed, closeConn, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// runFeed keeps the hub subscribed to the change feed, resubscribing after
// failures until ctx ends.
func runFeed(ctx context.Context, hub *live.Hub, feed live.ChangeFeed, logger *zap.Logger) {
	for {
		err := hub.Run(ctx, feed)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("change feed stopped, resubscribing", zap.Error(err), zap.Duration("delay", feedRetryDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(feedRetryDelay):
		}
	}
}

func newLogger(cfg cliparse.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Dev {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// originChecker mirrors the CORS origins for websocket upgrades.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
