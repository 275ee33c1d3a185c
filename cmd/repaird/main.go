package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"repair-tracker-backend/config"
	"repair-tracker-backend/internal/api"
	"repair-tracker-backend/internal/db"
	"repair-tracker-backend/internal/logger"
	"repair-tracker-backend/internal/metrics"
	"repair-tracker-backend/internal/monitor"
	"repair-tracker-backend/internal/notification"
	"repair-tracker-backend/internal/repair"
	"repair-tracker-backend/internal/store"
	"repair-tracker-backend/internal/timeline"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultConfigPath = "./config/config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "path to the YAML config file (or set CONFIG_PATH env var)")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	// godotenv does not override variables that are already set.
	_ = godotenv.Load()

	configPath := *configFlag
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := logger.New(os.Stdout, level, cfg.Log.Format)
	slog.SetDefault(log)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("repaird starting", "version", version, "commit", commit, "config", configPath)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)

	loc, err := time.LoadLocation(cfg.Timeline.Timezone)
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	var observers []repair.Observer
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		log.Warn("VAPID keys are not configured; push notifications are disabled")
	} else {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, log)
		pool.Start(ctx)

		notifier, err := notification.NewStatusNotifier(pool, cfg.Push.NotifyStatuses)
		if err != nil {
			return fmt.Errorf("invalid push.notify_statuses: %w", err)
		}
		observers = append(observers, notifier)
	}

	machine, err := repair.NewMachine(repair.MachineConfig{
		Logger:    log,
		Clock:     clock,
		Devices:   appStore,
		Actors:    appStore,
		Observers: observers,
	})
	if err != nil {
		return err
	}

	priority := make([]timeline.SourceType, 0, len(cfg.Timeline.SourcePriority))
	for _, name := range cfg.Timeline.SourcePriority {
		st, err := timeline.ParseSourceType(name)
		if err != nil {
			return fmt.Errorf("invalid timeline.source_priority: %w", err)
		}
		priority = append(priority, st)
	}
	aggregator, err := timeline.NewAggregator(priority)
	if err != nil {
		return err
	}
	resolver, err := timeline.NewResolver(timeline.ResolverConfig{
		Logger:    log,
		Directory: appStore,
		TTL:       cfg.Resolver.TTL,
	})
	if err != nil {
		return err
	}
	collector, err := timeline.NewCollector(timeline.CollectorConfig{
		Logger:        log,
		Sources:       appStore,
		SourceTimeout: cfg.Timeline.SourceTimeout,
	})
	if err != nil {
		return err
	}
	timelines, err := timeline.NewService(collector, aggregator, resolver)
	if err != nil {
		return err
	}

	if cfg.Monitor.Enabled {
		monCfg := monitor.Config{
			Logger:       log,
			Clock:        clock,
			Store:        appStore,
			Interval:     cfg.Monitor.Interval,
			UrgentWithin: cfg.Monitor.UrgentWithin,
		}
		if cfg.Monitor.NotifyOverdue && pool != nil {
			monCfg.Notifier = pool
			monCfg.NotifyOverdue = true
		}
		mon, err := monitor.New(monCfg)
		if err != nil {
			return err
		}
		go mon.Run(ctx)
	}

	handler, err := api.NewHandler(api.HandlerConfig{
		Logger:        log,
		Clock:         clock,
		Devices:       appStore,
		Machine:       machine,
		Timelines:     timelines,
		Subscriptions: appStore,
		Webpush:       webpushOptions,
		Location:      loc,
		StreamBuffer:  cfg.Countdown.StreamBuffer,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		return fmt.Errorf("HTTP server: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	log.Info("server gracefully stopped")
	return nil
}
