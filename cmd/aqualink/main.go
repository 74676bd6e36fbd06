package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"aqualink/internal/client"
	"aqualink/internal/config"
	"aqualink/internal/health"
	"aqualink/internal/lockfile"
	"aqualink/internal/logging"
	"aqualink/internal/monitoring"
	"aqualink/internal/server"
	"aqualink/internal/session"
	"aqualink/internal/storage"
	"aqualink/internal/view"
	"aqualink/internal/watchdog"
)

var (
	configPath = flag.String("config", "/etc/aqualink/config.yaml", "Path to config file")
	version    = flag.Bool("version", false, "Print version and exit")
	appVersion = "dev" // Set by -ldflags during build
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("aqualink %s\n", appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.LevelInfo
	if cfg.Logging.Level != "" {
		logLevel = logging.Level(cfg.Logging.Level)
	}
	logFormat := logging.FormatConsole
	if cfg.Logging.Format != "" {
		logFormat = logging.Format(cfg.Logging.Format)
	}

	logger := logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})
	logging.SetDefault(logger)

	logger.Info("Starting dashboard agent",
		slog.String("version", appVersion),
	)
	logger.Info("Configuration loaded",
		slog.String("api_url", cfg.API.BaseURL),
		slog.String("cache_path", cfg.Cache.Path),
		slog.String("listen_address", cfg.Server.GetAddress()),
		slog.String("log_level", string(logLevel)),
		slog.String("log_format", string(logFormat)),
	)

	// Validate() already checked every duration below, so parse errors
	// here are unreachable.
	pollInterval, err := cfg.API.PollInterval()
	if err != nil {
		logger.Error("Invalid poll interval", slog.Any("error", err))
		os.Exit(1)
	}
	timeout, err := cfg.API.Timeout()
	if err != nil {
		logger.Error("Invalid request timeout", slog.Any("error", err))
		os.Exit(1)
	}
	retryBackoff, err := cfg.API.RetryBackoff()
	if err != nil {
		logger.Error("Invalid retry backoff", slog.Any("error", err))
		os.Exit(1)
	}
	maxBackoff, err := cfg.API.MaxBackoff()
	if err != nil {
		logger.Error("Invalid max backoff", slog.Any("error", err))
		os.Exit(1)
	}
	loc, err := cfg.View.Location()
	if err != nil {
		logger.Error("Invalid timezone", slog.Any("error", err))
		os.Exit(1)
	}

	// Acquire a process lock next to the cache database so two agents
	// never share one snapshot file.
	if cfg.Cache.Path != "" {
		lockPath := lockfile.ForCachePath(cfg.Cache.Path)
		lock, err := lockfile.Acquire(lockPath)
		if err != nil {
			logger.Error("Failed to acquire process lock - another instance may be running",
				slog.Any("error", err),
				slog.String("lock_path", lockPath),
			)
			os.Exit(1)
		}
		defer lock.Release()
		logger.Info("Process lock acquired", slog.String("lock_path", lockPath))
	}

	wd := watchdog.NewPinger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if wd.IsEnabled() {
		go wd.Start(ctx)
		logger.Info("Watchdog pinger started", slog.Duration("interval", wd.Interval()))
	}

	// Open the backend session. Token resolution (inline or file) and
	// the session id happen here.
	sess, err := session.Open(cfg)
	if err != nil {
		logger.Error("Failed to open backend session", slog.Any("error", err))
		os.Exit(1)
	}
	defer sess.Close()
	logger.Info("Backend session opened", slog.String("session_id", sess.ID()))

	backend := client.NewWithConfig(sess, client.Config{
		Timeout:       timeout,
		MaxRetries:    cfg.API.MaxRetries,
		RetryDelay:    retryBackoff,
		MaxBackoff:    maxBackoff,
		JitterPercent: cfg.API.JitterPercent,
	})

	// Snapshot cache is optional; without it the view starts blank after
	// a restart instead of showing the last known data.
	var cache storage.Cache
	if cfg.Cache.Path != "" {
		sqliteCache, err := storage.NewSQLiteCache(cfg.Cache.Path)
		if err != nil {
			logger.Error("Failed to initialize snapshot cache", slog.Any("error", err))
			os.Exit(1)
		}
		defer sqliteCache.Close()
		cache = sqliteCache
		logger.Info("Snapshot cache initialized", slog.String("path", cfg.Cache.Path))
	}

	metrics := monitoring.NewCollector()

	healthThresholds := health.ThresholdsFromPollInterval(pollInterval)
	healthChecker := health.NewChecker(healthThresholds)
	logger.Info("Health checker initialized",
		slog.Duration("poll_interval", pollInterval),
		slog.Int("ok_threshold_sec", healthThresholds.CatalogOKInterval),
		slog.Int("degraded_threshold_sec", healthThresholds.CatalogDegradedInterval),
	)

	orch := view.New(view.Options{
		Backend:      backend,
		Cache:        cache,
		Logger:       logger,
		Metrics:      metrics,
		Health:       healthChecker,
		Location:     loc,
		PollInterval: pollInterval,
		RangeMinutes: cfg.View.GetDefaultRangeMinutes(),
		SessionID:    sess.ID(),
	})

	srv := server.New(orch, backend, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Health server runs on its own port so probes stay reachable even
	// when the main listener misbehaves.
	if cfg.Monitoring.HealthAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting health server", slog.String("address", cfg.Monitoring.HealthAddress))
			if err := healthChecker.StartHTTPServer(ctx, cfg.Monitoring.HealthAddress); err != nil {
				logger.Error("Health server error", slog.Any("error", err))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting view server", slog.String("address", cfg.Server.GetAddress()))
		if err := srv.Start(ctx, cfg.Server.GetAddress()); err != nil {
			logger.Error("View server error", slog.Any("error", err))
		}
	}()

	// Always send READY under systemd, even without a watchdog timeout.
	if watchdog.IsRunningUnderSystemd() {
		sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
		if err != nil {
			logger.Error("Failed to notify systemd ready", slog.Any("error", err))
		} else if sent {
			logger.Info("Notified systemd: service ready")
		}
	}
	logger.Info("Dashboard agent started. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Shutdown signal received, stopping...")

	if watchdog.IsRunningUnderSystemd() {
		sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
		if err != nil {
			logger.Error("Failed to notify systemd stopping", slog.Any("error", err))
		} else if sent {
			logger.Info("Notified systemd: service stopping")
		}
	}

	cancel()
	wg.Wait()

	logger.Info("Shutdown complete")
}
