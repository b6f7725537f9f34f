/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the punch clock server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment configuration
  2. Initialize SQLite ledger store
  3. Build the geofence index from stored sites
  4. Wire the directory cache, validator, aggregator and result cache
  5. Start the runaway-shift guard
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    HTTP listen address (overrides PUNCHCLOCK_LISTEN_ADDR)
  -db      SQLite database path (overrides PUNCHCLOCK_DB_PATH)
           Use ":memory:" for an in-memory database

ENVIRONMENT:
  PUNCHCLOCK_LISTEN_ADDR            Listen address (default 0.0.0.0:8080)
  PUNCHCLOCK_DB_PATH                SQLite path (default punchclock.db)
  PUNCHCLOCK_DIRECTORY_FILE         JSON directory snapshot for dev/demo
  PUNCHCLOCK_DIRECTORY_TTL          Directory cache TTL (default 5m)
  PUNCHCLOCK_RESULT_TTL             Labor result cache TTL (default 30s)
  PUNCHCLOCK_OVERTIME_MULTIPLIER    Overtime pay multiplier (default 1.5)
  PUNCHCLOCK_WEEKLY_OVERTIME_HOURS  Weekly overtime threshold (default 40)
  PUNCHCLOCK_SHIFT_GUARD_ENABLED    Run the runaway-shift guard (default true)
  PUNCHCLOCK_SHIFT_GUARD_HOURS      Auto-stop threshold (default 15)
  PUNCHCLOCK_SHIFT_GUARD_INTERVAL   Guard scan interval (default 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the shift guard
  4. Close the database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/warp/punchclock/api"
	"github.com/warp/punchclock/cache"
	"github.com/warp/punchclock/config"
	"github.com/warp/punchclock/directory"
	"github.com/warp/punchclock/labor"
	"github.com/warp/punchclock/punch"
	"github.com/warp/punchclock/store/sqlite"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags override the environment for quick local runs.
	addr := flag.String("addr", cfg.ListenAddr, "HTTP listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Geofence index from stored sites
	sites, err := store.ListSites(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load sites")
	}
	geofence := punch.NewGeofenceIndex(sites)

	// Directory upstream and cache
	var upstream directory.Service
	if cfg.DirectoryFile != "" {
		upstream, err = directory.LoadFile(cfg.DirectoryFile)
		if err != nil {
			log.WithError(err).Fatal("Failed to load directory file")
		}
		log.WithField("file", cfg.DirectoryFile).Info("Loaded directory snapshot")
	} else {
		log.Warn("No directory file configured, starting with an empty directory")
		upstream = directory.NewMemory()
	}
	dirCache := cache.NewDirectoryCache(upstream, log)
	dirCache.SetTTL(cfg.DirectoryTTL)

	// Domain services
	validator := punch.NewValidator(store, geofence, log)
	status := punch.NewStatusResolver(store)

	laborCfg := labor.DefaultConfig()
	laborCfg.WeeklyOvertimeThresholdHours = cfg.WeeklyOvertimeHours
	laborCfg.OvertimeMultiplier = decimal.NewFromFloat(cfg.OvertimeMultiplier)
	aggregator := labor.NewAggregator(store, dirCache, status, laborCfg)

	results, err := cache.NewResultCache()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize result cache")
	}
	defer results.Close()

	// Runaway-shift guard
	if cfg.ShiftGuardEnabled {
		guard := punch.NewShiftGuard(store, log)
		guard.ThresholdHours = cfg.ShiftGuardThreshold
		guard.CheckInterval = cfg.ShiftGuardInterval
		guard.ShareLocks(validator.Locks())
		guard.Start()
		defer guard.Stop()
	}

	// HTTP wiring
	handler := api.NewHandler(store, validator, status, aggregator, dirCache, results, cfg.ResultCacheTTL, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", *addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
