// Command bustrails builds the dense per-vehicle position trace for one
// calendar date from a schedule feed directory, caching the result as a
// date-keyed artifact for repeated playback runs.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"bustrails.opentransit.org/internal/app"
	"bustrails.opentransit.org/internal/appconf"
	"bustrails.opentransit.org/internal/cache"
	"bustrails.opentransit.org/internal/logging"
	"bustrails.opentransit.org/internal/metrics"
	"bustrails.opentransit.org/internal/trace"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	// .env provides defaults for the flags below; missing file is fine.
	_ = godotenv.Load()

	var cfg app.Config
	var envFlag string

	fs := flag.NewFlagSet("bustrails", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.Date, "date", "", "Target date in YYYY-MM-DD format (required)")
	fs.StringVar(&cfg.GTFSDir, "gtfs-dir", getenvDefault("BUSTRAILS_GTFS_DIR", "data/gtfs/LATEST"), "Path to the feed directory")
	fs.StringVar(&cfg.CacheDir, "cache-dir", getenvDefault("BUSTRAILS_CACHE_DIR", "data/cache"), "Path to the cache directory")
	fs.IntVar(&cfg.Step, "step", getenvIntDefault("BUSTRAILS_STEP", trace.DefaultStep), "Sampling interval in seconds")
	fs.IntVar(&cfg.Workers, "workers", 0, "Trip workers (0 means one per CPU)")
	fs.IntVar(&cfg.LimitTrips, "limit-trips", 0, "Limit number of trips processed (diagnostics)")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", os.Getenv("BUSTRAILS_METRICS_ADDR"), "Address for the /metrics listener (empty disables it)")
	fs.StringVar(&envFlag, "env", "development", "Environment (development|test|production)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.Env = appconf.EnvFromString(envFlag)

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(out, level)

	if cfg.Date == "" {
		logger.Error("missing required -date flag")
		return 2
	}
	date, err := time.Parse("2006-01-02", cfg.Date)
	if err != nil {
		logging.LogError(logger, "unparseable date, expected YYYY-MM-DD", err,
			slog.String("date", cfg.Date))
		return 2
	}
	if cfg.Step <= 0 {
		logger.Error("sampling step must be a positive integer",
			slog.Int("step", cfg.Step))
		return 2
	}

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		collector.Serve(cfg.MetricsAddr, logger)
	}

	application := &app.Application{
		Config:  cfg,
		Logger:  logger,
		Metrics: collector,
		Builder: trace.NewBuilder(trace.Config{
			FeedDir:    cfg.GTFSDir,
			Env:        cfg.Env,
			Step:       cfg.Step,
			Workers:    cfg.Workers,
			LimitTrips: cfg.LimitTrips,
			Verbose:    cfg.Verbose,
		}, logger, collector),
		Store: cache.NewStore(cfg.CacheDir, logger, collector),
	}

	dayCache, err := application.Store.LoadOrBuild(context.Background(), date, application.Builder.BuildDayCache)
	if err != nil {
		logging.LogError(logger, "day cache build failed", err,
			slog.String("date", cfg.Date),
			slog.String("gtfs_dir", cfg.GTFSDir))
		return 1
	}

	logging.LogOperation(logger, "trace ready",
		slog.String("date", dayCache.Date),
		slog.Int("points", len(dayCache.Points)))
	return 0
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
