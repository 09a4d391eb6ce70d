package app

import (
	"log/slog"

	"bustrails.opentransit.org/internal/appconf"
	"bustrails.opentransit.org/internal/cache"
	"bustrails.opentransit.org/internal/metrics"
	"bustrails.opentransit.org/internal/trace"
)

// Config holds all the configuration settings for one invocation: the target
// date plus feed and cache locations, and the knobs for diagnostic runs.
type Config struct {
	Date        string // YYYY-MM-DD
	GTFSDir     string
	CacheDir    string
	Step        int
	Workers     int
	LimitTrips  int
	Verbose     bool
	MetricsAddr string
	Env         appconf.Environment
}

// Application holds the dependencies of the build pipeline.
type Application struct {
	Config  Config
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Builder *trace.Builder
	Store   *cache.Store
}
