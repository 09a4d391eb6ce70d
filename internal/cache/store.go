// Package cache persists day traces as date-keyed artifacts. The primary
// format is compressed parquet; persistence degrades through an uncompressed
// parquet write and finally a plain CSV before giving up. A failed write never
// discards a correctly computed in-memory result.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"bustrails.opentransit.org/internal/logging"
	"bustrails.opentransit.org/internal/metrics"
	"bustrails.opentransit.org/internal/models"
)

// artifactPrefix names artifacts bus_trails_<YYYY-MM-DD>.<ext>.
const artifactPrefix = "bus_trails_"

// BuildFunc computes a DayCache on a cache miss.
type BuildFunc func(ctx context.Context, date time.Time) (*models.DayCache, error)

// Store owns the on-disk artifact lifecycle for one cache directory. Artifacts
// are keyed solely by date and never expire; invalidation means deleting the
// file out of band.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewStore(dir string, logger *slog.Logger, collector *metrics.Collector) *Store {
	return &Store{
		dir:     dir,
		logger:  logger,
		metrics: collector,
	}
}

// ParquetPath returns the primary artifact path for a date string.
func (s *Store) ParquetPath(date string) string {
	return filepath.Join(s.dir, artifactPrefix+date+".parquet")
}

// CSVPath returns the fallback artifact path for a date string.
func (s *Store) CSVPath(date string) string {
	return filepath.Join(s.dir, artifactPrefix+date+".csv")
}

// LoadOrBuild returns the trace for a date, reading an existing artifact when
// one is present and otherwise invoking build and persisting the result.
// Persistence failure is reported as a warning; the computed cache is returned
// either way.
func (s *Store) LoadOrBuild(ctx context.Context, date time.Time, build BuildFunc) (*models.DayCache, error) {
	dateStr := date.Format("2006-01-02")

	if cached, ok := s.load(dateStr); ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
		logging.LogOperation(s.logger, "day cache loaded from artifact",
			slog.String("date", dateStr),
			slog.Int("points", len(cached.Points)))
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	dayCache, err := build(ctx, date)
	if err != nil {
		return nil, err
	}

	if path, persistErr := s.Persist(dayCache); persistErr != nil {
		s.logger.Warn("failed to persist day cache, returning in-memory result",
			slog.String("date", dateStr),
			slog.String("error", persistErr.Error()))
	} else {
		logging.LogOperation(s.logger, "day cache written",
			slog.String("date", dateStr),
			slog.String("path", path),
			slog.Int("points", len(dayCache.Points)))
	}

	return dayCache, nil
}

// load reads an existing artifact for the date, preferring the parquet form.
// An unreadable artifact is reported and treated as a miss so the trace can be
// rebuilt.
func (s *Store) load(date string) (*models.DayCache, bool) {
	if path := s.ParquetPath(date); fileExists(path) {
		points, err := readParquet(path)
		if err != nil {
			s.logger.Warn("unreadable parquet artifact, rebuilding",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, false
		}
		if points == nil {
			points = []models.TracePoint{}
		}
		return &models.DayCache{Date: date, Points: points}, true
	}

	if path := s.CSVPath(date); fileExists(path) {
		points, err := readCSV(path)
		if err != nil {
			s.logger.Warn("unreadable csv artifact, rebuilding",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, false
		}
		return &models.DayCache{Date: date, Points: points}, true
	}

	return nil, false
}

// Persist writes the cache through the writer chain: zstd parquet, then
// uncompressed parquet, then plain CSV. It returns the path written, or an
// error if every writer failed.
func (s *Store) Persist(dayCache *models.DayCache) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating cache directory: %w", err)
	}

	path := s.ParquetPath(dayCache.Date)
	err := writeParquet(path, dayCache.Points, &parquet.Zstd)
	if err == nil {
		return path, nil
	}
	s.logger.Warn("compressed parquet write failed, retrying uncompressed",
		slog.String("path", path),
		slog.String("error", err.Error()))

	err = writeParquet(path, dayCache.Points, &parquet.Uncompressed)
	if err == nil {
		return path, nil
	}
	s.logger.Warn("parquet write failed, falling back to csv",
		slog.String("path", path),
		slog.String("error", err.Error()))

	csvPath := s.CSVPath(dayCache.Date)
	if err := writeCSV(csvPath, dayCache.Points); err != nil {
		return "", fmt.Errorf("every artifact writer failed, last error: %w", err)
	}
	return csvPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
