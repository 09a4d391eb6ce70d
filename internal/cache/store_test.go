package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustrails.opentransit.org/internal/logging"
	"bustrails.opentransit.org/internal/metrics"
	"bustrails.opentransit.org/internal/models"
)

func testDate(t *testing.T) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", "2025-07-15")
	require.NoError(t, err)
	return date
}

func samplePoints() []models.TracePoint {
	return []models.TracePoint{
		{TripID: "T1", Timestamp: 28800, Lat: 35.0, Lon: 133.0, RouteID: "R1"},
		{TripID: "T1", Timestamp: 28805, Lat: 35.01, Lon: 133.01, RouteID: "R1"},
		{TripID: "T2", Timestamp: 32400, Lat: 35.1, Lon: 133.1, RouteID: "R2"},
	}
}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)
	return NewStore(dir, logger, metrics.NewCollector())
}

// countingBuild returns a BuildFunc that serves fixed points and counts calls.
func countingBuild(points []models.TracePoint, calls *int) BuildFunc {
	return func(ctx context.Context, date time.Time) (*models.DayCache, error) {
		*calls++
		return &models.DayCache{Date: date.Format("2006-01-02"), Points: points}, nil
	}
}

func TestLoadOrBuild_BuildsOnceThenLoads(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	calls := 0
	build := countingBuild(samplePoints(), &calls)

	first, err := store.LoadOrBuild(ctx, testDate(t), build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.FileExists(t, store.ParquetPath("2025-07-15"))

	second, err := store.LoadOrBuild(ctx, testDate(t), build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second request must be served from the artifact")
	assert.Equal(t, first.Points, second.Points)
}

func TestLoadOrBuild_IdempotentArtifacts(t *testing.T) {
	ctx := context.Background()
	calls := 0
	build := countingBuild(samplePoints(), &calls)

	var contents [][]byte
	for i := 0; i < 2; i++ {
		dir := t.TempDir()
		store := newTestStore(t, dir)
		_, err := store.LoadOrBuild(ctx, testDate(t), build)
		require.NoError(t, err)

		data, err := os.ReadFile(store.ParquetPath("2025-07-15"))
		require.NoError(t, err)
		contents = append(contents, data)
	}

	assert.Equal(t, contents[0], contents[1],
		"repeated builds of the same date must produce byte-identical artifacts")
}

func TestLoadOrBuild_EmptyCacheIsValid(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	calls := 0
	build := countingBuild([]models.TracePoint{}, &calls)

	dayCache, err := store.LoadOrBuild(ctx, testDate(t), build)
	require.NoError(t, err, "an empty result is not a failure")
	assert.True(t, dayCache.Empty())
	assert.FileExists(t, store.ParquetPath("2025-07-15"))

	reloaded, err := store.LoadOrBuild(ctx, testDate(t), build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, reloaded.Empty())
	assert.NotNil(t, reloaded.Points)
}

func TestLoadOrBuild_PersistFailureStillReturnsResult(t *testing.T) {
	// Using a path under a regular file makes every writer fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	store := newTestStore(t, filepath.Join(blocker, "cache"))

	calls := 0
	dayCache, err := store.LoadOrBuild(context.Background(), testDate(t), countingBuild(samplePoints(), &calls))
	require.NoError(t, err, "persistence failure must not mask a computed result")
	require.NotNil(t, dayCache)
	assert.Len(t, dayCache.Points, 3)
}

func TestLoadOrBuild_CorruptArtifactRebuilds(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(store.ParquetPath("2025-07-15"), []byte("not parquet"), 0o644))

	calls := 0
	dayCache, err := store.LoadOrBuild(ctx, testDate(t), countingBuild(samplePoints(), &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "unreadable artifact should trigger a rebuild")
	assert.Len(t, dayCache.Points, 3)
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus_trails_2025-07-15.csv")
	points := samplePoints()

	require.NoError(t, writeCSV(path, points))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trip_id,timestamp,lat,lon,route_id",
		"fallback artifact should carry a header row")

	got, err := readCSV(path)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestCSVRoundTrip_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus_trails_2025-07-15.csv")

	require.NoError(t, writeCSV(path, nil))
	got, err := readCSV(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadOrBuild_ReadsCSVFallbackArtifact(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	points := samplePoints()
	require.NoError(t, writeCSV(store.CSVPath("2025-07-15"), points))

	calls := 0
	dayCache, err := store.LoadOrBuild(context.Background(), testDate(t), countingBuild(nil, &calls))
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "existing csv artifact should be served without rebuilding")
	assert.Equal(t, points, dayCache.Points)
}

func TestParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)
	points := samplePoints()

	path, err := store.Persist(&models.DayCache{Date: "2025-07-15", Points: points})
	require.NoError(t, err)
	assert.Equal(t, store.ParquetPath("2025-07-15"), path)

	got, err := readParquet(path)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}
