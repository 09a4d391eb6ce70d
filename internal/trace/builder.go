package trace

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"bustrails.opentransit.org/feeddb"
	"bustrails.opentransit.org/internal/appconf"
	"bustrails.opentransit.org/internal/logging"
	"bustrails.opentransit.org/internal/metrics"
	"bustrails.opentransit.org/internal/models"
	"bustrails.opentransit.org/internal/schedule"
)

// Config holds the settings for a trace build.
type Config struct {
	FeedDir    string
	Env        appconf.Environment
	Step       int // sampling interval in seconds, DefaultStep when zero
	Workers    int // trip workers, NumCPU when zero
	LimitTrips int // positive caps trips for diagnostic partial runs
	Verbose    bool
}

// Builder turns one feed directory plus a date into a DayCache. It owns no
// persistent state: every build indexes the feed files from scratch, so the
// result is a pure function of the files and the date.
type Builder struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Collector
}

func NewBuilder(config Config, logger *slog.Logger, collector *metrics.Collector) *Builder {
	if config.Step <= 0 {
		config.Step = DefaultStep
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	return &Builder{
		config:  config,
		logger:  logger,
		metrics: collector,
	}
}

// BuildDayCache computes the full interpolated trace for one date. A date on
// which no service operates yields an empty, valid DayCache. Missing required
// feed tables are a hard failure.
func (b *Builder) BuildDayCache(ctx context.Context, date time.Time) (cache *models.DayCache, err error) {
	startTime := time.Now()
	defer func() {
		if err == nil && b.metrics != nil {
			b.metrics.BuildDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	feed, err := feeddb.NewClient(feeddb.NewConfig(":memory:", b.config.Env, b.config.Verbose))
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(feed, b.logger, "close_feed_index")

	if err := feed.ImportFromDir(ctx, b.config.FeedDir); err != nil {
		return nil, fmt.Errorf("importing feed from %s: %w", b.config.FeedDir, err)
	}

	dateStr := date.Format("2006-01-02")
	active, err := b.resolveServices(ctx, feed, date)
	if err != nil {
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.ActiveServices.Set(float64(len(active)))
	}
	if len(active) == 0 {
		b.logger.Info("no service operates on this date", slog.String("date", dateStr))
		return &models.DayCache{Date: dateStr, Points: []models.TracePoint{}}, nil
	}

	trips, err := feed.TripsForServices(ctx, active, b.config.LimitTrips)
	if err != nil {
		return nil, err
	}
	stops, err := feed.StopCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	// Output order is ascending trip ID regardless of feed file order or
	// worker completion order.
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })

	stopTimes := make([][]feeddb.StopTime, len(trips))
	for i, trip := range trips {
		stopTimes[i], err = feed.StopTimesForTrip(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
	}

	traces := b.buildTripTraces(trips, stopTimes, stops)

	points := make([]models.TracePoint, 0)
	for _, tripTrace := range traces {
		points = append(points, tripTrace...)
	}

	logging.LogOperation(b.logger, "day cache built",
		slog.String("date", dateStr),
		slog.Int("active_services", len(active)),
		slog.Int("trips", len(trips)),
		slog.Int("points", len(points)),
		slog.Duration("duration", time.Since(startTime)))

	return &models.DayCache{Date: dateStr, Points: points}, nil
}

// resolveServices computes the active service set for the date. Both calendar
// files must have been present at import; otherwise no service operates.
func (b *Builder) resolveServices(ctx context.Context, feed *feeddb.Client, date time.Time) (map[string]struct{}, error) {
	if !feed.CalendarAvailable() {
		b.logger.Warn("calendar tables missing from feed, no services resolve",
			slog.String("feed_dir", b.config.FeedDir))
		return map[string]struct{}{}, nil
	}

	calendars, err := feed.CalendarRows(ctx)
	if err != nil {
		return nil, err
	}
	exceptions, err := feed.CalendarDateRows(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]schedule.CalendarRule, len(calendars))
	for i, cal := range calendars {
		rules[i] = schedule.CalendarRule{
			ServiceID: cal.ServiceID,
			Monday:    cal.Monday,
			Tuesday:   cal.Tuesday,
			Wednesday: cal.Wednesday,
			Thursday:  cal.Thursday,
			Friday:    cal.Friday,
			Saturday:  cal.Saturday,
			Sunday:    cal.Sunday,
			StartDate: cal.StartDate,
			EndDate:   cal.EndDate,
		}
	}
	overrides := make([]schedule.CalendarException, len(exceptions))
	for i, exc := range exceptions {
		overrides[i] = schedule.CalendarException{
			ServiceID: exc.ServiceID,
			Date:      exc.Date,
			Kind:      exc.ExceptionType,
		}
	}

	return schedule.ActiveServices(date, rules, overrides), nil
}

// buildTripTraces walks every trip's stop sequence on a worker pool. Trips are
// independent units of work; results land in a slice indexed by trip position
// so concatenation order never depends on completion order.
func (b *Builder) buildTripTraces(trips []feeddb.Trip, stopTimes [][]feeddb.StopTime, stops map[string]feeddb.Stop) [][]models.TracePoint {
	traces := make([][]models.TracePoint, len(trips))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				traces[i] = b.buildTripTrace(trips[i], stopTimes[i], stops)
			}
		}()
	}
	for i := range trips {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return traces
}

// buildTripTrace interpolates one trip. Segments with unparseable departure
// times, non-positive durations or unknown stops are skipped individually; a
// trip that produces no segments is not an error.
func (b *Builder) buildTripTrace(trip feeddb.Trip, stopTimes []feeddb.StopTime, stops map[string]feeddb.Stop) []models.TracePoint {
	if b.metrics != nil {
		b.metrics.TripsProcessed.Inc()
	}
	b.logger.Debug("processing trip",
		slog.String("trip_id", trip.ID),
		slog.Int("stop_times", len(stopTimes)))

	var points []models.TracePoint
	for i := 0; i+1 < len(stopTimes); i++ {
		visitA, visitB := stopTimes[i], stopTimes[i+1]

		tA, okA := schedule.ParseTimeOfDay(visitA.DepartureTime)
		tB, okB := schedule.ParseTimeOfDay(visitB.DepartureTime)
		if !okA || !okB {
			b.skipSegment(trip.ID, i, metrics.ReasonBadTime,
				slog.String("departure_a", visitA.DepartureTime),
				slog.String("departure_b", visitB.DepartureTime))
			continue
		}
		if tB <= tA {
			b.skipSegment(trip.ID, i, metrics.ReasonNonPositive,
				slog.Int("t_a", tA), slog.Int("t_b", tB))
			continue
		}

		stopA, okA := stops[visitA.StopID]
		stopB, okB := stops[visitB.StopID]
		if !okA || !okB {
			b.skipSegment(trip.ID, i, metrics.ReasonMissingStop,
				slog.String("stop_a", visitA.StopID),
				slog.String("stop_b", visitB.StopID))
			continue
		}

		segment := InterpolateSegment(trip.ID, trip.RouteID,
			tA, tB, stopA.Lat, stopA.Lon, stopB.Lat, stopB.Lon, b.config.Step)
		points = append(points, segment...)
	}

	if b.metrics != nil {
		b.metrics.PointsGenerated.Add(float64(len(points)))
		if len(points) == 0 {
			b.metrics.TripsEmpty.Inc()
		}
	}
	return points
}

func (b *Builder) skipSegment(tripID string, index int, reason string, attrs ...slog.Attr) {
	if b.metrics != nil {
		b.metrics.SegmentsSkipped.WithLabelValues(reason).Inc()
	}
	args := make([]any, 0, len(attrs)+3)
	args = append(args,
		slog.String("trip_id", tripID),
		slog.Int("segment", index),
		slog.String("reason", reason))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	b.logger.Debug("skipping segment", args...)
}
