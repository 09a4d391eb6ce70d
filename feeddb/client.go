package feeddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrMissingTable indicates that a feed table required for trace building is
// absent from the feed directory.
var ErrMissingTable = errors.New("required feed table missing")

// Feed file names inside a feed directory.
const (
	calendarFile      = "calendar.txt"
	calendarDatesFile = "calendar_dates.txt"
	tripsFile         = "trips.txt"
	stopTimesFile     = "stop_times.txt"
	stopsFile         = "stops.txt"
)

// ImportSummary records how many rows each table contributed and how many
// malformed rows were dropped per file.
type ImportSummary struct {
	Calendars     int
	CalendarDates int
	Trips         int
	StopTimes     int
	Stops         int
	SkippedRows   map[string]int
}

// Client indexes one feed directory in SQLite for trace building. The index is
// rebuilt from the feed files on every import; it holds no state of its own.
type Client struct {
	config        Config
	DB            *sql.DB
	summary       ImportSummary
	importRuntime time.Duration

	// Both calendar files must be present for any service to resolve as
	// active. Tracked at import time because empty tables and missing files
	// are different outcomes.
	hasCalendar      bool
	hasCalendarDates bool
}

// NewClient creates a new Client with the provided configuration.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create feed database: %w", err)
	}

	return &Client{
		config: config,
		DB:     db,
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ImportFromDir loads the feed tables from dir into the index. Missing
// trips.txt, stop_times.txt or stops.txt is a hard failure; missing calendar
// files are tolerated and reported through CalendarAvailable. Malformed rows
// are dropped individually and counted in the import summary.
func (c *Client) ImportFromDir(ctx context.Context, dir string) error {
	startTime := time.Now()
	c.summary = ImportSummary{SkippedRows: make(map[string]int)}

	for _, name := range []string{tripsFile, stopTimesFile, stopsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingTable, name)
		}
	}

	if err := c.importCalendars(ctx, dir); err != nil {
		return err
	}
	if err := c.importCalendarDates(ctx, dir); err != nil {
		return err
	}
	if err := c.importTrips(ctx, dir); err != nil {
		return err
	}
	if err := c.importStopTimes(ctx, dir); err != nil {
		return err
	}
	if err := c.importStops(ctx, dir); err != nil {
		return err
	}

	c.importRuntime = time.Since(startTime)
	if c.config.verbose {
		log.Println("Importing feed data took", c.importRuntime.String())
		log.Printf("Imported %d calendars, %d calendar dates, %d trips, %d stop times, %d stops",
			c.summary.Calendars, c.summary.CalendarDates, c.summary.Trips, c.summary.StopTimes, c.summary.Stops)
		for file, skipped := range c.summary.SkippedRows {
			log.Printf("Skipped %d malformed rows in %s", skipped, file)
		}
	}
	return nil
}

// CalendarAvailable reports whether both calendar.txt and calendar_dates.txt
// were present at import time. When either is missing no service can operate.
func (c *Client) CalendarAvailable() bool {
	return c.hasCalendar && c.hasCalendarDates
}

// Summary returns row counts from the most recent import.
func (c *Client) Summary() ImportSummary {
	return c.summary
}

// TableCounts returns the current number of rows in each feed table.
func (c *Client) TableCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"calendar", "calendar_dates", "trips", "stop_times", "stops"} {
		var count int
		if err := c.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("error counting rows in %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}
