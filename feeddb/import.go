package feeddb

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
)

// readTable decodes one feed CSV file into rows of type T. Rows that fail to
// decode (wrong field count, non-numeric values for typed columns) are dropped
// individually; the number of dropped rows is returned alongside the good ones.
func readTable[T any](path string) ([]T, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close() // nolint:errcheck

	reader := csv.NewReader(f)
	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: no rows, not an error.
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("error reading header of %s: %w", filepath.Base(path), err)
	}

	var rows []T
	skipped := 0
	for {
		var row T
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped, nil
}

// insertRows writes rows with a prepared statement inside one transaction,
// preserving feed file order in the table's rowid.
func insertRows[T any](ctx context.Context, db *sql.DB, query string, rows []T, bind func(T) []any) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close() // nolint:errcheck

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, bind(row)...); err != nil {
			tx.Rollback() // nolint:errcheck
			return fmt.Errorf("error inserting row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) importCalendars(ctx context.Context, dir string) error {
	path := filepath.Join(dir, calendarFile)
	if _, err := os.Stat(path); err != nil {
		c.hasCalendar = false
		return nil
	}
	c.hasCalendar = true

	rows, skipped, err := readTable[Calendar](path)
	if err != nil {
		return err
	}
	c.summary.Calendars = len(rows)
	if skipped > 0 {
		c.summary.SkippedRows[calendarFile] = skipped
	}

	return insertRows(ctx, c.DB, `
		INSERT INTO calendar (
			service_id, monday, tuesday, wednesday, thursday,
			friday, saturday, sunday, start_date, end_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, rows, func(cal Calendar) []any {
		return []any{
			cal.ServiceID, cal.Monday, cal.Tuesday, cal.Wednesday, cal.Thursday,
			cal.Friday, cal.Saturday, cal.Sunday, cal.StartDate, cal.EndDate,
		}
	})
}

func (c *Client) importCalendarDates(ctx context.Context, dir string) error {
	path := filepath.Join(dir, calendarDatesFile)
	if _, err := os.Stat(path); err != nil {
		c.hasCalendarDates = false
		return nil
	}
	c.hasCalendarDates = true

	rows, skipped, err := readTable[CalendarDate](path)
	if err != nil {
		return err
	}
	c.summary.CalendarDates = len(rows)
	if skipped > 0 {
		c.summary.SkippedRows[calendarDatesFile] = skipped
	}

	return insertRows(ctx, c.DB, `
		INSERT INTO calendar_dates (service_id, date, exception_type)
		VALUES (?, ?, ?);
	`, rows, func(cd CalendarDate) []any {
		return []any{cd.ServiceID, cd.Date, cd.ExceptionType}
	})
}

func (c *Client) importTrips(ctx context.Context, dir string) error {
	rows, skipped, err := readTable[Trip](filepath.Join(dir, tripsFile))
	if err != nil {
		return err
	}
	c.summary.Trips = len(rows)
	if skipped > 0 {
		c.summary.SkippedRows[tripsFile] = skipped
	}

	return insertRows(ctx, c.DB, `
		INSERT OR REPLACE INTO trips (trip_id, route_id, service_id)
		VALUES (?, ?, ?);
	`, rows, func(trip Trip) []any {
		return []any{trip.ID, trip.RouteID, trip.ServiceID}
	})
}

func (c *Client) importStopTimes(ctx context.Context, dir string) error {
	rows, skipped, err := readTable[StopTime](filepath.Join(dir, stopTimesFile))
	if err != nil {
		return err
	}
	c.summary.StopTimes = len(rows)
	if skipped > 0 {
		c.summary.SkippedRows[stopTimesFile] = skipped
	}

	return insertRows(ctx, c.DB, `
		INSERT INTO stop_times (trip_id, stop_id, stop_sequence, departure_time)
		VALUES (?, ?, ?, ?);
	`, rows, func(st StopTime) []any {
		return []any{st.TripID, st.StopID, st.StopSequence, st.DepartureTime}
	})
}

func (c *Client) importStops(ctx context.Context, dir string) error {
	rows, skipped, err := readTable[Stop](filepath.Join(dir, stopsFile))
	if err != nil {
		return err
	}
	c.summary.Stops = len(rows)
	if skipped > 0 {
		c.summary.SkippedRows[stopsFile] = skipped
	}

	return insertRows(ctx, c.DB, `
		INSERT OR REPLACE INTO stops (stop_id, stop_lat, stop_lon)
		VALUES (?, ?, ?);
	`, rows, func(stop Stop) []any {
		return []any{stop.ID, stop.Lat, stop.Lon}
	})
}
