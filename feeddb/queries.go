package feeddb

import (
	"context"
	"fmt"
	"strings"
)

// CalendarRows returns all calendar rows in feed file order.
func (c *Client) CalendarRows(ctx context.Context) ([]Calendar, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT service_id, monday, tuesday, wednesday, thursday,
		       friday, saturday, sunday, start_date, end_date
		FROM calendar ORDER BY rowid;
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying calendar: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var calendars []Calendar
	for rows.Next() {
		var cal Calendar
		err := rows.Scan(
			&cal.ServiceID, &cal.Monday, &cal.Tuesday, &cal.Wednesday, &cal.Thursday,
			&cal.Friday, &cal.Saturday, &cal.Sunday, &cal.StartDate, &cal.EndDate,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning calendar row: %w", err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

// CalendarDateRows returns all exception rows in feed file order. Order
// matters: conflicting exceptions for the same service and date resolve by
// whichever row comes later in the file.
func (c *Client) CalendarDateRows(ctx context.Context) ([]CalendarDate, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT service_id, date, exception_type
		FROM calendar_dates ORDER BY rowid;
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying calendar_dates: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var dates []CalendarDate
	for rows.Next() {
		var cd CalendarDate
		if err := rows.Scan(&cd.ServiceID, &cd.Date, &cd.ExceptionType); err != nil {
			return nil, fmt.Errorf("error scanning calendar_dates row: %w", err)
		}
		dates = append(dates, cd)
	}
	return dates, rows.Err()
}

// TripsForServices returns trips whose service is in serviceIDs, in feed file
// order. A positive limit caps the result for diagnostic partial runs.
func (c *Client) TripsForServices(ctx context.Context, serviceIDs map[string]struct{}, limit int) ([]Trip, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(serviceIDs))
	args := make([]any, 0, len(serviceIDs)+1)
	for id := range serviceIDs {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT trip_id, route_id, service_id FROM trips
		WHERE service_id IN (%s) ORDER BY rowid
	`, strings.Join(placeholders, ", "))
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying trips: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var trips []Trip
	for rows.Next() {
		var trip Trip
		if err := rows.Scan(&trip.ID, &trip.RouteID, &trip.ServiceID); err != nil {
			return nil, fmt.Errorf("error scanning trip row: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// StopTimesForTrip returns the stop visits of one trip ordered by stop_sequence.
func (c *Client) StopTimesForTrip(ctx context.Context, tripID string) ([]StopTime, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT trip_id, stop_id, stop_sequence, departure_time
		FROM stop_times WHERE trip_id = ? ORDER BY stop_sequence;
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("error querying stop_times for trip %s: %w", tripID, err)
	}
	defer rows.Close() // nolint:errcheck

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.StopID, &st.StopSequence, &st.DepartureTime); err != nil {
			return nil, fmt.Errorf("error scanning stop_times row: %w", err)
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

// StopCoordinates returns a stop_id keyed map of coordinates. Lookups that
// miss the map mean the stop was absent or malformed in stops.txt; callers
// skip such segments explicitly.
func (c *Client) StopCoordinates(ctx context.Context) (map[string]Stop, error) {
	rows, err := c.DB.QueryContext(ctx, `SELECT stop_id, stop_lat, stop_lon FROM stops;`)
	if err != nil {
		return nil, fmt.Errorf("error querying stops: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	coords := make(map[string]Stop)
	for rows.Next() {
		var stop Stop
		if err := rows.Scan(&stop.ID, &stop.Lat, &stop.Lon); err != nil {
			return nil, fmt.Errorf("error scanning stop row: %w", err)
		}
		coords[stop.ID] = stop
	}
	return coords, rows.Err()
}
