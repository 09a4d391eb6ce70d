package feeddb

// Calendar is one weekly service recurrence row from calendar.txt. Dates stay
// in their raw YYYYMMDD form; the schedule resolver interprets them.
type Calendar struct {
	ServiceID string `csv:"service_id"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
	StartDate string `csv:"start_date"` // start_date (YYYYMMDD)
	EndDate   string `csv:"end_date"`   // end_date (YYYYMMDD)
}

// CalendarDate is one service exception row from calendar_dates.txt.
// ExceptionType 1 adds the service on the date, 2 removes it.
type CalendarDate struct {
	ServiceID     string `csv:"service_id"`
	Date          string `csv:"date"` // YYYYMMDD
	ExceptionType int    `csv:"exception_type"`
}

// Trip is one scheduled vehicle run from trips.txt.
type Trip struct {
	ID        string `csv:"trip_id"`
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
}

// StopTime is one stop visit from stop_times.txt. DepartureTime is kept as the
// raw HH:MM:SS string (hours may exceed 23) and parsed by the time codec when
// traces are built, so malformed values skip a single segment rather than a row.
type StopTime struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	DepartureTime string `csv:"departure_time"`
}

// Stop is one stop location from stops.txt.
type Stop struct {
	ID  string  `csv:"stop_id"`
	Lat float64 `csv:"stop_lat"`
	Lon float64 `csv:"stop_lon"`
}
