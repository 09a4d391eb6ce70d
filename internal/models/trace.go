package models

// TracePoint is a single interpolated position sample for one trip. Timestamp
// is in seconds since local midnight and may exceed 86399 for trips that run
// past midnight. Field order matches the artifact column order.
type TracePoint struct {
	TripID    string  `csv:"trip_id" parquet:"trip_id"`
	Timestamp int64   `csv:"timestamp" parquet:"timestamp"`
	Lat       float64 `csv:"lat" parquet:"lat"`
	Lon       float64 `csv:"lon" parquet:"lon"`
	RouteID   string  `csv:"route_id" parquet:"route_id"`
}

// DayCache is the full ordered trace for a single service date. Points are
// sorted by trip ID, then by timestamp within each trip. Once persisted a
// DayCache is immutable; repeated builds for the same date and feed must
// produce identical content.
type DayCache struct {
	Date   string
	Points []TracePoint
}

// Empty reports whether the cache holds no position samples. An empty cache
// is a valid outcome for dates with no operating services.
func (c *DayCache) Empty() bool {
	return len(c.Points) == 0
}
