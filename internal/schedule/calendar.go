package schedule

import (
	"time"
)

// feedDateLayout is the YYYYMMDD date form used by calendar tables.
const feedDateLayout = "20060102"

// Exception kinds from calendar_dates: 1 adds a service on a date, 2 removes it.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// CalendarRule is one weekly recurrence row: a service runs on the flagged
// weekdays within the inclusive [StartDate, EndDate] window. Dates are kept in
// their raw YYYYMMDD form; rows with unparseable dates are skipped during
// resolution rather than failing the whole feed.
type CalendarRule struct {
	ServiceID string
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
}

// runsOn reports whether the rule's flag for the given weekday is set.
func (r CalendarRule) runsOn(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return r.Monday == 1
	case time.Tuesday:
		return r.Tuesday == 1
	case time.Wednesday:
		return r.Wednesday == 1
	case time.Thursday:
		return r.Thursday == 1
	case time.Friday:
		return r.Friday == 1
	case time.Saturday:
		return r.Saturday == 1
	default:
		return r.Sunday == 1
	}
}

// CalendarException is one date-specific override from calendar_dates.
type CalendarException struct {
	ServiceID string
	Date      string // YYYYMMDD
	Kind      int    // ExceptionAdded or ExceptionRemoved
}

// ActiveServices resolves the set of service IDs operating on the given date.
//
// Weekly rules are evaluated first: a service is added when the date falls
// inside its validity window and its weekday flag is set. Exceptions are then
// applied in table order: Added inserts the service, Removed deletes it if
// present (removing an absent service is a no-op). Rows with unparseable
// dates or unknown exception kinds are skipped individually.
//
// An empty result is a valid outcome meaning no service operates that date.
func ActiveServices(date time.Time, rules []CalendarRule, exceptions []CalendarException) map[string]struct{} {
	active := make(map[string]struct{})

	for _, rule := range rules {
		start, err := time.Parse(feedDateLayout, rule.StartDate)
		if err != nil {
			continue
		}
		end, err := time.Parse(feedDateLayout, rule.EndDate)
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		if rule.runsOn(date.Weekday()) {
			active[rule.ServiceID] = struct{}{}
		}
	}

	target := date.Format(feedDateLayout)
	for _, exc := range exceptions {
		if exc.Date != target {
			continue
		}
		switch exc.Kind {
		case ExceptionAdded:
			active[exc.ServiceID] = struct{}{}
		case ExceptionRemoved:
			delete(active, exc.ServiceID)
		}
	}

	return active
}
