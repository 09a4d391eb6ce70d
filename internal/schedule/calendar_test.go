package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func weekdayRule(serviceID string) CalendarRule {
	return CalendarRule{
		ServiceID: serviceID,
		Monday:    1,
		Tuesday:   1,
		Wednesday: 1,
		Thursday:  1,
		Friday:    1,
		StartDate: "20250701",
		EndDate:   "20250731",
	}
}

func TestActiveServices_WeekdayRule(t *testing.T) {
	rules := []CalendarRule{weekdayRule("WKDY")}

	t.Run("active on a Tuesday inside the window", func(t *testing.T) {
		active := ActiveServices(day(t, "2025-07-15"), rules, nil)
		assert.Contains(t, active, "WKDY")
	})

	t.Run("inactive on a Saturday inside the window", func(t *testing.T) {
		active := ActiveServices(day(t, "2025-07-19"), rules, nil)
		assert.Empty(t, active)
	})

	t.Run("inactive outside the validity window", func(t *testing.T) {
		active := ActiveServices(day(t, "2025-08-01"), rules, nil)
		assert.Empty(t, active)
	})

	t.Run("window boundaries are inclusive", func(t *testing.T) {
		active := ActiveServices(day(t, "2025-07-01"), rules, nil) // a Tuesday
		assert.Contains(t, active, "WKDY")
		active = ActiveServices(day(t, "2025-07-31"), rules, nil) // a Thursday
		assert.Contains(t, active, "WKDY")
	})
}

func TestActiveServices_MalformedRules(t *testing.T) {
	rules := []CalendarRule{
		{ServiceID: "BAD_START", Tuesday: 1, StartDate: "not-a-date", EndDate: "20250731"},
		{ServiceID: "BAD_END", Tuesday: 1, StartDate: "20250701", EndDate: ""},
		// Inverted window contains no dates and is effectively unusable.
		{ServiceID: "INVERTED", Tuesday: 1, StartDate: "20250731", EndDate: "20250701"},
		weekdayRule("GOOD"),
	}

	active := ActiveServices(day(t, "2025-07-15"), rules, nil)
	assert.Equal(t, map[string]struct{}{"GOOD": {}}, active)
}

func TestActiveServices_Exceptions(t *testing.T) {
	rules := []CalendarRule{weekdayRule("WKDY")}

	t.Run("added exception inserts a service with no rule", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "SPECIAL", Date: "20250715", Kind: ExceptionAdded},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.Contains(t, active, "SPECIAL")
		assert.Contains(t, active, "WKDY")
	})

	t.Run("removed exception deletes a rule-derived service", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "WKDY", Date: "20250715", Kind: ExceptionRemoved},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.Empty(t, active)
	})

	t.Run("removing an absent service is a no-op", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "GHOST", Date: "20250715", Kind: ExceptionRemoved},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.Equal(t, map[string]struct{}{"WKDY": {}}, active)
	})

	t.Run("exceptions for other dates are ignored", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "WKDY", Date: "20250716", Kind: ExceptionRemoved},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.Contains(t, active, "WKDY")
	})

	t.Run("conflicting exceptions apply in table order", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "FLIP", Date: "20250715", Kind: ExceptionAdded},
			{ServiceID: "FLIP", Date: "20250715", Kind: ExceptionRemoved},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.NotContains(t, active, "FLIP")

		reversed := []CalendarException{
			{ServiceID: "FLIP", Date: "20250715", Kind: ExceptionRemoved},
			{ServiceID: "FLIP", Date: "20250715", Kind: ExceptionAdded},
		}
		active = ActiveServices(day(t, "2025-07-15"), rules, reversed)
		assert.Contains(t, active, "FLIP")
	})

	t.Run("unknown exception kinds are skipped", func(t *testing.T) {
		exceptions := []CalendarException{
			{ServiceID: "WKDY", Date: "20250715", Kind: 9},
		}
		active := ActiveServices(day(t, "2025-07-15"), rules, exceptions)
		assert.Contains(t, active, "WKDY")
	})
}

func TestActiveServices_NoData(t *testing.T) {
	active := ActiveServices(day(t, "2025-07-15"), nil, nil)
	assert.NotNil(t, active)
	assert.Empty(t, active)
}
