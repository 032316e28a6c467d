package services

import (
	"time"

	"zerobudget/internal/core"
)

// Clock answers "what day is it" in the ledger's reference time zone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock returns a Clock for loc; nil means UTC.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

// FixedClock always reports t. Used by workers replaying a date and by tests.
func FixedClock(t time.Time, loc *time.Location) Clock {
	c := NewClock(loc)
	c.Now = func() time.Time { return t }
	return c
}

func (c Clock) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now().In(c.location())
	}
	return c.Now().In(c.location())
}

// Today is the calendar date in the reference zone.
func (c Clock) Today() core.Date {
	return core.DateOf(c.now())
}

// CurrentPeriod returns the (year, month) of today in the reference zone.
func (c Clock) CurrentPeriod() (int, int) {
	t := c.now()
	return t.Year(), int(t.Month())
}

// DaysUntilDue is the day difference between today and due, both as calendar dates.
// Negative values mean the payment is overdue.
func (c Clock) DaysUntilDue(due core.Date) int {
	return c.Today().DaysUntil(due)
}
