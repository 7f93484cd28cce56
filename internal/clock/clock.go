// Package clock supplies the current time in the shop's business time zone.
// Discount days and order items both derive "today" from the same Clock so
// that pricing never depends on the server's local zone.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// Today is the current calendar day in the business zone, as midnight UTC.
	Today() time.Time
	Location() *time.Location
}

// DateOf returns the calendar day of t in loc, normalized to midnight UTC.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type System struct {
	loc *time.Location
}

func New(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc}
}

func (c *System) Now() time.Time { return time.Now().UTC() }

func (c *System) Today() time.Time { return DateOf(time.Now(), c.loc) }

func (c *System) Location() *time.Location { return c.loc }
