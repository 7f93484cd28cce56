package clock

import "time"

type Fake struct {
	now time.Time
	loc *time.Location
}

func NewFake(t time.Time, loc *time.Location) *Fake {
	if loc == nil {
		loc = time.UTC
	}
	return &Fake{now: t.UTC(), loc: loc}
}

func (c *Fake) Now() time.Time { return c.now }

func (c *Fake) Today() time.Time { return DateOf(c.now, c.loc) }

func (c *Fake) Location() *time.Location { return c.loc }

func (c *Fake) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
