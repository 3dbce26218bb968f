// Package clock supplies the business-day boundary for ticket numbering.
// Instants are always UTC; the local calendar day and local timestamps are
// derived through an explicit *time.Location so that session rollover does
// not depend on where the host machine thinks it is.
package clock

import (
	"time"
)

const (
	// FechaFormat is the calendar-day format that keys ticket sessions.
	FechaFormat = "2006-01-02"
	// TimestampFormat is the local timestamp printed on tickets.
	TimestampFormat = "2006-01-02 15:04:05"
)

// Clock abstracts "now" so services and tests can control the business day.
type Clock interface {
	// Now returns the current instant in UTC.
	Now() time.Time
	// Today returns the current local calendar day as YYYY-MM-DD.
	Today() string
	// FechaDe converts any instant to its local calendar day.
	FechaDe(t time.Time) string
	// Timestamp formats an instant as a local YYYY-MM-DD HH:MM:SS string.
	Timestamp(t time.Time) string
	// Location returns the configured business time zone.
	Location() *time.Location
}

// SystemClock is the production Clock, bound to one time zone for the
// lifetime of the process.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock builds a SystemClock for the named IANA zone.
// An empty name falls back to the operating system's local zone.
func NewSystemClock(tz string) (*SystemClock, error) {
	if tz == "" {
		return &SystemClock{loc: time.Local}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &SystemClock{loc: loc}, nil
}

func (c *SystemClock) Now() time.Time { return time.Now().UTC() }

func (c *SystemClock) Today() string { return c.FechaDe(c.Now()) }

func (c *SystemClock) FechaDe(t time.Time) string {
	return t.In(c.loc).Format(FechaFormat)
}

func (c *SystemClock) Timestamp(t time.Time) string {
	return t.In(c.loc).Format(TimestampFormat)
}

func (c *SystemClock) Location() *time.Location { return c.loc }
