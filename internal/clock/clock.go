// Package clock formats channel-local civil timestamps.
package clock

import (
	"fmt"
	"time"
)

const civilLayout = "2006-01-02 15:04:05"

// Civil renders wall-clock timestamps in a fixed location, second precision.
type Civil struct {
	loc *time.Location
	now func() time.Time
}

// NewCivil loads the named IANA timezone.
func NewCivil(timezone string) (*Civil, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Civil{loc: loc, now: time.Now}, nil
}

// Now returns the current civil time string.
func (c *Civil) Now() string {
	return c.now().In(c.loc).Format(civilLayout)
}
