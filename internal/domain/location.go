package domain

import (
	"sync/atomic"
	"time"
)

// displayLocation overrides the zone used at presentation time. Nil means
// the host's local zone, read on every render so TZ changes are honored.
var displayLocation atomic.Pointer[time.Location]

// SetDisplayLocation swaps the presentation time zone. Pass nil to reset to
// the host's local zone.
func SetDisplayLocation(loc *time.Location) {
	displayLocation.Store(loc)
}

// DisplayLocation returns the zone used for rendering dates and times.
func DisplayLocation() *time.Location {
	if loc := displayLocation.Load(); loc != nil {
		return loc
	}
	return time.Local
}
