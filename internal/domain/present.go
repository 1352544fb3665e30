package domain

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	locationSeparator = " of "
	nearTheOffset     = "Near the"

	dateLayout         = "Jan 02, 2006"
	timeLayout         = "3:04 PM"
	headlineDateLayout = "Mon, 2 Jan 2006 at 15:04:05 MST"
)

// SeverityBucket is floor(magnitude) clamped to [0, SeverityTenPlus].
type SeverityBucket int

// SeverityTenPlus is the bucket for magnitudes >= 10 and for anything that
// floors below zero.
const SeverityTenPlus SeverityBucket = 10

// BucketFor returns the severity bucket for a magnitude.
func BucketFor(magnitude float64) SeverityBucket {
	floor := math.Floor(magnitude)
	if math.IsNaN(floor) || floor < 0 || floor >= float64(SeverityTenPlus) {
		return SeverityTenPlus
	}
	return SeverityBucket(floor)
}

// Tier is the display tier of the bucket. Buckets 0 and 1 share tier 1.
func (b SeverityBucket) Tier() int {
	switch {
	case b <= 1:
		return 1
	case b >= SeverityTenPlus:
		return int(SeverityTenPlus)
	default:
		return int(b)
	}
}

// Present maps an event to its view model. It is deterministic for a fixed
// display location.
func Present(e Event) EventViewModel {
	offset, primary := splitLocation(e.Location)
	at := renderTime(e.OccurredAtMillis)

	return EventViewModel{
		FormattedMagnitude: formatMagnitude(e.Magnitude),
		SeverityBucket:     BucketFor(e.Magnitude),
		LocationOffset:     offset,
		PrimaryLocation:    primary,
		FormattedDate:      at.Format(dateLayout),
		FormattedTime:      at.Format(timeLayout),
		DetailURL:          e.DetailURL,
	}
}

// PresentAll maps events to view models in order.
func PresentAll(events []Event) []EventViewModel {
	return lo.Map(events, func(e Event, _ int) EventViewModel {
		return Present(e)
	})
}

// PresentHeadline maps a headline to its view model.
func PresentHeadline(h Headline) HeadlineViewModel {
	return HeadlineViewModel{
		Title:         h.Title,
		FormattedDate: renderTime(h.OccurredAtMillis).Format(headlineDateLayout),
		TsunamiAlert:  tsunamiAlertText(h.TsunamiAlert),
	}
}

// splitLocation splits "5km SW of Fooville" into ("5km SW of", "Fooville").
// Only the first separator splits, so "10km N of Gulf of Aqaba" keeps
// "Gulf of Aqaba" intact.
func splitLocation(location string) (offset, primary string) {
	prefix, suffix, found := strings.Cut(location, locationSeparator)
	if !found {
		return nearTheOffset, location
	}
	return prefix + strings.TrimRight(locationSeparator, " "), suffix
}

// formatMagnitude renders exactly one decimal place, e.g. 6.849 -> "6.8".
func formatMagnitude(magnitude float64) string {
	return strconv.FormatFloat(magnitude, 'f', 1, 64)
}

func tsunamiAlertText(alert int) string {
	switch alert {
	case 0:
		return "No"
	case 1:
		return "Yes"
	default:
		return "Not available"
	}
}

func renderTime(millis int64) time.Time {
	return time.UnixMilli(millis).In(DisplayLocation())
}
