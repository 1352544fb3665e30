package domain

// Event is one reported earthquake decoded from the list feed.
type Event struct {
	Magnitude        float64
	Location         string
	OccurredAtMillis int64
	DetailURL        string
}

// Headline is the single-result variant decoded from features[0] of the
// headline feed.
type Headline struct {
	Title            string
	OccurredAtMillis int64
	TsunamiAlert     int // 0 no alert, 1 alert, anything else unknown
}

// EventViewModel is the display-ready projection of an Event.
type EventViewModel struct {
	FormattedMagnitude string         `json:"magnitude"`
	SeverityBucket     SeverityBucket `json:"severity_bucket"`
	LocationOffset     string         `json:"location_offset"`
	PrimaryLocation    string         `json:"primary_location"`
	FormattedDate      string         `json:"date"`
	FormattedTime      string         `json:"time"`
	DetailURL          string         `json:"url"`
}

// HeadlineViewModel is the display-ready projection of a Headline.
type HeadlineViewModel struct {
	Title         string `json:"title"`
	FormattedDate string `json:"date"`
	TsunamiAlert  string `json:"tsunami_alert"`
}

// Empty-state messages shown by hosts in place of results.
const (
	NoResultsMessage      = "No earthquakes found"
	NoConnectivityMessage = "No internet connection"
)
