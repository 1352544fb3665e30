// Package domain models USGS earthquake feed data and its display projection.
//
// # Data Source
//
// Feeds come from the USGS FDSN event web service, queried with
// format=geojson, e.g.
// https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&minmag=6&limit=10.
// The response is a GeoJSON FeatureCollection; only the "properties" object of
// each feature is read.
//
// # Feed Conventions
//
// List feed properties:
//
//	"mag"   magnitude, a JSON number, may be fractional or negative
//	"place" free-text location, e.g. "5km SW of Fooville"
//	"time"  event time as Unix epoch milliseconds (UTC), a JSON integer
//	"url"   USGS event page
//
// Headline feed properties (only features[0] is read):
//
//	"title"   display title, e.g. "M 7.1 - 10km N of Somewhere"
//	"time"    event time as Unix epoch milliseconds (UTC)
//	"tsunami" 1 when a tsunami alert was issued, 0 otherwise
//
// Decoding is all-or-nothing for the list feed: one structurally invalid
// feature rejects the whole document with [ErrMalformedPayload]. An empty
// features array is not an error for either feed.
//
// # Location Convention
//
// USGS relative places read "<distance> <compass> of <place>". The text before
// the first " of " becomes the location offset ("5km SW of"), the remainder the
// primary location ("Fooville"). Places without the separator get the offset
// "Near the".
//
// # Severity Buckets
//
// A severity bucket is floor(magnitude) clamped to [0, 10]; anything below 0 or
// at or above 10 is [SeverityTenPlus]. Buckets 0 and 1 share a display tier.
// Buckets are lookup keys for the host's color palette, not colors.
//
// # Time Rendering
//
// Times stay in epoch milliseconds until presentation. Dates render as
// "Jan 02, 2006" and times as "3:04 PM" in the display location, which is the
// host's local time zone unless overridden with [SetDisplayLocation].
package domain
