package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// featureCollection is the GeoJSON envelope. Features is a pointer so a
// missing or null array can be told apart from an empty one.
type featureCollection struct {
	Features *[]json.RawMessage `json:"features"`
}

type feature[P any] struct {
	Properties *P `json:"properties"`
}

// eventProperties uses pointers to detect absent or null keys.
type eventProperties struct {
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Time  *int64   `json:"time"`
	URL   *string  `json:"url"`
}

type headlineProperties struct {
	Title   *string `json:"title"`
	Time    *int64  `json:"time"`
	Tsunami *int    `json:"tsunami"`
}

// DecodeEvents parses a list feed into events, preserving feed order.
// The first invalid feature aborts the decode; no partial list is returned.
func DecodeEvents(data []byte) ([]Event, error) {
	raws, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(raws))
	for i, raw := range raws {
		props, err := decodeProperties[eventProperties](raw)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrMalformedPayload, i, err)
		}
		if missing := props.missing(); missing != "" {
			return nil, fmt.Errorf("%w: feature %d: missing properties.%s", ErrMalformedPayload, i, missing)
		}
		events = append(events, Event{
			Magnitude:        *props.Mag,
			Location:         *props.Place,
			OccurredAtMillis: *props.Time,
			DetailURL:        *props.URL,
		})
	}
	return events, nil
}

// DecodeHeadline parses features[0] of a headline feed. An empty features
// array yields (nil, nil); later features are never inspected.
func DecodeHeadline(data []byte) (*Headline, error) {
	raws, err := decodeFeatures(data)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}

	props, err := decodeProperties[headlineProperties](raws[0])
	if err != nil {
		return nil, fmt.Errorf("%w: feature 0: %v", ErrMalformedPayload, err)
	}
	if missing := props.missing(); missing != "" {
		return nil, fmt.Errorf("%w: feature 0: missing properties.%s", ErrMalformedPayload, missing)
	}
	return &Headline{
		Title:            *props.Title,
		OccurredAtMillis: *props.Time,
		TsunamiAlert:     *props.Tsunami,
	}, nil
}

func decodeFeatures(data []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if fc.Features == nil {
		return nil, fmt.Errorf("%w: missing features array", ErrMalformedPayload)
	}
	return *fc.Features, nil
}

func decodeProperties[P any](raw json.RawMessage) (*P, error) {
	var f feature[P]
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Properties == nil {
		return nil, errors.New("missing properties object")
	}
	return f.Properties, nil
}

func (p *eventProperties) missing() string {
	switch {
	case p.Mag == nil:
		return "mag"
	case p.Place == nil:
		return "place"
	case p.Time == nil:
		return "time"
	case p.URL == nil:
		return "url"
	}
	return ""
}

func (p *headlineProperties) missing() string {
	switch {
	case p.Title == nil:
		return "title"
	case p.Time == nil:
		return "time"
	case p.Tsunami == nil:
		return "tsunami"
	}
	return ""
}
