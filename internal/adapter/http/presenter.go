package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/feed"
	"github.com/couchcryptid/quake-feed-service/internal/report"
)

// severityColors is indexed by severity tier (1-10).
var severityColors = [...]string{
	1:  "#4A7BA7",
	2:  "#04B4B3",
	3:  "#10CAC9",
	4:  "#F5A623",
	5:  "#FF7D50",
	6:  "#FC6644",
	7:  "#E75F40",
	8:  "#E13A20",
	9:  "#D93218",
	10: "#C03823",
}

type quakeResponse struct {
	domain.EventViewModel
	Color string `json:"color"`
}

type listResponse struct {
	Loading     bool            `json:"loading"`
	Message     string          `json:"message,omitempty"`
	FailureKind string          `json:"failure_kind,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	Quakes      []quakeResponse `json:"quakes"`
}

type headlineResponse struct {
	Loading     bool                      `json:"loading"`
	Message     string                    `json:"message,omitempty"`
	FailureKind string                    `json:"failure_kind,omitempty"`
	UpdatedAt   *time.Time                `json:"updated_at,omitempty"`
	Headline    *domain.HeadlineViewModel `json:"headline"`
}

func presentList(v report.ListView) listResponse {
	return listResponse{
		Loading:     v.Loading,
		Message:     v.Message,
		FailureKind: v.FailureKind,
		UpdatedAt:   timeOrNil(v.UpdatedAt),
		Quakes: lo.Map(v.Events, func(e domain.EventViewModel, _ int) quakeResponse {
			return quakeResponse{EventViewModel: e, Color: severityColor(e.SeverityBucket)}
		}),
	}
}

func presentHeadline(v report.HeadlineView) headlineResponse {
	return headlineResponse{
		Loading:     v.Loading,
		Message:     v.Message,
		FailureKind: v.FailureKind,
		UpdatedAt:   timeOrNil(v.UpdatedAt),
		Headline:    v.Headline,
	}
}

func severityColor(b domain.SeverityBucket) string {
	return severityColors[b.Tier()]
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func refreshError(err error) (int, map[string]string) {
	switch {
	case errors.Is(err, feed.ErrFetchInProgress):
		return http.StatusConflict, map[string]string{"error": err.Error()}
	case errors.Is(err, report.ErrNoConnectivity):
		return http.StatusServiceUnavailable, map[string]string{"error": domain.NoConnectivityMessage}
	case errors.Is(err, feed.ErrClosed):
		return http.StatusServiceUnavailable, map[string]string{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]string{"error": err.Error()}
	}
}
