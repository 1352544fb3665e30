package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	samplePayload     = `{"features":[{"properties":{"mag":6.1,"place":"5km SW of Fooville","time":1454124312220,"url":"https://example.com/1"}}]}`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient() *Client {
	return NewClient(time.Second, time.Second, discardLogger())
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "geojson", r.URL.Query().Get("format"))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	body, err := testClient().Fetch(context.Background(), srv.URL+"/query?format=geojson")
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(body))
}

func TestClient_Fetch_BadStatus(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		body, err := testClient().Fetch(context.Background(), srv.URL)
		srv.Close()

		require.ErrorIs(t, err, domain.ErrBadStatus)
		var statusErr *domain.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, code, statusErr.Code)
		assert.Nil(t, body)
	}
}

func TestClient_Fetch_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(time.Second, 50*time.Millisecond, discardLogger())
	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, "timeout", domain.FailureKind(err))
}

func TestClient_Fetch_StalledBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"features":[`))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(time.Second, 50*time.Millisecond, discardLogger())
	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, domain.ErrTimeout)
}

func TestClient_Fetch_InvalidURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	for _, raw := range []string{"", "not a url", "ftp://example.com/feed", "http://", "/relative/path"} {
		_, err := testClient().Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidURL, "url %q", raw)
	}
	assert.Zero(t, hits.Load())
}

func TestClient_Fetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := testClient().Fetch(context.Background(), addr)
	require.ErrorIs(t, err, domain.ErrConnectionFailed)
}

func TestClient_Fetch_Canceled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := NewClient(time.Second, 5*time.Second, discardLogger()).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "canceled", domain.FailureKind(err))
}

func TestClient_CheckConnectivity(t *testing.T) {
	c := testClient()

	require.NoError(t, c.CheckConnectivity(context.Background(), "http://127.0.0.1:1/query"))
	require.ErrorIs(t, c.CheckConnectivity(context.Background(), "::bad"), domain.ErrInvalidURL)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.False(t, isTimeout(io.ErrUnexpectedEOF))
}
