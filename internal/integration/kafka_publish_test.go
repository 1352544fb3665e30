//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/report"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testTopic = "test-quake-feed-events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("quake-feed-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func feedServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	features := make([]string, n)
	for i := range features {
		features[i] = fmt.Sprintf(
			`{"properties":{"mag":%d.3,"place":"%dkm S of Place%d","time":%d,"url":"https://earthquake.usgs.gov/e/%d"}}`,
			4+i, 10+i, i, 1454124312220+int64(i)*1000, i)
	}
	body := `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestWriterPublish verifies that kafka.Writer lands one keyed message per
// view model with the expected headers.
func TestWriterPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	events := []domain.EventViewModel{
		{FormattedMagnitude: "7.2", SeverityBucket: 7, LocationOffset: "88km N of", PrimaryLocation: "Yelizovo, Russia", DetailURL: "https://earthquake.usgs.gov/e/a"},
		{FormattedMagnitude: "0.8", SeverityBucket: 0, LocationOffset: "Near the", PrimaryLocation: "Mid-Atlantic Ridge", DetailURL: "https://earthquake.usgs.gov/e/b"},
	}
	require.NoError(t, writer.Publish(ctx, events))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for _, want := range events {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}

		var got domain.EventViewModel
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, want, got)
		assert.Equal(t, want.DetailURL, string(msg.Key))
		assert.Equal(t, strconv.Itoa(want.SeverityBucket.Tier()), headers["severity_tier"])
		_, err = time.Parse(time.RFC3339, headers["published_at"])
		assert.NoError(t, err, "published_at should be valid RFC3339")
	}
}

// TestReportPublishesDeliveredList wires a feed server, the USGS client, the
// report host, and the Kafka writer, and checks every delivered event lands
// on the topic.
func TestReportPublishesDeliveredList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	srv := feedServer(t, 5)
	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	r := report.New(report.Options{
		ListURL:   srv.URL,
		Fetcher:   usgs.NewClient(5*time.Second, 5*time.Second, discardLogger()),
		Publisher: writer,
		Logger:    discardLogger(),
		Metrics:   observability.NewMetricsForTesting(),
	})
	go r.Run(ctx)
	t.Cleanup(r.Close)

	require.NoError(t, r.Refresh(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-report-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	var locations []string
	for range 5 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err)

		var got domain.EventViewModel
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		locations = append(locations, got.PrimaryLocation)
	}

	assert.Equal(t, []string{"Place0", "Place1", "Place2", "Place3", "Place4"}, locations)
	assert.Len(t, r.Quakes().Events, 5)
}
