// Command quakecheck runs a single feed attempt and prints the result.
//
// Usage:
//
//	go run ./cmd/quakecheck -flow headline
//	go run ./cmd/quakecheck -flow list -url 'https://earthquake.usgs.gov/fdsnws/event/1/query?format=geojson&limit=5'
//
// Interrupting with Ctrl-C cancels the in-flight attempt.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/feed"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	flow := flag.String("flow", "headline", "feed flow to run: headline or list")
	url := flag.String("url", "", "feed URL (defaults to the flow's USGS endpoint)")
	connectTimeout := flag.Duration("connect-timeout", 15*time.Second, "connect timeout")
	readTimeout := flag.Duration("read-timeout", 10*time.Second, "read timeout")
	tz := flag.String("tz", "", "IANA time zone for rendered times (default: local)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *tz != "" {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -tz: %v\n", err)
			return 2
		}
		domain.SetDisplayLocation(loc)
	}

	logger := observability.NewLogger(&config.Config{LogLevel: *logLevel, LogFormat: "text"})
	client := usgs.NewClient(*connectTimeout, *readTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner{client: client, logger: logger, metrics: observability.NewUnregisteredMetrics(), out: os.Stdout}

	switch *flow {
	case "headline":
		return runOnce[*domain.HeadlineViewModel](ctx, r, feed.HeadlineStrategy{}, orDefault(*url, config.DefaultHeadlineFeedURL), r.printHeadline)
	case "list":
		return runOnce[[]domain.EventViewModel](ctx, r, feed.ListStrategy{}, orDefault(*url, config.DefaultFeedURL), r.printList)
	default:
		fmt.Fprintf(os.Stderr, "unknown -flow %q\n", *flow)
		return 2
	}
}

type runner struct {
	client  *usgs.Client
	logger  *slog.Logger
	metrics *observability.Metrics
	out     io.Writer
}

// runOnce checks connectivity, starts one attempt, and waits for its result
// or an interrupt. The exit code is 0 on delivery, 1 on failure, and 130 on
// interrupt.
func runOnce[T any](ctx context.Context, r runner, strategy feed.Strategy[T], target string, render func(T)) int {
	if err := r.client.CheckConnectivity(ctx, target); err != nil {
		r.logger.Warn("connectivity check failed", "error", err)
		fmt.Fprintln(r.out, domain.NoConnectivityMessage)
		return 1
	}

	loop := feed.NewLoop(1)
	go loop.Run(context.Background())
	defer loop.Stop()

	done := make(chan int, 1)
	listener := feed.ListenerFuncs[T]{
		Result: func(result T) {
			render(result)
			done <- 0
		},
		Failure: func(f feed.Failure) {
			fmt.Fprintln(r.out, f.Message)
			fmt.Fprintf(os.Stderr, "%s: %v\n", f.Kind, f.Err)
			done <- 1
		},
	}

	ctrl := feed.New[T](r.client, strategy, loop, listener, r.logger, r.metrics)
	if err := ctrl.Start(ctx, target); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	select {
	case code := <-done:
		return code
	case <-ctx.Done():
		ctrl.Cancel()
		fmt.Fprintln(os.Stderr, "cancelled")
		return 130
	}
}

func (r runner) printHeadline(h *domain.HeadlineViewModel) {
	if h == nil {
		fmt.Fprintln(r.out, domain.NoResultsMessage)
		return
	}
	fmt.Fprintln(r.out, h.Title)
	fmt.Fprintln(r.out, h.FormattedDate)
	fmt.Fprintf(r.out, "Tsunami alert: %s\n", h.TsunamiAlert)
}

func (r runner) printList(events []domain.EventViewModel) {
	if len(events) == 0 {
		fmt.Fprintln(r.out, domain.NoResultsMessage)
		return
	}
	for _, e := range events {
		fmt.Fprintf(r.out, "%5s  %-24s %-40s %s %s\n",
			e.FormattedMagnitude, e.LocationOffset, e.PrimaryLocation, e.FormattedDate, e.FormattedTime)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
