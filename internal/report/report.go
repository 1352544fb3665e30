// Package report hosts the list and headline feed controllers. It owns the
// host loop that receives their results, keeps the latest rendered views for
// the HTTP API, and forwards delivered lists to an optional publisher.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/feed"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// ErrNoConnectivity is returned by Refresh when the connectivity check fails.
var ErrNoConnectivity = errors.New("no connectivity")

// ConnectivityChecker reports whether the feed host is reachable.
type ConnectivityChecker interface {
	CheckConnectivity(ctx context.Context, url string) error
}

// Publisher forwards delivered view models downstream.
type Publisher interface {
	Publish(ctx context.Context, events []domain.EventViewModel) error
}

// ListView is the rendered state of the list flow.
type ListView struct {
	Loading     bool
	Events      []domain.EventViewModel
	Message     string
	FailureKind string
	UpdatedAt   time.Time
}

// HeadlineView is the rendered state of the headline flow.
type HeadlineView struct {
	Loading     bool
	Headline    *domain.HeadlineViewModel
	Message     string
	FailureKind string
	UpdatedAt   time.Time
}

// Options configures a Report. Publisher and Clock are optional.
type Options struct {
	ListURL     string
	HeadlineURL string
	Fetcher     feed.Fetcher
	Checker     ConnectivityChecker
	Publisher   Publisher
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Report is the host for both feed flows.
type Report struct {
	listURL     string
	headlineURL string
	checker     ConnectivityChecker
	publisher   Publisher
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics

	loop     *feed.Loop
	list     *feed.Controller[[]domain.EventViewModel]
	headline *feed.Controller[*domain.HeadlineViewModel]

	ctx        context.Context
	cancel     context.CancelFunc
	publishing sync.WaitGroup

	mu           sync.RWMutex
	listView     ListView
	headlineView HeadlineView
	closed       bool
	ready        atomic.Bool
}

// New wires the controllers to the report's host loop. Call Run to start
// processing results.
func New(opts Options) *Report {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())

	r := &Report{
		listURL:     opts.ListURL,
		headlineURL: opts.HeadlineURL,
		checker:     opts.Checker,
		publisher:   opts.Publisher,
		clock:       clk,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		loop:        feed.NewLoop(16),
		ctx:         ctx,
		cancel:      cancel,
	}

	r.list = feed.New[[]domain.EventViewModel](opts.Fetcher, feed.ListStrategy{}, r.loop,
		feed.ListenerFuncs[[]domain.EventViewModel]{Result: r.onEvents, Failure: r.onListFailure},
		opts.Logger, opts.Metrics)
	r.headline = feed.New[*domain.HeadlineViewModel](opts.Fetcher, feed.HeadlineStrategy{}, r.loop,
		feed.ListenerFuncs[*domain.HeadlineViewModel]{Result: r.onHeadline, Failure: r.onHeadlineFailure},
		opts.Logger, opts.Metrics)

	return r
}

// Run processes controller results until ctx is cancelled or Close is called.
func (r *Report) Run(ctx context.Context) {
	r.loop.Run(ctx)
}

// Refresh starts a list attempt. It returns ErrNoConnectivity without
// fetching when the feed host is unreachable, and feed.ErrFetchInProgress
// while a list attempt is already loading. A failed connectivity check
// leaves the view of an in-flight attempt alone.
func (r *Report) Refresh(ctx context.Context) error {
	if err := r.checkConnectivity(ctx, r.listURL); err != nil {
		r.mu.Lock()
		if !r.Loading() {
			r.listView = ListView{Message: domain.NoConnectivityMessage, UpdatedAt: r.clock.Now()}
		}
		r.mu.Unlock()
		r.ready.Store(true)
		return err
	}

	r.mu.Lock()
	r.listView.Loading = true
	r.mu.Unlock()

	err := r.list.Start(r.ctx, r.listURL)
	if err != nil && !errors.Is(err, feed.ErrFetchInProgress) {
		r.mu.Lock()
		r.listView.Loading = false
		r.mu.Unlock()
	}
	return err
}

// RefreshHeadline starts a headline attempt.
func (r *Report) RefreshHeadline(ctx context.Context) error {
	if err := r.checkConnectivity(ctx, r.headlineURL); err != nil {
		r.mu.Lock()
		if r.headline.State() != feed.Loading {
			r.headlineView = HeadlineView{Message: domain.NoConnectivityMessage, UpdatedAt: r.clock.Now()}
		}
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.headlineView.Loading = true
	r.mu.Unlock()

	err := r.headline.Start(r.ctx, r.headlineURL)
	if err != nil && !errors.Is(err, feed.ErrFetchInProgress) {
		r.mu.Lock()
		r.headlineView.Loading = false
		r.mu.Unlock()
	}
	return err
}

// Schedule refreshes both flows every interval until ctx is done. Refreshes
// that collide with an in-flight attempt are skipped.
func (r *Report) Schedule(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.Chan():
			r.refreshAll(ctx)
		}
	}
}

func (r *Report) refreshAll(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && !errors.Is(err, feed.ErrFetchInProgress) {
		r.logger.Warn("scheduled refresh skipped", "flow", "list", "error", err)
	}
	if err := r.RefreshHeadline(ctx); err != nil && !errors.Is(err, feed.ErrFetchInProgress) {
		r.logger.Warn("scheduled refresh skipped", "flow", "headline", "error", err)
	}
}

// Quakes returns a copy of the list view.
func (r *Report) Quakes() ListView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v := r.listView
	v.Events = append([]domain.EventViewModel(nil), v.Events...)
	return v
}

// Latest returns a copy of the headline view.
func (r *Report) Latest() HeadlineView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.headlineView
}

// Loading reports whether a list attempt is in flight.
func (r *Report) Loading() bool {
	return r.list.State() == feed.Loading
}

// CheckReadiness implements observability.ReadinessChecker. The report is
// ready once the first list attempt has reached a terminal state.
func (r *Report) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no feed attempt has completed yet")
	}
	return nil
}

// Close cancels in-flight attempts, waits for pending publishes, and stops
// the host loop.
func (r *Report) Close() {
	r.list.Close()
	r.headline.Close()

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.publishing.Wait()
	r.loop.Stop()
}

func (r *Report) checkConnectivity(ctx context.Context, url string) error {
	if r.checker == nil {
		return nil
	}
	if err := r.checker.CheckConnectivity(ctx, url); err != nil {
		r.logger.Warn("connectivity check failed", "url", url, "error", err)
		return fmt.Errorf("%w: %w", ErrNoConnectivity, err)
	}
	return nil
}

// onEvents and the other listener callbacks run on the host loop.
func (r *Report) onEvents(events []domain.EventViewModel) {
	view := ListView{Events: events, UpdatedAt: r.clock.Now()}
	if len(events) == 0 {
		view.Message = domain.NoResultsMessage
	}

	r.mu.Lock()
	r.listView = view
	r.mu.Unlock()
	r.ready.Store(true)

	r.metrics.EventsDelivered.Add(float64(len(events)))
	r.logger.Info("events delivered", "count", len(events))

	if r.publisher != nil && len(events) > 0 {
		r.publish(events)
	}
}

func (r *Report) onListFailure(f feed.Failure) {
	r.mu.Lock()
	r.listView = ListView{Message: f.Message, FailureKind: f.Kind, UpdatedAt: r.clock.Now()}
	r.mu.Unlock()
	r.ready.Store(true)
}

func (r *Report) onHeadline(h *domain.HeadlineViewModel) {
	view := HeadlineView{Headline: h, UpdatedAt: r.clock.Now()}
	if h == nil {
		view.Message = domain.NoResultsMessage
	}

	r.mu.Lock()
	r.headlineView = view
	r.mu.Unlock()
}

func (r *Report) onHeadlineFailure(f feed.Failure) {
	r.mu.Lock()
	r.headlineView = HeadlineView{Message: f.Message, FailureKind: f.Kind, UpdatedAt: r.clock.Now()}
	r.mu.Unlock()
}

func (r *Report) publish(events []domain.EventViewModel) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.publishing.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.publishing.Done()
		if err := r.publisher.Publish(r.ctx, events); err != nil {
			r.metrics.PublishErrors.Inc()
			r.logger.Error("publish events", "count", len(events), "error", err)
			return
		}
		r.metrics.EventsPublished.Add(float64(len(events)))
	}()
}
