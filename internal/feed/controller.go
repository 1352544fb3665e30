package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

var (
	// ErrFetchInProgress rejects Start while an attempt is Loading.
	ErrFetchInProgress = errors.New("fetch already in progress")
	// ErrClosed rejects Start after Close.
	ErrClosed = errors.New("controller closed")
)

// Fetcher retrieves the raw feed body for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Strategy turns a fetched body into the result handed to the host.
type Strategy[T any] interface {
	Name() string
	Build(body []byte) (T, error)
}

// Listener receives the outcome of an attempt on the host's Executor.
type Listener[T any] interface {
	OnResult(result T)
	OnFailure(f Failure)
}

// ListenerFuncs adapts a pair of functions to Listener. Nil funcs are skipped.
type ListenerFuncs[T any] struct {
	Result  func(result T)
	Failure func(f Failure)
}

func (l ListenerFuncs[T]) OnResult(result T) {
	if l.Result != nil {
		l.Result(result)
	}
}

func (l ListenerFuncs[T]) OnFailure(f Failure) {
	if l.Failure != nil {
		l.Failure(f)
	}
}

// Failure describes a failed attempt. Hosts show Message; Kind and Err are
// for diagnostics.
type Failure struct {
	Kind    string
	Err     error
	Message string
}

// State is the controller's position in the load lifecycle.
type State int

const (
	Idle State = iota
	Loading
	Delivered
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type attempt struct {
	id      string
	url     string
	parent  context.Context
	cancel  context.CancelFunc
	started time.Time
}

// Controller runs at most one background fetch at a time and hands its
// result to the host exactly once, or never if the attempt was cancelled.
type Controller[T any] struct {
	fetcher  Fetcher
	strategy Strategy[T]
	exec     Executor
	listener Listener[T]
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu      sync.Mutex
	state   State
	current *attempt
	closed  bool
}

// New creates an Idle controller. Results are delivered through exec.
func New[T any](f Fetcher, s Strategy[T], exec Executor, l Listener[T], logger *slog.Logger, metrics *observability.Metrics) *Controller[T] {
	return &Controller[T]{
		fetcher:  f,
		strategy: s,
		exec:     exec,
		listener: l,
		logger:   logger.With("flow", s.Name()),
		metrics:  metrics,
	}
}

// State returns the current lifecycle state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a new attempt against url on a background goroutine. It
// returns ErrFetchInProgress without spawning a worker if an attempt is
// already Loading.
func (c *Controller[T]) Start(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Loading {
		c.mu.Unlock()
		c.metrics.FetchRejected.WithLabelValues(c.strategy.Name()).Inc()
		return ErrFetchInProgress
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	a := &attempt{
		id:      uuid.NewString(),
		url:     url,
		parent:  ctx,
		cancel:  cancel,
		started: clock.Now(),
	}
	c.current = a
	c.state = Loading
	c.mu.Unlock()

	c.metrics.FetchAttempts.WithLabelValues(c.strategy.Name()).Inc()
	c.metrics.FetchLoading.WithLabelValues(c.strategy.Name()).Set(1)
	c.logger.Info("fetch started", "attempt_id", a.id, "url", url)

	go c.run(attemptCtx, a)
	return nil
}

// Cancel moves a Loading attempt to Cancelled and signals its worker to stop.
// The worker's eventual result is dropped. Returns false if nothing was loading.
func (c *Controller[T]) Cancel() bool {
	c.mu.Lock()
	a := c.cancelLocked()
	c.mu.Unlock()

	if a == nil {
		return false
	}
	c.cancelled(a)
	return true
}

// Close tears the controller down: any Loading attempt is cancelled and
// later Start calls return ErrClosed.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	c.closed = true
	a := c.cancelLocked()
	c.mu.Unlock()

	if a != nil {
		c.cancelled(a)
	}
}

// cancelLocked detaches the Loading attempt, if any. c.mu must be held.
func (c *Controller[T]) cancelLocked() *attempt {
	if c.state != Loading {
		return nil
	}
	a := c.current
	c.state = Cancelled
	c.current = nil
	return a
}

func (c *Controller[T]) cancelled(a *attempt) {
	a.cancel()
	c.finish(a, "cancelled")
	c.logger.Info("fetch cancelled", "attempt_id", a.id)
}

// run is the worker. Fetch is the only blocking call; decode and present
// run on the same goroutine right after it.
func (c *Controller[T]) run(ctx context.Context, a *attempt) {
	defer a.cancel()

	var (
		result T
		err    error
	)
	body, err := c.fetcher.Fetch(ctx, a.url)
	if err == nil {
		result, err = c.strategy.Build(body)
	}

	if ctx.Err() != nil && (c.stale(a) || c.abandon(a)) {
		c.discard(a)
		return
	}
	c.exec.Post(func() { c.handoff(a, result, err) })
}

// handoff runs on the host's executor. It is the single point where a worker
// result is checked against the current attempt before delivery.
func (c *Controller[T]) handoff(a *attempt, result T, err error) {
	if c.abandon(a) {
		c.discard(a)
		return
	}

	c.mu.Lock()
	if c.current != a || c.state != Loading {
		c.mu.Unlock()
		c.discard(a)
		return
	}
	if err != nil {
		c.state = Failed
	} else {
		c.state = Delivered
	}
	c.current = nil
	c.mu.Unlock()

	if err != nil {
		kind := domain.FailureKind(err)
		c.finish(a, "failed")
		c.metrics.FetchFailures.WithLabelValues(c.strategy.Name(), kind).Inc()
		c.logger.Warn("fetch failed", "attempt_id", a.id, "kind", kind, "error", err)
		c.listener.OnFailure(Failure{Kind: kind, Err: err, Message: domain.NoResultsMessage})
		return
	}

	c.finish(a, "delivered")
	c.logger.Info("fetch delivered", "attempt_id", a.id, "duration", clock.Since(a.started))
	c.listener.OnResult(result)
}

func (c *Controller[T]) stale(a *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != a
}

// abandon cancels a when the context passed to Start is done, so a host
// tearing down through its own context gets no delivery.
func (c *Controller[T]) abandon(a *attempt) bool {
	if a.parent.Err() == nil {
		return false
	}
	c.mu.Lock()
	if c.current != a || c.state != Loading {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked()
	c.mu.Unlock()

	c.cancelled(a)
	return true
}

func (c *Controller[T]) discard(a *attempt) {
	c.metrics.StaleDiscarded.WithLabelValues(c.strategy.Name()).Inc()
	c.logger.Debug("discarding stale result", "attempt_id", a.id)
}

func (c *Controller[T]) finish(a *attempt, outcome string) {
	flow := c.strategy.Name()
	c.metrics.FetchOutcomes.WithLabelValues(flow, outcome).Inc()
	c.metrics.FetchDuration.WithLabelValues(flow).Observe(clock.Since(a.started).Seconds())
	c.metrics.FetchLoading.WithLabelValues(flow).Set(0)
}
