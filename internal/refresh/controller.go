package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/display"
	"github.com/tnunamak/claudebar/internal/metrics"
)

const DefaultInterval = 120 * time.Second

// ErrBusy is returned by RefreshNow when a refresh is already queued or
// running.
var ErrBusy = errors.New("refresh already in flight")

type Status int

const (
	Idle Status = iota
	Fetching
	Data
	Error
)

func (s Status) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Data:
		return "data"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Trigger string

const (
	Scheduled Trigger = "scheduled"
	Manual    Trigger = "manual"
)

type TokenSource interface {
	Token(ctx context.Context, force bool) (string, error)
}

type UsageFetcher interface {
	Fetch(ctx context.Context, token string) (api.Snapshot, error)
}

type Options struct {
	Interval   time.Duration
	ErrorWidth int
	Logger     *zap.Logger
	Now        func() time.Time
	Location   *time.Location
}

// View is a point-in-time copy of the controller's state.
type View struct {
	Status    Status        `json:"status"`
	State     display.State `json:"state"`
	UpdatedAt time.Time     `json:"updated_at"`
	LastError string        `json:"last_error,omitempty"`
	Err       error         `json:"-"`
}

// Controller polls usage on a timer and on demand and is the only writer of
// the displayed state. At most one refresh is queued or running at a time.
type Controller struct {
	tokens  TokenSource
	usage   UsageFetcher
	surface Surface

	interval   time.Duration
	errorWidth int
	log        *zap.Logger
	now        func() time.Time
	loc        *time.Location

	// gate is a single-slot semaphore held from the moment a trigger is
	// accepted until its refresh has published.
	gate chan struct{}
	jobs chan Trigger

	mu        sync.Mutex
	status    Status
	state     display.State
	updatedAt time.Time
	lastErr   error

	stop     chan struct{}
	stopOnce sync.Once
}

func New(tokens TokenSource, usage UsageFetcher, surface Surface, opts Options) *Controller {
	c := &Controller{
		tokens:     tokens,
		usage:      usage,
		surface:    surface,
		interval:   opts.Interval,
		errorWidth: opts.ErrorWidth,
		log:        opts.Logger,
		now:        opts.Now,
		loc:        opts.Location,
		gate:       make(chan struct{}, 1),
		jobs:       make(chan Trigger, 1),
		state:      display.Initial(),
		stop:       make(chan struct{}),
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.errorWidth <= 0 {
		c.errorWidth = display.DefaultErrorWidth
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	return c
}

// Run publishes the initial state, fetches immediately, then refreshes on
// every tick until ctx is done or RequestShutdown is called. A refresh in
// progress at shutdown is allowed to finish before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	// The initial publish happens before the worker exists so that a
	// trigger accepted earlier cannot publish alongside it.
	c.publish(c.View().State)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.worker(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	c.Trigger(Scheduled)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info("refresh loop started", zap.Duration("interval", c.interval))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("refresh loop stopped", zap.Error(ctx.Err()))
			return nil
		case <-c.stop:
			c.log.Info("shutdown requested")
			return nil
		case <-ticker.C:
			c.Trigger(Scheduled)
		}
	}
}

func (c *Controller) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-c.jobs:
			// In-flight refreshes are not cancellable; the transport
			// timeout bounds them.
			c.refresh(context.WithoutCancel(ctx), t)
			<-c.gate
		}
	}
}

// Trigger queues a refresh for the worker started by Run. It returns false
// without doing anything when a refresh is already queued or running.
func (c *Controller) Trigger(t Trigger) bool {
	select {
	case c.gate <- struct{}{}:
	default:
		c.log.Debug("refresh skipped, already in flight", zap.String("trigger", string(t)))
		metrics.RefreshTotal.WithLabelValues(string(t), "skipped").Inc()
		return false
	}
	c.jobs <- t
	return true
}

// TriggerManualRefresh is the "refresh now" entry point for surfaces.
func (c *Controller) TriggerManualRefresh() bool {
	return c.Trigger(Manual)
}

// RequestShutdown is the "quit" entry point for surfaces. It is safe to
// call more than once.
func (c *Controller) RequestShutdown() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once RequestShutdown has been called.
func (c *Controller) Done() <-chan struct{} {
	return c.stop
}

// RefreshNow runs one refresh on the calling goroutine, for one-shot use
// without Run. It shares the in-flight guard with Trigger.
func (c *Controller) RefreshNow(ctx context.Context) (View, error) {
	select {
	case c.gate <- struct{}{}:
	default:
		return c.View(), ErrBusy
	}
	defer func() { <-c.gate }()

	c.refresh(ctx, Manual)
	return c.View(), nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		Status:    c.status,
		State:     c.state,
		UpdatedAt: c.updatedAt,
		Err:       c.lastErr,
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}

func (c *Controller) refresh(ctx context.Context, t Trigger) {
	start := c.now()
	c.transition(Fetching, c.View().State.Pending(), nil)

	snap, err := c.fetch(ctx)
	metrics.FetchDuration.Observe(c.now().Sub(start).Seconds())

	if err != nil {
		c.log.Warn("refresh failed", zap.String("trigger", string(t)), zap.Error(err))
		metrics.RefreshTotal.WithLabelValues(string(t), "error").Inc()
		c.transition(Error, c.View().State.WithError(err.Error(), c.errorWidth), err)
		return
	}

	for _, w := range api.Windows {
		metrics.Utilization.WithLabelValues(string(w)).Set(snap.Window(w).Utilization)
	}
	metrics.RefreshTotal.WithLabelValues(string(t), "data").Inc()
	if o, ok := c.surface.(SnapshotObserver); ok {
		o.ObserveSnapshot(snap)
	}
	c.transition(Data, display.FromSnapshotIn(snap, c.now(), c.loc), nil)
}

// fetch gets a token and the usage snapshot. A rejected token is reloaded
// from the store and the fetch retried once.
func (c *Controller) fetch(ctx context.Context) (api.Snapshot, error) {
	token, err := c.tokens.Token(ctx, false)
	if err != nil {
		return api.Snapshot{}, err
	}
	snap, err := c.usage.Fetch(ctx, token)
	if err == nil || !api.IsUnauthorized(err) {
		return snap, err
	}

	c.log.Info("token rejected, reloading credentials")
	metrics.TokenRefreshTotal.Inc()
	token, err = c.tokens.Token(ctx, true)
	if err != nil {
		return api.Snapshot{}, err
	}
	return c.usage.Fetch(ctx, token)
}

func (c *Controller) transition(status Status, state display.State, lastErr error) {
	c.mu.Lock()
	prev := c.status
	c.status = status
	c.state = state
	if status != Fetching {
		c.updatedAt = c.now()
		c.lastErr = lastErr
	}
	c.mu.Unlock()

	c.log.Debug("state change", zap.Stringer("from", prev), zap.Stringer("to", status))
	c.publish(state)
}

func (c *Controller) publish(state display.State) {
	c.surface.Publish(state)
	if tc, ok := c.surface.(TitleColorer); ok {
		if err := tc.SetTitleColor(state.Tier); err != nil {
			c.log.Debug("title color unavailable", zap.Error(err))
		}
	}
}
