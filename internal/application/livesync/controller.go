// Package livesync keeps a locally held value synchronized with the data
// service: a full fetch on start, a refetch (or an in-place patch) on every
// change event in scope, and guaranteed teardown.
package livesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/providers"
	"github.com/Rakhazzan/SINTESIS/internal/infrastructure/observability"
)

// ErrStopped is returned by operations on a controller that has been stopped
var ErrStopped = errors.New("controller stopped")

// FetchFunc loads the full value from the data service
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Reducer applies a change event to the current value. When handled is
// false the controller falls back to a full refetch.
type Reducer[T any] func(current T, event *entities.ChangeEvent) (next T, handled bool)

// MergeFunc combines a fetched value with the value held at the moment the
// result is applied. It runs under the controller lock and must not block.
type MergeFunc[T any] func(current, fetched T) T

// AfterFetchFunc runs after every successful full fetch has been applied
type AfterFetchFunc[T any] func(ctx context.Context, data T)

// State is a point-in-time view of a controller
type State[T any] struct {
	Data      T
	IsLoading bool
	Err       error
	// Live is false when a change subscription could not be opened or was lost
	Live    bool
	Version uint64
}

// Options configures a Controller
type Options[T any] struct {
	Name         string
	Feed         providers.ChangeFeed
	Scopes       []providers.Scope
	Fetch        FetchFunc[T]
	Reduce       Reducer[T]
	Merge        MergeFunc[T]
	AfterFetch   AfterFetchFunc[T]
	FetchTimeout time.Duration
	Metrics      *observability.SyncMetrics
}

// Controller owns one value for exactly one set of scopes. A scope change
// is a Stop followed by a new Controller.
type Controller[T any] struct {
	opts Options[T]

	mu         sync.Mutex
	state      State[T]
	started    bool
	stopped    bool
	gen        uint64
	fetchSeq   uint64
	appliedSeq uint64
	subs       []providers.Subscription
	cancel     context.CancelFunc

	dirty   chan struct{}
	updates chan struct{}
}

// New creates a stopped-until-started controller
func New[T any](opts Options[T]) *Controller[T] {
	if opts.Name == "" {
		opts.Name = "view"
	}
	return &Controller[T]{
		opts:    opts,
		dirty:   make(chan struct{}, 1),
		updates: make(chan struct{}, 1),
	}
}

// Name identifies the controller in logs and metrics
func (c *Controller[T]) Name() string {
	return c.opts.Name
}

// Start opens the change subscriptions and performs the initial fetch. A
// subscription failure is logged and reflected in State.Live; it never
// prevents the fetch. The returned error is the initial fetch's, which is
// also recorded in State.Err. Start is a no-op on a started or stopped
// controller.
func (c *Controller[T]) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	gen := c.gen
	c.mu.Unlock()

	logger := log.With().Str("view", c.opts.Name).Logger()

	live := c.opts.Feed != nil
	var subs []providers.Subscription
	if c.opts.Feed != nil {
		for _, scope := range c.opts.Scopes {
			sub, err := c.opts.Feed.Subscribe(runCtx, scope)
			if err != nil {
				logger.Error().Err(err).Str("scope", scope.Name).Msg("failed to subscribe to changes")
				live = false
				continue
			}
			subs = append(subs, sub)
		}
	}

	c.mu.Lock()
	if c.gen != gen {
		// Stopped while subscribing.
		c.mu.Unlock()
		closeAll(subs)
		return ErrStopped
	}
	c.subs = subs
	c.state.Live = live
	c.mu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.ActiveSubscriptions.WithLabelValues(c.opts.Name).Add(float64(len(subs)))
	}

	for _, sub := range subs {
		go c.consume(runCtx, gen, sub)
	}
	go c.refetchLoop(runCtx, gen)
	go func() {
		<-runCtx.Done()
		c.Stop()
	}()

	return c.fetch(runCtx, gen, true, "initial")
}

// Stop releases the subscriptions. Events and fetch results arriving
// afterwards are discarded. Stop is idempotent.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.gen++
	subs := c.subs
	c.subs = nil
	cancel := c.cancel
	c.state.Live = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	closeAll(subs)

	if c.opts.Metrics != nil && len(subs) > 0 {
		c.opts.Metrics.ActiveSubscriptions.WithLabelValues(c.opts.Name).Sub(float64(len(subs)))
	}
	log.Debug().Str("view", c.opts.Name).Msg("view controller stopped")
}

// Refetch performs an explicit full fetch with IsLoading set while it runs
func (c *Controller[T]) Refetch(ctx context.Context) error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	gen := c.gen
	c.mu.Unlock()
	return c.fetch(ctx, gen, true, "manual")
}

// Snapshot returns the current state. Data must be treated as read-only.
func (c *Controller[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates signals state changes. Signals are coalesced: a receiver should
// read Snapshot after each one.
func (c *Controller[T]) Updates() <-chan struct{} {
	return c.updates
}

// Mutate replaces the value with fn(current) as a local change. It reports
// false, without calling fn, once the controller is stopped. fn must not
// modify current in place.
func (c *Controller[T]) Mutate(fn func(current T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.state.Data = fn(c.state.Data)
	c.bumpLocked()
	return true
}

// SetErr records err on the state without touching the data
func (c *Controller[T]) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.state.Err = err
	c.bumpLocked()
}

func (c *Controller[T]) consume(ctx context.Context, gen uint64, sub providers.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				c.markNotLive(gen)
				return
			}
			c.handleEvent(gen, event)
		}
	}
}

func (c *Controller[T]) handleEvent(gen uint64, event *entities.ChangeEvent) {
	c.mu.Lock()
	if c.stopped || c.gen != gen {
		c.mu.Unlock()
		c.countDiscarded()
		return
	}
	if c.opts.Reduce != nil {
		if next, handled := c.opts.Reduce(c.state.Data, event); handled {
			c.state.Data = next
			c.bumpLocked()
			c.mu.Unlock()
			if c.opts.Metrics != nil {
				c.opts.Metrics.PatchedEvents.WithLabelValues(c.opts.Name).Inc()
			}
			return
		}
	}
	c.mu.Unlock()

	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

// refetchLoop runs event-triggered fetches one at a time; events arriving
// during a fetch collapse into a single follow-up fetch.
func (c *Controller[T]) refetchLoop(ctx context.Context, gen uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.dirty:
			_ = c.fetch(ctx, gen, false, "change")
		}
	}
}

func (c *Controller[T]) fetch(ctx context.Context, gen uint64, loading bool, trigger string) error {
	c.mu.Lock()
	if c.stopped || c.gen != gen {
		c.mu.Unlock()
		return ErrStopped
	}
	c.fetchSeq++
	seq := c.fetchSeq
	if loading && !c.state.IsLoading {
		c.state.IsLoading = true
		c.bumpLocked()
	}
	c.mu.Unlock()

	if c.opts.Metrics != nil {
		c.opts.Metrics.Fetches.WithLabelValues(c.opts.Name, trigger).Inc()
	}

	fetchCtx := ctx
	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}
	data, err := c.opts.Fetch(fetchCtx)

	c.mu.Lock()
	if c.stopped || c.gen != gen || seq < c.appliedSeq {
		c.mu.Unlock()
		c.countDiscarded()
		return err
	}
	c.appliedSeq = seq
	if seq == c.fetchSeq {
		c.state.IsLoading = false
	}
	if err != nil {
		c.state.Err = err
	} else {
		if c.opts.Merge != nil {
			data = c.opts.Merge(c.state.Data, data)
		}
		c.state.Data = data
		c.state.Err = nil
	}
	c.bumpLocked()
	c.mu.Unlock()

	if err != nil {
		if c.opts.Metrics != nil {
			c.opts.Metrics.FetchErrors.WithLabelValues(c.opts.Name).Inc()
		}
		log.Warn().Err(err).Str("view", c.opts.Name).Str("trigger", trigger).Msg("fetch failed")
		return err
	}

	if c.opts.AfterFetch != nil {
		c.opts.AfterFetch(ctx, data)
	}
	return nil
}

func (c *Controller[T]) markNotLive(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.gen != gen || !c.state.Live {
		return
	}
	c.state.Live = false
	c.bumpLocked()
	log.Warn().Str("view", c.opts.Name).Msg("change subscription ended")
}

func (c *Controller[T]) bumpLocked() {
	c.state.Version++
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *Controller[T]) countDiscarded() {
	if c.opts.Metrics != nil {
		c.opts.Metrics.DiscardedResults.WithLabelValues(c.opts.Name).Inc()
	}
}

func closeAll(subs []providers.Subscription) {
	for _, sub := range subs {
		_ = sub.Close()
	}
}
