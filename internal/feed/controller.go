package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// Phase is the controller's pagination state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitialLoading
	PhaseReady
	PhaseLoadingMore
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitialLoading:
		return "initial_loading"
	case PhaseReady:
		return "ready"
	case PhaseLoadingMore:
		return "loading_more"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// EventKind identifies what an Event reports
type EventKind int

const (
	// EventStateChanged carries a fresh snapshot after any mutation
	EventStateChanged EventKind = iota
	// EventScrollTo asks the presentation layer to scroll to Index
	EventScrollTo
	// EventLoadFailed reports a fetch that failed; Err wraps domain.ErrFetchFailed
	EventLoadFailed
)

// Event is delivered to subscribers on the owner loop
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	Index    int
	Err      error
}

// Snapshot is an immutable copy of the controller state
type Snapshot struct {
	FeedKey       string
	Phase         Phase
	Items         []domain.FeedItem
	IsLoading     bool
	IsLoadingMore bool
	HasMoreData   bool
	Cursor        string
	Generation    uint64
	CurrentIndex  int
	Active        bool
	Err           error
}

// ControllerDeps are the collaborators of a Controller. Fetcher is required.
type ControllerDeps struct {
	Fetcher    PageFetcher
	Positions  PositionStore
	Prefetcher Prefetcher
	Clock      clock.Clock
	Logger     *logger.Logger
}

// Controller coordinates visible-item tracking, prefetch, load-more and
// scroll position restore for one feed. Its exported methods may be called
// from any goroutine; they are serialized onto the controller's own loop.
type Controller struct {
	key        string
	opts       Options
	fetcher    PageFetcher
	positions  PositionStore
	prefetcher Prefetcher
	logger     *logger.Logger

	loop      *Loop
	debouncer *Debouncer
	observers *observers[Event]
	inflight  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// owned by loop
	state          *State
	active         bool
	activatedOnce  bool
	activation     uint64
	current        int
	pendingRestore int
	restoring      bool
	moved          bool
	ioTail         chan struct{}
	lastErr        error
}

// NewController creates a controller for the feed identified by feedKey
func NewController(feedKey string, opts Options, deps ControllerDeps) (*Controller, error) {
	if feedKey == "" {
		return nil, domain.NewValidationError("feed_key", "feed key is required")
	}
	if deps.Fetcher == nil {
		return nil, errors.New("feed controller requires a fetcher")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed options: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		key:            feedKey,
		opts:           opts,
		fetcher:        deps.Fetcher,
		positions:      deps.Positions,
		prefetcher:     deps.Prefetcher,
		logger:         log.WithComponent("feed-controller").WithFeed(feedKey),
		loop:           NewLoop(opts.MailboxSize),
		debouncer:      NewDebouncer(deps.Clock, opts.LoadMoreDebounce),
		observers:      newObservers[Event](),
		ctx:            ctx,
		cancel:         cancel,
		state:          NewState(),
		pendingRestore: -1,
	}, nil
}

// Key returns the feed identity
func (c *Controller) Key() string { return c.key }

// Subscribe registers fn for every event. fn runs on the owner loop and
// must not call Snapshot, Flush or Wait.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.observers.subscribe(fn)
}

// Activate marks the feed as the foreground one. The first activation
// issues the initial load; every activation reads the stored position once
// and scrolls to it as soon as items are available. Calling Activate on an
// active feed does nothing.
func (c *Controller) Activate() {
	c.loop.Post(c.activate)
}

// Deactivate saves the centered index and marks the feed inactive
func (c *Controller) Deactivate() {
	c.loop.Post(c.deactivate)
}

// ItemVisible reports that index is now the centered item
func (c *Controller) ItemVisible(index int) {
	c.loop.Post(func() { c.itemVisible(index) })
}

// Refresh discards the feed and loads it again from the first page
func (c *Controller) Refresh() {
	c.loop.Post(c.refresh)
}

// SavePosition persists the centered index now. Ignored while inactive.
func (c *Controller) SavePosition() {
	c.loop.Post(func() {
		if !c.active {
			c.logger.Debug("Ignored position save from inactive feed")
			return
		}
		c.savePosition()
	})
}

// ClearPosition removes the stored position for this feed
func (c *Controller) ClearPosition() {
	c.loop.Post(func() {
		c.pendingRestore = -1
		if c.positions == nil {
			return
		}
		c.runIO(func(ctx context.Context) func() {
			if err := c.positions.Clear(ctx, c.key); err != nil {
				c.logger.Warn("Failed to clear scroll position", "error", err)
			}
			return nil
		})
	})
}

// Snapshot returns a copy of the current state. Must not be called from
// a subscriber.
func (c *Controller) Snapshot() Snapshot {
	var snap Snapshot
	c.loop.Do(func() { snap = c.snapshot() })
	return snap
}

// Flush waits until every call made before it has been processed
func (c *Controller) Flush() {
	c.loop.Do(func() {})
}

// Wait blocks until every dispatched fetch and position operation has
// completed and its result has been applied or dropped.
func (c *Controller) Wait() {
	c.Flush()
	c.inflight.Wait()
	c.Flush()
}

// Close stops the controller. In-flight fetches are cancelled and their
// results dropped. Wait may still be called afterwards.
func (c *Controller) Close() {
	c.debouncer.Stop()
	c.cancel()
	c.loop.Stop()
}

func (c *Controller) activate() {
	if c.active {
		c.logger.Debug("Feed already active")
		return
	}

	c.active = true
	c.moved = false
	c.activation++
	c.restorePosition(c.activation)

	if !c.activatedOnce {
		c.activatedOnce = true
		c.startInitialLoad()
		return
	}

	c.notify()
}

func (c *Controller) deactivate() {
	if !c.active {
		return
	}

	c.debouncer.Cancel()
	c.savePosition()
	c.active = false
	c.notify()
}

func (c *Controller) refresh() {
	c.debouncer.Cancel()
	c.state.Reset()
	c.activatedOnce = true
	c.current = 0
	c.lastErr = nil
	c.startInitialLoad()
}

func (c *Controller) itemVisible(index int) {
	n := c.state.Len()
	if n == 0 {
		c.logger.Debug("Visible index on empty feed", "index", index, "error", domain.ErrInvalidIndex)
		return
	}
	if index < 0 || index >= n {
		c.logger.Debug("Clamped visible index", "index", index, "count", n, "error", domain.ErrInvalidIndex)
		index = clampIndex(index, n)
	}

	c.current = index
	c.moved = true
	c.prefetch(index, n)

	if index >= n-c.opts.LoadMoreThreshold &&
		c.state.HasMoreData() &&
		!c.state.IsLoading() &&
		!c.state.IsLoadingMore() {
		c.debouncer.Trigger(func() {
			c.loop.Post(c.loadMore)
		})
	}
}

func (c *Controller) prefetch(index, n int) {
	if c.prefetcher == nil {
		return
	}

	indices := Neighborhood(index, n, c.opts.PrefetchAhead, c.opts.PrefetchBehind)
	if len(indices) == 0 {
		return
	}

	items := make([]domain.FeedItem, 0, len(indices))
	for _, i := range indices {
		items = append(items, c.state.Item(i))
	}
	c.prefetcher.Prefetch(items)
}

func (c *Controller) startInitialLoad() {
	gen := c.state.BeginInitialLoad()
	c.notify()

	c.logger.Debug("Initial load started", "generation", gen)
	c.dispatch(gen, "", c.applyInitialLoad)
}

func (c *Controller) loadMore() {
	gen, ok := c.state.BeginLoadMore()
	if !ok {
		return
	}
	cursor := c.state.Cursor()
	c.notify()

	c.logger.Debug("Load more started", "generation", gen, "cursor", cursor)
	c.dispatch(gen, cursor, c.applyLoadMore)
}

// dispatch fetches off the loop and posts apply back onto it. The
// inflight count drops once apply is queued; Wait flushes the loop after.
func (c *Controller) dispatch(gen uint64, cursor string, apply func(gen uint64, page *domain.Page, err error)) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.opts.FetchTimeout)
		page, err := c.fetcher.FetchPage(ctx, cursor, c.opts.PageSize)
		cancel()

		c.loop.Post(func() { apply(gen, page, err) })
	}()
}

func (c *Controller) applyInitialLoad(gen uint64, page *domain.Page, err error) {
	if !c.state.IsCurrent(gen) {
		c.logger.Debug("Dropped initial page", "generation", gen, "current", c.state.Generation(), "error", domain.ErrStaleResponse)
		return
	}

	if err != nil {
		c.state.FailInitialLoad()
		c.lastErr = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		c.logger.Warn("Initial load failed", "generation", gen, "error", err)
		c.notify()
		c.emit(Event{Kind: EventLoadFailed, Err: c.lastErr})
		return
	}

	if page == nil {
		page = &domain.Page{}
	}
	c.state.ApplyInitialLoad(page.Items, page.NextCursor)
	if !page.HasMore {
		c.state.MarkExhausted()
	}
	c.lastErr = nil

	c.logger.Debug("Initial load applied", "generation", gen, "count", len(page.Items), "has_more", c.state.HasMoreData())
	c.notify()
	c.applyPendingRestore()
}

func (c *Controller) applyLoadMore(gen uint64, page *domain.Page, err error) {
	if !c.state.IsCurrent(gen) {
		c.logger.Debug("Dropped page", "generation", gen, "current", c.state.Generation(), "error", domain.ErrStaleResponse)
		return
	}

	if err != nil {
		c.state.FailLoadMore()
		c.lastErr = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		c.logger.Warn("Load more failed", "generation", gen, "cursor", c.state.Cursor(), "error", err)
		c.notify()
		c.emit(Event{Kind: EventLoadFailed, Err: c.lastErr})
		return
	}

	if page == nil {
		page = &domain.Page{}
	}
	c.state.ApplyAppend(page.Items, page.NextCursor)
	if !page.HasMore {
		c.state.MarkExhausted()
	}
	c.lastErr = nil

	c.logger.Debug("Page appended", "generation", gen, "count", len(page.Items), "total", c.state.Len())
	c.notify()
	c.applyPendingRestore()
}

// restorePosition reads the stored index for the activation act
func (c *Controller) restorePosition(act uint64) {
	if c.positions == nil {
		return
	}

	c.restoring = true
	c.runIO(func(ctx context.Context) func() {
		index, found, err := c.positions.Restore(ctx, c.key)
		return func() {
			if act != c.activation {
				return
			}
			c.restoring = false
			if !c.active {
				return
			}
			if c.moved {
				c.logger.Debug("Dropped restored index after user scrolled", "index", index)
				return
			}
			if err != nil {
				c.logger.Warn("Failed to restore scroll position", "error", err)
				return
			}
			if !found {
				return
			}
			c.pendingRestore = index
			c.applyPendingRestore()
		}
	})
}

// applyPendingRestore scrolls to the restored index once there is
// something to scroll to. Out-of-range indices are clamped.
func (c *Controller) applyPendingRestore() {
	if c.pendingRestore < 0 {
		return
	}
	n := c.state.Len()
	if n == 0 {
		return
	}

	index := c.pendingRestore
	c.pendingRestore = -1
	if index >= n {
		c.logger.Debug("Clamped restored index", "index", index, "count", n, "error", domain.ErrInvalidIndex)
	}
	index = clampIndex(index, n)

	c.current = index
	c.emit(Event{Kind: EventScrollTo, Index: index})
}

func (c *Controller) savePosition() {
	if c.positions == nil {
		return
	}

	// Until the stored index has been applied, current only reflects what
	// the user saw if they have scrolled since activation.
	if c.restoring && !c.moved {
		c.logger.Debug("Skipped position save while restore is pending")
		return
	}
	index := c.current
	if c.pendingRestore >= 0 {
		index = c.pendingRestore
	}

	c.runIO(func(ctx context.Context) func() {
		if err := c.positions.Save(ctx, c.key, index); err != nil {
			c.logger.Warn("Failed to save scroll position", "index", index, "error", err)
		}
		return nil
	})
}

// runIO runs job off the loop, after every job submitted before it. The
// function job returns, if any, is applied on the owner loop. Must be
// called on the loop; it never blocks it.
func (c *Controller) runIO(job func(ctx context.Context) func()) {
	prev := c.ioTail
	done := make(chan struct{})
	c.ioTail = done

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer close(done)

		if prev != nil {
			select {
			case <-prev:
			case <-c.ctx.Done():
				return
			}
		}
		if c.ctx.Err() != nil {
			return
		}

		if apply := job(c.ctx); apply != nil {
			c.loop.Post(apply)
		}
	}()
}

func (c *Controller) phase() Phase {
	switch {
	case c.state.IsLoading():
		return PhaseInitialLoading
	case c.state.IsLoadingMore():
		return PhaseLoadingMore
	case c.activatedOnce:
		return PhaseReady
	default:
		return PhaseIdle
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		FeedKey:       c.key,
		Phase:         c.phase(),
		Items:         c.state.Items(),
		IsLoading:     c.state.IsLoading(),
		IsLoadingMore: c.state.IsLoadingMore(),
		HasMoreData:   c.state.HasMoreData(),
		Cursor:        c.state.Cursor(),
		Generation:    c.state.Generation(),
		CurrentIndex:  c.current,
		Active:        c.active,
		Err:           c.lastErr,
	}
}

func (c *Controller) notify() {
	c.emit(Event{Kind: EventStateChanged})
}

func (c *Controller) emit(event Event) {
	event.Snapshot = c.snapshot()
	c.observers.publish(event)
}
