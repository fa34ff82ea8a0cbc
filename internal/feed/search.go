package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

// SearchSnapshot is an immutable copy of the search state
type SearchSnapshot struct {
	Query       string
	Results     []domain.UserSummary
	IsSearching bool
	Generation  uint64
	Err         error
}

// SearchEvent is delivered to search subscribers on the owner loop
type SearchEvent struct {
	Kind     EventKind
	Snapshot SearchSnapshot
	// UserID is set for follow failures
	UserID string
	Err    error
}

// SearchDeps are the collaborators of a SearchController. Fetcher is required.
type SearchDeps struct {
	Fetcher QueryFetcher
	Follows FollowToggler
	Clock   clock.Clock
	Logger  *logger.Logger
}

// SearchController runs debounced user searches and optimistic follow
// toggles on the result rows.
type SearchController struct {
	opts      Options
	fetcher   QueryFetcher
	follows   FollowToggler
	logger    *logger.Logger
	loop      *Loop
	debouncer *Debouncer
	observers *observers[SearchEvent]
	inflight  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// owned by loop
	query       string
	results     []domain.UserSummary
	isSearching bool
	generation  uint64
	lastErr     error
	pending     map[string]bool
}

// NewSearchController creates a search controller
func NewSearchController(opts Options, deps SearchDeps) (*SearchController, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("search controller requires a query fetcher")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search options: %w", err)
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &SearchController{
		opts:      opts,
		fetcher:   deps.Fetcher,
		follows:   deps.Follows,
		logger:    log.WithComponent("search-controller"),
		loop:      NewLoop(opts.MailboxSize),
		debouncer: NewDebouncer(deps.Clock, opts.SearchDebounce),
		observers: newObservers[SearchEvent](),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]bool),
	}, nil
}

// Subscribe registers fn for every search event. fn runs on the owner
// loop and must not call Snapshot, Flush or Wait.
func (s *SearchController) Subscribe(fn func(SearchEvent)) (unsubscribe func()) {
	return s.observers.subscribe(fn)
}

// ChangeQuery records the new search text. Empty text clears the results
// at once; anything else is searched after the quiet period.
func (s *SearchController) ChangeQuery(text string) {
	s.loop.Post(func() { s.changeQuery(text) })
}

// ToggleFollow flips the follow state of a result row and persists it.
// The row is reverted if the request fails.
func (s *SearchController) ToggleFollow(userID string) {
	s.loop.Post(func() { s.toggleFollow(userID) })
}

// Snapshot returns a copy of the current state
func (s *SearchController) Snapshot() SearchSnapshot {
	var snap SearchSnapshot
	s.loop.Do(func() { snap = s.snapshot() })
	return snap
}

// Flush waits until every call made before it has been processed
func (s *SearchController) Flush() {
	s.loop.Do(func() {})
}

// Wait blocks until every dispatched request has been applied or dropped
func (s *SearchController) Wait() {
	s.Flush()
	s.inflight.Wait()
	s.Flush()
}

// Close stops the controller and drops in-flight results. Wait may still
// be called afterwards.
func (s *SearchController) Close() {
	s.debouncer.Stop()
	s.cancel()
	s.loop.Stop()
}

func (s *SearchController) changeQuery(text string) {
	query := strings.TrimSpace(text)
	if query == s.query {
		return
	}

	s.query = query
	s.generation++
	gen := s.generation

	if query == "" {
		s.debouncer.Cancel()
		s.results = nil
		s.isSearching = false
		s.lastErr = nil
		s.notify()
		return
	}

	s.debouncer.Trigger(func() {
		s.loop.Post(func() { s.search(gen, query) })
	})
}

func (s *SearchController) search(gen uint64, query string) {
	if gen != s.generation {
		return
	}

	s.isSearching = true
	s.notify()
	s.logger.Debug("Search started", "query", query, "generation", gen)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
		users, err := s.fetcher.FetchByQuery(ctx, query)
		cancel()

		s.loop.Post(func() { s.applySearch(gen, users, err) })
	}()
}

func (s *SearchController) applySearch(gen uint64, users []domain.UserSummary, err error) {
	if gen != s.generation {
		s.logger.Debug("Dropped search result", "generation", gen, "current", s.generation, "error", domain.ErrStaleResponse)
		return
	}

	s.isSearching = false
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
		s.logger.Warn("Search failed", "query", s.query, "error", err)
		s.notify()
		s.emit(SearchEvent{Kind: EventLoadFailed, Err: s.lastErr})
		return
	}

	s.results = append([]domain.UserSummary(nil), users...)
	s.lastErr = nil
	s.logger.Debug("Search applied", "query", s.query, "count", len(users))
	s.notify()
}

func (s *SearchController) toggleFollow(userID string) {
	if s.follows == nil {
		s.logger.Warn("Follow toggle without a follow service", "user_id", userID)
		return
	}
	if s.pending[userID] {
		s.logger.Debug("Follow toggle already in flight", "user_id", userID)
		return
	}

	i := s.indexOf(userID)
	if i < 0 {
		s.logger.Debug("Follow toggle for unknown row", "user_id", userID)
		return
	}

	follow := !s.results[i].IsFollowing
	s.results[i].IsFollowing = follow
	s.pending[userID] = true
	s.notify()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
		err := s.follows.SetFollowing(ctx, userID, follow)
		cancel()

		s.loop.Post(func() { s.applyFollow(userID, follow, err) })
	}()
}

func (s *SearchController) applyFollow(userID string, follow bool, err error) {
	delete(s.pending, userID)
	if err == nil {
		return
	}

	// the row may have been replaced by a newer search
	if i := s.indexOf(userID); i >= 0 && s.results[i].IsFollowing == follow {
		s.results[i].IsFollowing = !follow
	}
	s.lastErr = fmt.Errorf("%w: %w", domain.ErrFetchFailed, err)
	s.logger.Warn("Follow toggle failed", "user_id", userID, "follow", follow, "error", err)
	s.notify()
	s.emit(SearchEvent{Kind: EventLoadFailed, UserID: userID, Err: s.lastErr})
}

func (s *SearchController) indexOf(userID string) int {
	for i, u := range s.results {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

func (s *SearchController) snapshot() SearchSnapshot {
	results := make([]domain.UserSummary, len(s.results))
	copy(results, s.results)
	return SearchSnapshot{
		Query:       s.query,
		Results:     results,
		IsSearching: s.isSearching,
		Generation:  s.generation,
		Err:         s.lastErr,
	}
}

func (s *SearchController) notify() {
	s.emit(SearchEvent{Kind: EventStateChanged})
}

func (s *SearchController) emit(event SearchEvent) {
	event.Snapshot = s.snapshot()
	s.observers.publish(event)
}
