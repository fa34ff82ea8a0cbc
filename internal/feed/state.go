package feed

import (
	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

// State is the canonical in-memory feed with its pagination cursor.
// It is not safe for concurrent use; the owning controller serializes access.
type State struct {
	items         []domain.FeedItem
	ids           map[string]struct{}
	isLoading     bool
	isLoadingMore bool
	hasMoreData   bool
	cursor        string
	generation    uint64
}

// NewState returns an empty state ready for its first load
func NewState() *State {
	return &State{
		ids:         make(map[string]struct{}),
		hasMoreData: true,
	}
}

// Reset clears the feed and invalidates every load issued before it
func (s *State) Reset() {
	s.items = nil
	s.ids = make(map[string]struct{})
	s.isLoading = false
	s.isLoadingMore = false
	s.hasMoreData = true
	s.cursor = ""
	s.generation++
}

// BeginInitialLoad marks an initial load in flight and returns the
// generation its response must match to be applied.
func (s *State) BeginInitialLoad() uint64 {
	s.isLoading = true
	s.isLoadingMore = false
	return s.generation
}

// BeginLoadMore marks an incremental load in flight. It reports false when
// a load is already running or the source is exhausted.
func (s *State) BeginLoadMore() (uint64, bool) {
	if s.isLoading || s.isLoadingMore || !s.hasMoreData {
		return 0, false
	}
	s.isLoadingMore = true
	return s.generation, true
}

// IsCurrent reports whether a response issued at gen may still be applied
func (s *State) IsCurrent(gen uint64) bool {
	return gen == s.generation
}

// ApplyInitialLoad replaces the items wholesale
func (s *State) ApplyInitialLoad(items []domain.FeedItem, cursor string) {
	s.items = nil
	s.ids = make(map[string]struct{}, len(items))
	s.appendUnique(items)
	s.cursor = cursor
	s.isLoading = false
	s.hasMoreData = len(items) > 0
}

// ApplyAppend appends a page after the existing items, preserving order
func (s *State) ApplyAppend(items []domain.FeedItem, cursor string) {
	s.appendUnique(items)
	if len(items) > 0 {
		s.cursor = cursor
	}
	s.isLoadingMore = false
	s.hasMoreData = len(items) > 0
}

// MarkExhausted records that the source has nothing after the current cursor
func (s *State) MarkExhausted() {
	s.hasMoreData = false
}

// FailInitialLoad leaves an empty feed that will not page further until reset
func (s *State) FailInitialLoad() {
	s.items = nil
	s.ids = make(map[string]struct{})
	s.isLoading = false
	s.hasMoreData = false
}

// FailLoadMore keeps items and cursor so the next trigger retries the same page
func (s *State) FailLoadMore() {
	s.isLoadingMore = false
}

func (s *State) appendUnique(items []domain.FeedItem) {
	for _, item := range items {
		if _, dup := s.ids[item.ID]; dup {
			continue
		}
		s.ids[item.ID] = struct{}{}
		s.items = append(s.items, item)
	}
}

// Len returns the number of items
func (s *State) Len() int { return len(s.items) }

// Item returns the item at index i
func (s *State) Item(i int) domain.FeedItem { return s.items[i] }

// IsLoading reports whether an initial load is in flight
func (s *State) IsLoading() bool { return s.isLoading }

// IsLoadingMore reports whether an incremental load is in flight
func (s *State) IsLoadingMore() bool { return s.isLoadingMore }

// HasMoreData reports whether load-more triggers are honored
func (s *State) HasMoreData() bool { return s.hasMoreData }

// Cursor returns the token for the next page
func (s *State) Cursor() string { return s.cursor }

// Generation returns the current reset generation
func (s *State) Generation() uint64 { return s.generation }

// Items returns a copy of the items
func (s *State) Items() []domain.FeedItem {
	out := make([]domain.FeedItem, len(s.items))
	copy(out, s.items)
	return out
}
