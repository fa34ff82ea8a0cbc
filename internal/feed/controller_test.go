package feed

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

type harness struct {
	ctrl       *Controller
	fetcher    *fakeFetcher
	positions  *fakePositions
	prefetcher *recordingPrefetcher
	clock      *clock.Mock
	events     *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		fetcher:    newFakeFetcher(),
		positions:  newFakePositions(),
		prefetcher: &recordingPrefetcher{},
		clock:      clock.NewMock(),
		events:     &eventLog{},
	}

	ctrl, err := NewController("space-1", DefaultOptions(), ControllerDeps{
		Fetcher:    h.fetcher,
		Positions:  h.positions,
		Prefetcher: h.prefetcher,
		Clock:      h.clock,
	})
	if err != nil {
		t.Fatalf("Failed to create controller: %v", err)
	}
	ctrl.Subscribe(h.events.record)
	h.ctrl = ctrl

	t.Cleanup(ctrl.Close)
	return h
}

// loadInitial activates the feed and answers the first fetch with n items
func (h *harness) loadInitial(t *testing.T, n int, hasMore bool) {
	t.Helper()
	h.ctrl.Activate()
	call := h.fetcher.expectCall(t)
	if call.cursor != "" {
		t.Fatalf("Expected initial fetch with empty cursor, got %q", call.cursor)
	}
	call.respond(&domain.Page{Items: makeItems("a", n), NextCursor: "c1", HasMore: hasMore}, nil)
	h.ctrl.Wait()
}

func TestNewControllerValidates(t *testing.T) {
	if _, err := NewController("", DefaultOptions(), ControllerDeps{Fetcher: newFakeFetcher()}); err == nil {
		t.Error("Expected error for empty feed key")
	}
	if _, err := NewController("k", DefaultOptions(), ControllerDeps{}); err == nil {
		t.Error("Expected error for missing fetcher")
	}
	opts := DefaultOptions()
	opts.PageSize = 0
	if _, err := NewController("k", opts, ControllerDeps{Fetcher: newFakeFetcher()}); err == nil {
		t.Error("Expected error for zero page size")
	}
}

func TestActivateTwiceIssuesOneInitialLoad(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Activate()
	h.ctrl.Activate()

	call := h.fetcher.expectCall(t)
	if call.size != 8 {
		t.Errorf("Expected page size 8, got %d", call.size)
	}
	h.fetcher.expectNoCall(t)

	snap := h.ctrl.Snapshot()
	if snap.Phase != PhaseInitialLoading {
		t.Errorf("Expected initial_loading, got %s", snap.Phase)
	}

	call.respond(&domain.Page{Items: makeItems("a", 8), NextCursor: "c1", HasMore: true}, nil)
	h.ctrl.Wait()

	snap = h.ctrl.Snapshot()
	if snap.Phase != PhaseReady || len(snap.Items) != 8 || !snap.HasMoreData {
		t.Errorf("Expected ready with 8 items and more data, got %s / %d / %v", snap.Phase, len(snap.Items), snap.HasMoreData)
	}
}

func TestRefreshDropsStaleInitialResponse(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Activate()
	first := h.fetcher.expectCall(t)

	h.ctrl.Refresh()
	second := h.fetcher.expectCall(t)

	first.respond(&domain.Page{Items: makeItems("stale", 3), NextCursor: "s", HasMore: true}, nil)
	h.ctrl.Flush()
	second.respond(&domain.Page{Items: makeItems("fresh", 2), NextCursor: "f", HasMore: true}, nil)
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	if got := itemIDs(snap.Items); !reflect.DeepEqual(got, []string{"fresh-0", "fresh-1"}) {
		t.Errorf("Expected only fresh items, got %v", got)
	}
	if snap.Generation != 1 {
		t.Errorf("Expected generation 1, got %d", snap.Generation)
	}

	for _, e := range h.events.all() {
		for _, item := range e.Snapshot.Items {
			if item.ID == "stale-0" {
				t.Fatal("Stale page was applied at some point")
			}
		}
	}
}

func TestLoadMoreTriggeredNearEnd(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	h.ctrl.ItemVisible(0)
	h.ctrl.Flush()
	h.clock.Add(500 * time.Millisecond)
	h.fetcher.expectNoCall(t)

	h.ctrl.ItemVisible(7)
	h.ctrl.Flush()
	h.clock.Add(500 * time.Millisecond)

	call := h.fetcher.expectCall(t)
	if call.cursor != "c1" {
		t.Errorf("Expected load more from cursor c1, got %q", call.cursor)
	}
	h.fetcher.expectNoCall(t)

	call.respond(&domain.Page{Items: makeItems("b", 8), NextCursor: "c2", HasMore: true}, nil)
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	if len(snap.Items) != 18 || snap.Cursor != "c2" {
		t.Errorf("Expected 18 items at cursor c2, got %d at %q", len(snap.Items), snap.Cursor)
	}
	if snap.Items[10].ID != "b-0" {
		t.Errorf("Expected appended page after existing items, got %s at index 10", snap.Items[10].ID)
	}
}

func TestLoadMoreTriggersCoalesce(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	for _, i := range []int{7, 8, 9, 8, 9} {
		h.ctrl.ItemVisible(i)
		h.ctrl.Flush()
		h.clock.Add(100 * time.Millisecond)
	}
	h.clock.Add(500 * time.Millisecond)

	h.fetcher.expectCall(t)
	h.fetcher.expectNoCall(t)
}

func TestNoLoadMoreWhenExhausted(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 5, false)

	snap := h.ctrl.Snapshot()
	if snap.HasMoreData {
		t.Fatal("Expected HasMoreData=false when source reports no more pages")
	}

	h.ctrl.ItemVisible(4)
	h.ctrl.Flush()
	h.clock.Add(time.Second)
	h.fetcher.expectNoCall(t)
}

func TestLoadMoreFailureKeepsItemsAndAllowsRetry(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	h.ctrl.ItemVisible(9)
	h.ctrl.Flush()
	h.clock.Add(500 * time.Millisecond)
	h.fetcher.expectCall(t).respond(nil, errors.New("connection reset"))
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	if len(snap.Items) != 10 || snap.Cursor != "c1" || snap.IsLoadingMore {
		t.Errorf("Expected intact state after failed load more, got %d items cursor %q loading=%v", len(snap.Items), snap.Cursor, snap.IsLoadingMore)
	}
	if !errors.Is(snap.Err, domain.ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", snap.Err)
	}
	if len(h.events.ofKind(EventLoadFailed)) != 1 {
		t.Errorf("Expected one load failed event")
	}

	h.ctrl.ItemVisible(8)
	h.ctrl.Flush()
	h.clock.Add(500 * time.Millisecond)
	retry := h.fetcher.expectCall(t)
	if retry.cursor != "c1" {
		t.Errorf("Expected retry from the same cursor, got %q", retry.cursor)
	}
	retry.respond(&domain.Page{Items: makeItems("b", 2), NextCursor: "c2", HasMore: false}, nil)
	h.ctrl.Wait()

	snap = h.ctrl.Snapshot()
	if len(snap.Items) != 12 || snap.HasMoreData || snap.Err != nil {
		t.Errorf("Expected 12 items, exhausted, no error; got %d / %v / %v", len(snap.Items), snap.HasMoreData, snap.Err)
	}
}

func TestFailedInitialLoadThenRefresh(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Activate()
	h.fetcher.expectCall(t).respond(nil, errors.New("503"))
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	if len(snap.Items) != 0 || snap.HasMoreData {
		t.Fatalf("Expected empty exhausted feed, got %d items has_more=%v", len(snap.Items), snap.HasMoreData)
	}
	if !errors.Is(snap.Err, domain.ErrFetchFailed) {
		t.Fatalf("Expected ErrFetchFailed, got %v", snap.Err)
	}
	failed := h.events.ofKind(EventLoadFailed)
	if len(failed) != 1 || !errors.Is(failed[0].Err, domain.ErrFetchFailed) {
		t.Fatalf("Expected one ErrFetchFailed event, got %v", failed)
	}

	// no silent retry
	h.fetcher.expectNoCall(t)

	h.ctrl.Refresh()
	h.fetcher.expectCall(t).respond(&domain.Page{Items: makeItems("a", 8), NextCursor: "c1", HasMore: true}, nil)
	h.ctrl.Wait()

	snap = h.ctrl.Snapshot()
	if len(snap.Items) != 8 || !snap.HasMoreData || snap.Err != nil {
		t.Errorf("Expected 8 items with more data, got %d / %v / %v", len(snap.Items), snap.HasMoreData, snap.Err)
	}
}

func TestRestoreClampsOutOfRangeIndex(t *testing.T) {
	h := newHarness(t)
	h.positions.data["space-1"] = 999

	h.loadInitial(t, 5, true)

	scrolls := h.events.ofKind(EventScrollTo)
	if len(scrolls) != 1 {
		t.Fatalf("Expected one scroll event, got %d", len(scrolls))
	}
	if scrolls[0].Index != 4 {
		t.Errorf("Expected scroll target clamped to 4, got %d", scrolls[0].Index)
	}
	if snap := h.ctrl.Snapshot(); snap.CurrentIndex != 4 {
		t.Errorf("Expected current index 4, got %d", snap.CurrentIndex)
	}
}

func TestRestoreWithoutStoredPositionDoesNotScroll(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 5, true)

	if n := len(h.events.ofKind(EventScrollTo)); n != 0 {
		t.Errorf("Expected no scroll event, got %d", n)
	}
}

func TestDeactivateSavesOnlyWhenActive(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	h.ctrl.ItemVisible(3)
	h.ctrl.Deactivate()
	h.ctrl.Deactivate()
	h.ctrl.SavePosition()
	h.ctrl.Wait()

	saves := h.positions.savedIndexes()
	if len(saves) != 1 {
		t.Fatalf("Expected exactly one save, got %v", saves)
	}
	if saves[0] != (savedPosition{key: "space-1", index: 3}) {
		t.Errorf("Expected save of index 3, got %+v", saves[0])
	}
}

func TestReactivationScrollsToSavedPosition(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	h.ctrl.ItemVisible(6)
	h.ctrl.Deactivate()
	h.ctrl.Wait()

	h.ctrl.Activate()
	h.ctrl.Wait()
	h.fetcher.expectNoCall(t)

	scrolls := h.events.ofKind(EventScrollTo)
	if len(scrolls) != 1 || scrolls[0].Index != 6 {
		t.Fatalf("Expected scroll to 6 on reactivation, got %v", scrolls)
	}

	h.ctrl.SavePosition()
	h.ctrl.Wait()
	if saves := h.positions.savedIndexes(); len(saves) != 2 || saves[1].index != 6 {
		t.Errorf("Expected explicit save of 6 while active, got %v", saves)
	}
}

func TestRefreshKeepsStoredPosition(t *testing.T) {
	h := newHarness(t)
	h.positions.data["space-1"] = 2
	h.loadInitial(t, 5, true)

	h.ctrl.Refresh()
	h.fetcher.expectCall(t).respond(&domain.Page{Items: makeItems("r", 5), HasMore: true}, nil)
	h.ctrl.Wait()

	if idx, ok, _ := h.positions.Restore(context.Background(), "space-1"); !ok || idx != 2 {
		t.Errorf("Expected stored position 2 to survive refresh, got %d (found=%v)", idx, ok)
	}

	h.ctrl.ClearPosition()
	h.ctrl.Wait()
	if _, ok, _ := h.positions.Restore(context.Background(), "space-1"); ok {
		t.Error("Expected ClearPosition to remove the stored index")
	}
}

func TestPrefetchNeighborhood(t *testing.T) {
	h := newHarness(t)
	h.loadInitial(t, 10, true)

	h.ctrl.ItemVisible(5)
	h.ctrl.Flush()
	if got, want := h.prefetcher.last(), []string{"a-6", "a-7", "a-8", "a-3", "a-4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected prefetch %v, got %v", want, got)
	}

	h.ctrl.ItemVisible(0)
	h.ctrl.Flush()
	if got, want := h.prefetcher.last(), []string{"a-1", "a-2", "a-3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected prefetch %v, got %v", want, got)
	}

	h.ctrl.ItemVisible(42)
	h.ctrl.Flush()
	if got, want := h.prefetcher.last(), []string{"a-7", "a-8"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected clamped prefetch %v, got %v", want, got)
	}
}

func TestNeighborhood(t *testing.T) {
	tests := []struct {
		name                 string
		index, n, ahead, beh int
		want                 []int
	}{
		{"middle", 5, 10, 3, 2, []int{6, 7, 8, 3, 4}},
		{"start", 0, 10, 3, 2, []int{1, 2, 3}},
		{"end", 9, 10, 3, 2, []int{7, 8}},
		{"tiny", 0, 1, 3, 2, []int{}},
		{"out of range", 20, 10, 3, 2, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Neighborhood(tt.index, tt.n, tt.ahead, tt.beh)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Neighborhood(%d, %d) = %v, want %v", tt.index, tt.n, got, tt.want)
			}
		})
	}
}

func TestVisibleIndexOnEmptyFeedIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.ctrl.ItemVisible(3)
	h.ctrl.Flush()
	h.clock.Add(time.Second)
	h.fetcher.expectNoCall(t)

	if snap := h.ctrl.Snapshot(); snap.Phase != PhaseIdle {
		t.Errorf("Expected idle, got %s", snap.Phase)
	}
}
