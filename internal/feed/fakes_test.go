package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
)

const waitTimeout = 2 * time.Second

type fetchReply struct {
	page *domain.Page
	err  error
}

type fetchCall struct {
	cursor string
	size   int
	reply  chan fetchReply
}

func (c fetchCall) respond(page *domain.Page, err error) {
	c.reply <- fetchReply{page: page, err: err}
}

// fakeFetcher hands every FetchPage call to the test, which answers it
type fakeFetcher struct {
	calls chan fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan fetchCall, 16)}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor string, pageSize int) (*domain.Page, error) {
	call := fetchCall{cursor: cursor, size: pageSize, reply: make(chan fetchReply, 1)}
	f.calls <- call

	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) expectCall(t *testing.T) fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("Expected a fetch call, got none")
		return fetchCall{}
	}
}

func (f *fakeFetcher) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("Expected no fetch call, got one with cursor %q", call.cursor)
	case <-time.After(50 * time.Millisecond):
	}
}

type savedPosition struct {
	key   string
	index int
}

// fakePositions is an in-memory PositionStore that records writes
type fakePositions struct {
	mu    sync.Mutex
	data  map[string]int
	saves []savedPosition
	err   error
}

func newFakePositions() *fakePositions {
	return &fakePositions{data: make(map[string]int)}
}

func (p *fakePositions) Save(ctx context.Context, feedKey string, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.data[feedKey] = index
	p.saves = append(p.saves, savedPosition{key: feedKey, index: index})
	return nil
}

func (p *fakePositions) Restore(ctx context.Context, feedKey string) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, false, p.err
	}
	index, ok := p.data[feedKey]
	return index, ok, nil
}

func (p *fakePositions) Clear(ctx context.Context, feedKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, feedKey)
	return nil
}

func (p *fakePositions) savedIndexes() []savedPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]savedPosition, len(p.saves))
	copy(out, p.saves)
	return out
}

// recordingPrefetcher keeps every hint it receives
type recordingPrefetcher struct {
	mu    sync.Mutex
	hints [][]string
}

func (r *recordingPrefetcher) Prefetch(items []domain.FeedItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints = append(r.hints, itemIDs(items))
}

func (r *recordingPrefetcher) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hints) == 0 {
		return nil
	}
	return r.hints[len(r.hints)-1]
}

// eventLog collects events delivered to a subscriber
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
