package feed

import (
	"sync"
)

// Loop is a single-goroutine executor. Every function posted to it runs
// in submission order on the same goroutine, which makes it the owning
// context for whatever state those functions touch. Its queue is
// unbounded, so posting never waits on the loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake   chan struct{}
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewLoop starts a loop whose queue initially holds capacity functions
func NewLoop(capacity int) *Loop {
	l := &Loop{
		queue:  make([]func(), 0, capacity),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	go l.run()

	return l
}

func (l *Loop) run() {
	defer close(l.exited)

	for {
		select {
		case <-l.wake:
		case <-l.done:
			return
		}

		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Post queues fn without waiting for it. It reports false once the loop
// has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to return. It must not be
// called from the loop itself.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Pending returns the number of queued functions that have not started
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stop terminates the loop after the running function returns. Queued
// functions that have not started are dropped.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
	<-l.exited
}
