package feed

import "sync"

// observers is a registry of callbacks notified synchronously, in
// registration order, on the owner loop.
type observers[E any] struct {
	mu     sync.Mutex
	nextID int
	ids    []int
	fns    map[int]func(E)
}

func newObservers[E any]() *observers[E] {
	return &observers[E]{fns: make(map[int]func(E))}
}

func (o *observers[E]) subscribe(fn func(E)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.ids = append(o.ids, id)
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { o.unsubscribe(id) })
	}
}

func (o *observers[E]) unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.fns, id)
	for i, v := range o.ids {
		if v == id {
			o.ids = append(o.ids[:i], o.ids[i+1:]...)
			break
		}
	}
}

func (o *observers[E]) publish(event E) {
	o.mu.Lock()
	fns := make([]func(E), 0, len(o.ids))
	for _, id := range o.ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
