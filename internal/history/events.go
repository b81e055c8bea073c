package history

import (
	"sort"
	"sync"
)

// Event names a change channel. Events carry no payload; subscribers
// re-read the lists they care about.
type Event int

const (
	HistoryChanged Event = iota
	PinnedChanged
)

func (e Event) String() string {
	switch e {
	case HistoryChanged:
		return "history-changed"
	case PinnedChanged:
		return "pinned-list-changed"
	}
	return "unknown"
}

type subscriber struct {
	event Event
	fn    func()
}

// Emitter fans events out to subscribers.
type Emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[int]subscriber)}
}

// Subscribe registers fn for ev and returns a function that removes it.
func (e *Emitter) Subscribe(ev Event, fn func()) (cancel func()) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = subscriber{event: ev, fn: fn}
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Emit calls every subscriber of each event, in registration order per
// event. It must not be called with the store lock held.
func (e *Emitter) Emit(events ...Event) {
	for _, ev := range events {
		e.mu.Lock()
		ids := make([]int, 0, len(e.subs))
		for id, s := range e.subs {
			if s.event == ev {
				ids = append(ids, id)
			}
		}
		fns := make([]func(), 0, len(ids))
		sort.Ints(ids)
		for _, id := range ids {
			fns = append(fns, e.subs[id].fn)
		}
		e.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}
