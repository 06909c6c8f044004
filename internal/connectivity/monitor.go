package connectivity

import "sync"

// Monitor reports whether the backend is currently unreachable and notifies
// subscribers when that state flips.
type Monitor interface {
	// Offline reports the last observed connectivity state.
	Offline() bool
	// Subscribe registers fn to be invoked once per offline/online
	// transition. The returned function removes the subscription.
	Subscribe(fn func(offline bool)) (unsubscribe func())
}

// subscriberHub implements transition fan-out shared by the monitor
// implementations. Callbacks run outside the hub lock.
type subscriberHub struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(offline bool)
}

func (h *subscriberHub) subscribe(fn func(offline bool)) func() {
	if fn == nil {
		return func() {}
	}

	h.mu.Lock()
	if h.fns == nil {
		h.fns = make(map[int]func(offline bool))
	}
	id := h.next
	h.next++
	h.fns[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.fns, id)
		h.mu.Unlock()
	}
}

func (h *subscriberHub) notify(offline bool) {
	h.mu.Lock()
	fns := make([]func(offline bool), 0, len(h.fns))
	for _, fn := range h.fns {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(offline)
	}
}
