package progress

import (
	"errors"
	"sync"
)

type recordingSink struct {
	mu        sync.Mutex
	events    []Event
	failAfter int
}

func (r *recordingSink) Emit(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAfter > 0 && len(r.events) >= r.failAfter {
		return errors.New("sink closed")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordingSink) Types() []Type {
	var out []Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
