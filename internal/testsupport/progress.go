package testsupport

import (
	"errors"
	"sync"

	"poolpack/internal/progress"
)

// Recorder is a progress.Sink that keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []progress.Event
	// FailAfter, when positive, makes Emit fail once that many events were recorded.
	FailAfter int
}

func (r *Recorder) Emit(event progress.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAfter > 0 && len(r.events) >= r.FailAfter {
		return errors.New("recorder closed")
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []progress.Type {
	events := r.Events()
	out := make([]progress.Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
