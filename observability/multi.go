package observability

import (
	"context"
	"sync"
)

// NoOpObserver discards all events.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// LevelFilter forwards only events at or above a minimum level.
type LevelFilter struct {
	min  Level
	next Observer
}

// NewLevelFilter wraps next so that events below min are dropped.
func NewLevelFilter(min Level, next Observer) *LevelFilter {
	if next == nil {
		next = NoOpObserver{}
	}
	return &LevelFilter{min: min, next: next}
}

func (f *LevelFilter) OnEvent(ctx context.Context, event Event) {
	if event.Level < f.min {
		return
	}
	f.next.OnEvent(ctx, event)
}

// Recorder keeps every event it receives. Safe for concurrent use; intended
// for tests and diagnostics endpoints.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnEvent(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in arrival order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Has reports whether at least one event of the given type was recorded.
func (r *Recorder) Has(eventType EventType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}
