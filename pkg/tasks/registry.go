package tasks

import (
	"sync"
	"time"

	"github.com/svedentsov/chatstream/pkg/logger"
)

// DefaultStatus is shown from stream start until the server reports
// its first real status.
const DefaultStatus = "Analyzing request"

// ThinkingStep is one named sub-stage of a generation task's plan
type ThinkingStep struct {
	Name   string
	Status string // RUNNING or COMPLETED
}

// State is the ephemeral per-stream UI state for one assistant message.
// It exists only while the stream is active and is never persisted.
type State struct {
	TaskID        string
	StatusText    string
	ThinkingSteps map[string]ThinkingStep
	StartTime     time.Time
}

// Update carries a partial state change. Nil fields are left untouched;
// ThinkingSteps merge by key-wise upsert, never wholesale replacement.
type Update struct {
	TaskID        *string
	StatusText    *string
	StartTime     *time.Time
	ThinkingSteps map[string]ThinkingStep
}

// Registry tracks all concurrently active generations, keyed by
// assistant message id.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*State
	listeners []func(id string)
	log       *logger.Logger
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: make(map[string]*State),
		log:     logger.WithComponent("tasks"),
	}
}

// Subscribe registers a listener invoked after every entry change
func (r *Registry) Subscribe(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Begin creates the entry for a newly started stream. Starting twice is
// a logic error; the second call only refreshes the start time.
func (r *Registry) Begin(id string) {
	r.mu.Lock()
	if existing, ok := r.entries[id]; ok {
		r.log.Warn("stream %s already active, refreshing start time", id)
		existing.StartTime = time.Now()
		r.mu.Unlock()
		r.notify(id)
		return
	}

	r.entries[id] = &State{
		StatusText:    DefaultStatus,
		ThinkingSteps: make(map[string]ThinkingStep),
		StartTime:     time.Now(),
	}
	r.mu.Unlock()
	r.notify(id)
}

// Update merges a partial change into an entry. Updates after End are
// no-ops.
func (r *Registry) Update(id string, u Update) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	if u.TaskID != nil {
		entry.TaskID = *u.TaskID
	}
	if u.StatusText != nil {
		entry.StatusText = *u.StatusText
	}
	if u.StartTime != nil {
		entry.StartTime = *u.StartTime
	}
	for name, step := range u.ThinkingSteps {
		entry.ThinkingSteps[name] = step
	}
	r.mu.Unlock()
	r.notify(id)
}

// ClearProgress drops the status text and step map, used when the first
// content chunk ends the thinking phase.
func (r *Registry) ClearProgress(id string) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	entry.StatusText = ""
	entry.ThinkingSteps = make(map[string]ThinkingStep)
	r.mu.Unlock()
	r.notify(id)
}

// End removes the entry for a finished stream
func (r *Registry) End(id string) {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		r.notify(id)
	}
}

// Get returns a copy of one entry's state
func (r *Registry) Get(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return State{}, false
	}

	steps := make(map[string]ThinkingStep, len(entry.ThinkingSteps))
	for name, step := range entry.ThinkingSteps {
		steps[name] = step
	}

	return State{
		TaskID:        entry.TaskID,
		StatusText:    entry.StatusText,
		ThinkingSteps: steps,
		StartTime:     entry.StartTime,
	}, true
}

// IsActive reports whether the id has a live stream
func (r *Registry) IsActive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Active returns the ids of all live streams
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) notify(id string) {
	r.mu.RLock()
	listeners := make([]func(string), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(id)
	}
}
