package jobs

import (
	"sync"
	"time"

	"veobatch/internal/domain"
)

// EventType classifies messages emitted by the orchestrator.
type EventType string

const (
	EventTypeBatch    EventType = "batch"
	EventTypeStatus   EventType = "status"
	EventTypeProgress EventType = "progress"
	EventTypeRemoved  EventType = "removed"
	EventTypeRequeued EventType = "requeued"
	EventTypeStop     EventType = "stop"
	EventTypeIdle     EventType = "idle"
)

// Event is a sequenced payload consumed by pollers.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	Type      EventType        `json:"type"`
	JobID     string           `json:"job_id,omitempty"`
	JobIDs    []string         `json:"job_ids,omitempty"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Message   string           `json:"message,omitempty"`
	Percent   int              `json:"percent,omitempty"`
	Prompts   []string         `json:"prompts,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}
	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	if b == nil {
		return event
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// LastSeq returns the sequence of the newest event, or 0.
func (b *EventBus) LastSeq() int64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}
