package services

import (
	"context"
	"time"

	"printqueue/models"
)

type EventType string

const (
	EventJoined    EventType = "queue.joined"
	EventCalled    EventType = "queue.called"
	EventCompleted EventType = "queue.completed"
	EventRemoved   EventType = "queue.removed"
	EventReset     EventType = "queue.reset"
)

// LifecycleEvent describes one applied engine operation.
type LifecycleEvent struct {
	Type  EventType          `json:"type"`
	Desk  models.Desk        `json:"desk,omitempty"`
	Entry *models.QueueEntry `json:"entry,omitempty"`
	At    time.Time          `json:"at"`
}

// EventSink receives lifecycle events after the write has been applied.
// Sinks must not block for long and must not fail the operation.
type EventSink interface {
	QueueEvent(ctx context.Context, ev LifecycleEvent)
}
