// Package events provides the notification bus between the core engines and
// whatever presentation layer embeds them. Engines publish; the UI subscribes.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sftpdeck/sftpdeck/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	// Session events
	EventDirectoryChanged EventType = "directory_changed"
	EventDisconnected     EventType = "disconnected"

	// Transfer events
	EventTransferProgress  EventType = "transfer_progress"  // (done, total) update
	EventTransferCompleted EventType = "transfer_completed" // all items transferred
	EventTransferPartial   EventType = "transfer_partial"   // cancelled or per-item failures
	EventTransferFailed    EventType = "transfer_failed"    // job-level failure

	// Update events
	EventUpdateAvailable EventType = "update_available"
	EventUpdateInstalled EventType = "update_installed"
	EventUpdateFailed    EventType = "update_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// DirectoryChangedEvent is published after a successful navigation.
// Path is the remote's canonical resolution of the new working directory.
type DirectoryChangedEvent struct {
	BaseEvent
	Path string
}

// TransferEvent carries transfer progress and completion information.
// For progress events Done/Total count files within a recursive job or
// bytes within a single-file transfer, as labelled by Unit.
type TransferEvent struct {
	BaseEvent
	Direction string // "upload" or "download"
	Source    string
	Dest      string
	Unit      string // "files" or "bytes"
	Done      int64
	Total     int64
	Failures  int
	Err       error
}

// UpdateEvent carries update lifecycle information.
type UpdateEvent struct {
	BaseEvent
	Version  string
	Critical bool
	Err      error
}

// LogEvent mirrors a log line onto the bus for GUI capture.
type LogEvent struct {
	BaseEvent
	Level   string
	Message string
	Err     error
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // events dropped due to full buffers
}

// NewEventBus creates a new event bus with the specified per-subscriber buffer.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Publishing never blocks an
// engine: a subscriber whose buffer is full simply misses the event.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// PublishDirectoryChanged is a convenience wrapper for navigation events.
func (eb *EventBus) PublishDirectoryChanged(path string) {
	eb.Publish(&DirectoryChangedEvent{
		BaseEvent: BaseEvent{EventType: EventDirectoryChanged, Time: time.Now()},
		Path:      path,
	})
}

// PublishTransfer is a convenience wrapper for transfer events.
func (eb *EventBus) PublishTransfer(t EventType, direction, source, dest, unit string, done, total int64, failures int, err error) {
	eb.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: t, Time: time.Now()},
		Direction: direction,
		Source:    source,
		Dest:      dest,
		Unit:      unit,
		Done:      done,
		Total:     total,
		Failures:  failures,
		Err:       err,
	})
}

// PublishUpdate is a convenience wrapper for update lifecycle events.
func (eb *EventBus) PublishUpdate(t EventType, version string, critical bool, err error) {
	eb.Publish(&UpdateEvent{
		BaseEvent: BaseEvent{EventType: t, Time: time.Now()},
		Version:   version,
		Critical:  critical,
		Err:       err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type.
// This prevents leaks from abandoned subscriptions.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped due to full buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
