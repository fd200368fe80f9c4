// internal/handler/event_bus.go
package handler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// Event represents a system event
type Event struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
	}
}

// Start starts the event bus
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish publishes an event
func (eb *EventBus) Publish(event Event) {
	select {
	case eb.events <- event:
	default:
		// Event bus is full, log warning
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", event.Type),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event Event) {
	eb.mutex.RLock()
	subscribers := eb.subscribers[event.Type]
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// RowEventHandler fans row lifecycle transitions out to WebSocket
// subscribers of the owning batch.
type RowEventHandler struct {
	websocketHandler *WebSocketHandler
	logger           *zap.Logger
}

// NewRowEventHandler creates a new row lifecycle event handler.
func NewRowEventHandler(websocketHandler *WebSocketHandler, logger *zap.Logger) *RowEventHandler {
	return &RowEventHandler{
		websocketHandler: websocketHandler,
		logger:           logger,
	}
}

// OnRowStarted handles a row's transition into in_progress.
func (reh *RowEventHandler) OnRowStarted(batchID string, qsaSequence uint32, flags []string) {
	reh.websocketHandler.BroadcastRowEvent(batchID, qsaSequence, "row_started", map[string]interface{}{
		"status": "in_progress",
		"flags":  flags,
	})

	reh.logger.Info("row started event broadcasted",
		zap.String("batch_id", batchID),
		zap.Uint32("qsa_sequence", qsaSequence),
	)
}

// OnArrayEngraved handles a single array within a row finishing assembly
// and being written to the artifact sink.
func (reh *RowEventHandler) OnArrayEngraved(batchID string, qsaSequence uint32, arrayIndex int, artifactPath string) {
	reh.websocketHandler.BroadcastRowEvent(batchID, qsaSequence, "array_engraved", map[string]interface{}{
		"array_index":   arrayIndex,
		"artifact_path": artifactPath,
	})

	reh.logger.Info("array engraved event broadcasted",
		zap.String("batch_id", batchID),
		zap.Uint32("qsa_sequence", qsaSequence),
		zap.Int("array_index", arrayIndex),
	)
}

// OnRowCompleted handles a row's transition into done.
func (reh *RowEventHandler) OnRowCompleted(batchID string, qsaSequence uint32) {
	reh.websocketHandler.BroadcastRowEvent(batchID, qsaSequence, "row_completed", map[string]interface{}{
		"status": "done",
	})

	reh.logger.Info("row completed event broadcasted",
		zap.String("batch_id", batchID),
		zap.Uint32("qsa_sequence", qsaSequence),
	)
}

// OnRaceDetected handles the concurrent-completion race flag raised by
// the state machine when complete commits nothing but the row already
// has engraved serials.
func (reh *RowEventHandler) OnRaceDetected(batchID string, qsaSequence uint32) {
	reh.websocketHandler.BroadcastRowEvent(batchID, qsaSequence, "race_detected", map[string]interface{}{
		"status": "needs_review",
	})

	reh.logger.Warn("race detected event broadcasted",
		zap.String("batch_id", batchID),
		zap.Uint32("qsa_sequence", qsaSequence),
	)
}

// OnBatchClosed handles a batch's transition into closed once every row
// is done.
func (reh *RowEventHandler) OnBatchClosed(batchID string) {
	reh.websocketHandler.BroadcastBatchEvent(batchID, "batch_closed", map[string]interface{}{
		"status": "closed",
	})

	reh.logger.Info("batch closed event broadcasted", zap.String("batch_id", batchID))
}
