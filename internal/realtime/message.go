// Package realtime pushes aggregation progress and reading events to websocket
// clients. Workers publish through Redis; every web process relays the channel
// to its own clients.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/odyssey-erp/aqp/internal/aggregates"
)

// Event names carried on the wire.
const (
	EventAggregationProgress = "reading_aggregation_progress"
	EventReadingCreated      = "monitor_reading_created"
	EventReadingDeleted      = "monitor_reading_deleted"
)

// Message is the envelope sent to websocket clients and over the relay channel.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewMessage encodes data under event.
func NewMessage(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("realtime: encode %s: %w", event, err)
	}
	return json.Marshal(Message{Event: event, Data: raw})
}

// ProgressEvent is dispatched on the bus for every relayed progress update.
type ProgressEvent struct {
	Progress aggregates.Progress
}
