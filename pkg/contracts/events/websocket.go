// Package events defines the messages pushed to viewers over the websocket.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Sent once to every client right after it registers
	MessageTypeConnection MessageType = "connection"

	// Calculation lifecycle
	MessageTypeCalculationStarted  MessageType = "calculation:started"
	MessageTypeCalculationComplete MessageType = "calculation:complete"
	MessageTypeCalculationFailed   MessageType = "calculation:failed"
)

// Message is the envelope of every websocket frame
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with the current UTC time
func NewMessage(messageType MessageType, data interface{}, traceID string) Message {
	return Message{
		Type:      messageType,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Data:      data,
	}
}

// Connected is the payload of MessageTypeConnection
type Connected struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// CalculationStarted is the payload of MessageTypeCalculationStarted
type CalculationStarted struct {
	RunID string `json:"run_id"`
}

// CalculationComplete tells viewers to reload the grid
type CalculationComplete struct {
	RunID       string         `json:"run_id"`
	Items       int            `json:"items"`
	Details     int            `json:"details"`
	ByStatus    map[string]int `json:"by_status"`
	Fingerprint string         `json:"fingerprint"`
}

// CalculationFailed carries the error of a failed run
type CalculationFailed struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}
