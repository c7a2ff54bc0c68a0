// Package protocol defines the line-delimited JSON protocol spoken across
// the boundary between the foreground pipeline and the external geometry
// evaluator. All correlation is by request id; no memory is shared.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/qutlas/designcore/pkg/intent"
)

// MessageType represents the type of message in the protocol.
type MessageType string

const (
	// MessageTypeReady indicates the evaluator is ready to receive requests
	MessageTypeReady MessageType = "READY"
	// MessageTypeRequest indicates an operation request from the foreground
	MessageTypeRequest MessageType = "REQ"
	// MessageTypeResult indicates a completed operation
	MessageTypeResult MessageType = "RESULT"
	// MessageTypeError indicates an operation failed
	MessageTypeError MessageType = "ERROR"
	// MessageTypeExit indicates the evaluator is shutting down
	MessageTypeExit MessageType = "EXIT"
)

// Message is the base envelope for all protocol messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ReadyMessage is sent once when the evaluator has finished initializing.
type ReadyMessage struct {
	Version      string          `json:"version"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
	PID          int             `json:"pid,omitempty"`
}

// Request asks the evaluator to perform one operation. Target and Operand
// reference geometry handles from earlier responses.
type Request struct {
	ID      string          `json:"id"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Target  string          `json:"target,omitempty"`
	Operand string          `json:"operand,omitempty"`
	Timeout int             `json:"timeout,omitempty"` // seconds
}

// Result is the successful outcome of one request.
type Result struct {
	RequestID  string          `json:"request_id"`
	Status     string          `json:"status"`
	GeometryID string          `json:"geometry_id,omitempty"`
	Mesh       *intent.Mesh    `json:"mesh,omitempty"`
	Raw        json.RawMessage `json:"result,omitempty"`
	Duration   float64         `json:"duration,omitempty"` // seconds
}

// ErrorMessage reports a failed request.
type ErrorMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ExitMessage is sent before the evaluator terminates.
type ExitMessage struct {
	Reason   string `json:"reason"`
	ExitCode int    `json:"exit_code"`
}

// Validate checks if the message type is valid.
func (mt MessageType) Validate() error {
	switch mt {
	case MessageTypeReady, MessageTypeRequest, MessageTypeResult,
		MessageTypeError, MessageTypeExit:
		return nil
	default:
		return fmt.Errorf("invalid message type: %s", mt)
	}
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("request id is required")
	}
	if r.Op == "" {
		return fmt.Errorf("request op is required")
	}
	return nil
}
