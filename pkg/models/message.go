// Package models provides the shared domain types for the Dex coordination
// core: messages, tasks, plans, traces, reminders, and memory entries.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the routing class of a bus message. The set is
// closed: agents switch on these values and unknown types are never routed.
type MessageType string

const (
	// Orchestration
	MessagePlanRequest     MessageType = "plan_request"
	MessagePlanResponse    MessageType = "plan_response"
	MessageExecuteRequest  MessageType = "execute_request"
	MessageExecuteResponse MessageType = "execute_response"
	MessageVerifyRequest   MessageType = "verify_request"
	MessageVerifyResponse  MessageType = "verify_response"

	// Tool
	MessageToolCall   MessageType = "tool_call"
	MessageToolResult MessageType = "tool_result"
	MessageToolError  MessageType = "tool_error"

	// Control
	MessageAgentReady    MessageType = "agent_ready"
	MessageAgentBusy     MessageType = "agent_busy"
	MessageCancelRequest MessageType = "cancel_request"
	MessageHeartbeat     MessageType = "heartbeat"

	// Data
	MessageContextUpdate MessageType = "context_update"
	MessageStateSync     MessageType = "state_sync"

	// Error
	MessageRequestFailed    MessageType = "request_failed"
	MessageRecoverableError MessageType = "recoverable_error"
	MessageCriticalError    MessageType = "critical_error"
)

// MessageStatus is the delivery lifecycle of a message. Terminal statuses
// never transition again; the bus is the only writer of this field.
type MessageStatus string

const (
	StatusSent       MessageStatus = "sent"
	StatusDelivered  MessageStatus = "delivered"
	StatusProcessing MessageStatus = "processing"
	StatusCompleted  MessageStatus = "completed"
	StatusFailed     MessageStatus = "failed"
	StatusTimeout    MessageStatus = "timeout"
	StatusCancelled  MessageStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s MessageStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// Broadcast is the recipient name that fans a message out to every
// subscriber registered under the broadcast key.
const Broadcast = "broadcast"

// Message is the uniform envelope routed by the bus.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient"`

	// CorrelationID links a response to the request that caused it.
	CorrelationID string `json:"correlation_id,omitempty"`
	// ParentID records the causal predecessor, if any.
	ParentID string `json:"parent_id,omitempty"`

	Payload map[string]any `json:"payload,omitempty"`

	Status      MessageStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	SentAt      time.Time     `json:"sent_at,omitzero"`
	DeliveredAt time.Time     `json:"delivered_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Error       string        `json:"error,omitempty"`
}

// NewMessage builds an envelope with a fresh ID and creation timestamp.
// Status starts empty; the bus stamps it on publish.
func NewMessage(t MessageType, sender, recipient string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      t,
		Sender:    sender,
		Recipient: recipient,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Reply builds a response envelope addressed back at the sender, carrying
// the original message ID as both correlation and parent.
func (m *Message) Reply(t MessageType, sender string, payload map[string]any) *Message {
	r := NewMessage(t, sender, m.Sender, payload)
	r.CorrelationID = m.ID
	if m.CorrelationID != "" {
		r.CorrelationID = m.CorrelationID
	}
	r.ParentID = m.ID
	return r
}
