package ws

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/vedran77/hive/internal/addressing"
	"github.com/vedran77/hive/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeThreadOpen  = "thread.open"
	EventTypeThreadClose = "thread.close"
	EventTypeTypingStart = "typing.start"
	EventTypeTypingStop  = "typing.stop"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeThreadSnapshot   = "thread.snapshot"
	EventTypeActivitySnapshot = "activity.snapshot"
	EventTypeTyping           = "typing"
	EventTypePresence         = "presence"
	EventTypePong             = "pong"
	EventTypeError            = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string             `json:"type"`
	Thread    *addressing.Thread `json:"thread,omitempty"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
	Timestamp int64              `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ThreadPayload struct {
	Thread addressing.Thread `json:"thread"`
}

// --- Server → Client payloads ---

type ActivityPayload struct {
	Items       []domain.ActivityItem `json:"items"`
	UnreadCount int                   `json:"unread_count"`
}

type TypingPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}

type PresencePayload struct {
	UserID string `json:"user_id"`
	Status string `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, thread *addressing.Thread, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Thread:    thread,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

func encode(eventType string, thread *addressing.Thread, payload any) ([]byte, error) {
	evt, err := NewEvent(eventType, thread, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}
