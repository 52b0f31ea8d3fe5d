package websocket

import (
	"encoding/json"
	"time"

	"github.com/training-dashboard/backend/internal/globalsync"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeSyncStatusChanged   MessageType = "sync.status_changed"
	TypeAthleteDataRefresh  MessageType = "athlete.data_refreshed"
	TypeCalendarDataChanged MessageType = "calendar.data_changed"
	TypeSessionCleared      MessageType = "session.cleared"
	TypeNotification        MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncStatusPayload is the payload for sync.status_changed events.
type SyncStatusPayload struct {
	RunID   string `json:"run_id,omitempty"`
	Phase   string `json:"phase"`
	Text    string `json:"text"`
	Busy    bool   `json:"busy"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSyncStatusPayload converts the overlay state into its event payload.
func NewSyncStatusPayload(st globalsync.Status) SyncStatusPayload {
	return SyncStatusPayload{
		RunID:   st.RunID,
		Phase:   string(st.Phase),
		Text:    st.Text,
		Busy:    st.Busy,
		Outcome: string(st.Outcome),
		Error:   st.Error,
	}
}

// AthleteDataPayload is the payload for athlete.data_refreshed events.
type AthleteDataPayload struct {
	AthleteID  int64  `json:"athlete_id"`
	Activities int    `json:"activities"`
	HistoryLen int    `json:"history_points"`
	HasMetrics bool   `json:"has_metrics"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
}

// CalendarDataPayload is the payload for calendar.data_changed events.
type CalendarDataPayload struct {
	AthleteID  int64  `json:"athlete_id"`
	Activities int    `json:"activities"`
	Races      int    `json:"races"`
	Error      string `json:"error,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
