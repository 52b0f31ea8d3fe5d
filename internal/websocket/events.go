package websocket

import (
	"log"
)

// Broadcaster is the sink the rest of the server publishes to.
type Broadcaster interface {
	Broadcast(message []byte)
}

// EventBroadcaster turns dashboard state changes into WebSocket events.
type EventBroadcaster struct {
	hub Broadcaster
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub Broadcaster) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastSyncStatus sends the global sync overlay state.
func (b *EventBroadcaster) BroadcastSyncStatus(payload SyncStatusPayload) {
	b.broadcast(NewMessage(TypeSyncStatusChanged, payload))
}

// BroadcastAthleteData tells clients the dashboard cache changed.
func (b *EventBroadcaster) BroadcastAthleteData(payload AthleteDataPayload) {
	b.broadcast(NewMessage(TypeAthleteDataRefresh, payload))
}

// BroadcastCalendarData tells clients the calendar data was reloaded.
func (b *EventBroadcaster) BroadcastCalendarData(payload CalendarDataPayload) {
	b.broadcast(NewMessage(TypeCalendarDataChanged, payload))
}

// BroadcastSessionCleared tells clients to return to the login screen.
func (b *EventBroadcaster) BroadcastSessionCleared() {
	b.broadcast(NewMessage(TypeSessionCleared, struct{}{}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}))
}

func (b *EventBroadcaster) broadcast(msg Message) {
	if b == nil || b.hub == nil {
		return
	}
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}
