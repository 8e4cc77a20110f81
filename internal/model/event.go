package model

import (
	"time"
)

// EventType names a record mutation the reactor listens to.
type EventType string

const (
	EventMessageCreated     EventType = "messages.created"
	EventLikeCreated        EventType = "likes.created"
	EventLikeDeleted        EventType = "likes.deleted"
	EventConversationUpdate EventType = "chat_rooms.updated"
)

// EventParams carries the path parameters of the mutated record.
type EventParams struct {
	RoomID    string `json:"roomId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

// Event is the envelope published for every record mutation.
// Data holds the created document; Before and After hold the snapshots
// of an updated or deleted one. Values are left loosely typed and are
// normalized by the handlers exactly once.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Params     EventParams    `json:"params"`
	Data       map[string]any `json:"data,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
}

// ChatMessage is a normalized message document.
type ChatMessage struct {
	RoomID   string
	SenderID string
	Text     string
}

// ChatMessageFromEvent normalizes a messages.created event.
func ChatMessageFromEvent(ev *Event) ChatMessage {
	return ChatMessage{
		RoomID:   TrimmedString(ev.Params.RoomID),
		SenderID: TrimmedString(ev.Data["senderId"]),
		Text:     CleanString(ev.Data["text"]),
	}
}

// Like is a normalized like record: LikerID liked ProductID.
type Like struct {
	LikerID   string
	ProductID string
}

// LikeFromEvent normalizes a likes.created or likes.deleted event.
func LikeFromEvent(ev *Event) Like {
	return Like{
		LikerID:   TrimmedString(ev.Params.UserID),
		ProductID: TrimmedString(ev.Params.ProductID),
	}
}
