// Package domain contains core concepts of the chat relay.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat line. Timestamp is assigned at save time.
type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomName  string    `json:"roomName"`
	Nickname  string    `json:"nickname"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessage(roomName, nickname, text string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		RoomName:  roomName,
		Nickname:  nickname,
		Text:      text,
		Timestamp: at.UTC(),
	}
}
