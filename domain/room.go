package domain

import "time"

// Room is a durable, uniquely named chat room. Rooms are never deleted.
type Room struct {
	Name      string
	CreatedAt time.Time
}

func NewRoom(name string, createdAt time.Time) Room {
	return Room{Name: name, CreatedAt: createdAt.UTC()}
}
