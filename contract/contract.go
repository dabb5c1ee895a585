//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is a live duplex channel to one client.
// Send must not block: a slow or closed peer returns an error instead.
type Connection interface {
	ID() string
	Send(envelope event.Envelope) error
}

// PersistenceGateway is the durable store of rooms and messages.
// CreateRoom returns errors.ErrRoomExists when the name is already recorded.
// ListMessages returns the room history sorted by ascending timestamp.
type PersistenceGateway interface {
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	ListRoomNames(ctx context.Context) ([]string, error)
	ListMessages(ctx context.Context, roomName string) ([]domain.Message, error)
	SaveMessage(ctx context.Context, roomName, nickname, text string) (domain.Message, error)
}

// IRegistry tracks live connections and their claimed nicknames.
type IRegistry interface {
	Register(conn Connection)
	Claim(connID, nickname string) error
	NicknameOf(connID string) (string, bool)
	Release(connID string) (string, bool)
	Connections() []Connection
	Count() int
}

// IDirectory tracks known rooms and which connection sits in which room.
type IDirectory interface {
	Initialize(ctx context.Context) error
	Ready() bool
	Exists(name string) bool
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	JoinRoom(conn Connection, name string) (string, error)
	Leave(connID string) (string, bool)
	RoomOf(connID string) (string, bool)
	MembersOf(name string) []Connection
	Rooms() []string
}

// IBroadcaster fans an envelope out and reports how many connections accepted it.
type IBroadcaster interface {
	ToAll(envelope event.Envelope) int
	ToRoom(roomName string, envelope event.Envelope) int
}

// Censor rewrites forbidden words and returns the ones it found.
type Censor interface {
	Censor(original string) (string, []string)
}
