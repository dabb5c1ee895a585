package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"
)

type Set map[string]struct{}

// Directory knows which rooms exist and which connection sits in which room.
// A room only becomes known once the gateway has recorded it.
type Directory struct {
	mu          sync.RWMutex
	log         *slog.Logger
	gateway     contract.PersistenceGateway
	ready       bool
	rooms       Set                                       // known room names
	pending     Set                                       // names being persisted right now
	memberships map[string]string                         // connection ID -> room name
	members     map[string]map[string]contract.Connection // room name -> connection ID -> handle
}

var _ contract.IDirectory = (*Directory)(nil)

func NewDirectory(log *slog.Logger, gateway contract.PersistenceGateway) *Directory {
	return &Directory{
		log:         log,
		gateway:     gateway,
		rooms:       make(Set),
		pending:     make(Set),
		memberships: make(map[string]string),
		members:     make(map[string]map[string]contract.Connection),
	}
}

// Initialize seeds the known rooms from the gateway. Calling it again merges
// the stored names with the ones already known.
func (d *Directory) Initialize(ctx context.Context) error {
	names, err := d.gateway.ListRoomNames(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range names {
		d.rooms[name] = struct{}{}
	}
	d.ready = true
	d.log.Info("Room directory initialized", "rooms", len(d.rooms))
	return nil
}

func (d *Directory) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

func (d *Directory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[name]
	return ok
}

// CreateRoom reserves the name, persists the room without holding the lock,
// then commits it. While the gateway call is in flight any other creation of
// the same name fails with errors.ErrRoomExists. Nothing is persisted before
// the directory is seeded.
func (d *Directory) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	d.mu.Lock()
	if !d.ready {
		d.mu.Unlock()
		return domain.Room{}, errors.ErrDirectoryNotReady
	}
	_, known := d.rooms[name]
	_, inFlight := d.pending[name]
	if known || inFlight {
		d.mu.Unlock()
		return domain.Room{}, errors.ErrRoomExists
	}
	d.pending[name] = struct{}{}
	d.mu.Unlock()

	room, err := d.gateway.CreateRoom(ctx, name)

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, name)
	if err != nil {
		if stdErrors.Is(err, errors.ErrRoomExists) {
			// Recorded by someone else, learn it
			d.rooms[name] = struct{}{}
		}
		return domain.Room{}, err
	}
	d.rooms[name] = struct{}{}
	return room, nil
}

// JoinRoom moves the connection into the room, leaving any previous one.
// It returns the name of the room left, empty if there was none.
func (d *Directory) JoinRoom(conn contract.Connection, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return "", errors.ErrDirectoryNotReady
	}
	if _, ok := d.rooms[name]; !ok {
		return "", errors.ErrRoomNotFound
	}

	previous := d.leave(conn.ID())
	d.memberships[conn.ID()] = name
	if _, ok := d.members[name]; !ok {
		d.members[name] = make(map[string]contract.Connection)
	}
	d.members[name][conn.ID()] = conn
	return previous, nil
}

// Leave clears the membership of the connection. Leaving twice is a no-op.
func (d *Directory) Leave(connID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	previous := d.leave(connID)
	return previous, previous != ""
}

// leave must be called with the lock held.
func (d *Directory) leave(connID string) string {
	previous, ok := d.memberships[connID]
	if !ok {
		return ""
	}
	delete(d.memberships, connID)
	if members, ok := d.members[previous]; ok {
		delete(members, connID)
		// No empty sets left behind
		if len(members) == 0 {
			delete(d.members, previous)
		}
	}
	return previous
}

func (d *Directory) RoomOf(connID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.memberships[connID]
	return name, ok
}

// MembersOf returns a snapshot of the connections currently in the room.
func (d *Directory) MembersOf(name string) []contract.Connection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Values(d.members[name])
}

// Rooms returns the known room names sorted alphabetically.
func (d *Directory) Rooms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := lo.Keys(d.rooms)
	slices.Sort(names)
	return names
}

func (d *Directory) RoomCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *Directory) MemberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.memberships)
}
