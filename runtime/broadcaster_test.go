package runtime

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func toAny[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func TestBroadcaster_ToRoom_Is_Scoped(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	directory, _ := newDirectory(t, "lobby", "general")
	broadcaster := NewBroadcaster(log, registry, directory)

	// Given alice and bob in lobby, carol in general, dave nowhere
	alice, bob, carol, dave := NewConn(), NewConn(), NewConn(), NewConn()
	for _, c := range []*Conn{alice, bob, carol, dave} {
		registry.Register(c)
	}
	_, _ = directory.JoinRoom(alice, "lobby")
	_, _ = directory.JoinRoom(bob, "lobby")
	_, _ = directory.JoinRoom(carol, "general")

	// When something is sent to lobby
	delivered := broadcaster.ToRoom("lobby", event.SystemMessage("hello lobby"))

	// Then only lobby members receive it
	req.Equal(2, delivered)
	req.Len(alice.Received(), 1)
	req.Len(bob.Received(), 1)
	req.Empty(carol.Received())
	req.Empty(dave.Received())
}

func TestBroadcaster_ToAll_Skips_Failing_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	directory, _ := newDirectory(t)
	broadcaster := NewBroadcaster(slog.Default(), registry, directory)

	// Given a connection whose peer went away
	healthy, closed, other := NewConn(), NewConn(), NewConn()
	closed.err = errors.ErrConnectionClosed
	for _, c := range []*Conn{healthy, closed, other} {
		registry.Register(c)
	}

	delivered := broadcaster.ToAll(event.NewRoomListing([]string{"lobby"}))

	// Then the others still get the envelope
	req.Equal(2, delivered)
	req.Equal([]event.Envelope{event.NewRoomListing([]string{"lobby"})}, healthy.Received())
	req.Len(other.Received(), 1)
	req.Empty(closed.Received())
}

func TestBroadcaster_Empty_Room(t *testing.T) {
	req := require.New(t)
	directory, _ := newDirectory(t, "lobby")
	broadcaster := NewBroadcaster(slog.Default(), NewRegistry(), directory)
	req.Zero(broadcaster.ToRoom("lobby", event.SystemMessage("anyone?")))
}
