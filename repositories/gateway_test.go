package repositories

import (
	"chat-relay/errors"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, limit *int) *Gateway {
	t.Helper()
	db := openBadger(t)
	log := slog.Default()
	return NewGateway(log, NewRoomRepository(db, log), NewMessageRepository(db, log, limit), time.Second)
}

func TestGateway_Room_Lifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	gateway := newTestGateway(t, nil)

	room, err := gateway.CreateRoom(ctx, "lobby")
	req.NoError(err)
	req.Equal("lobby", room.Name)
	req.False(room.CreatedAt.IsZero())

	_, err = gateway.CreateRoom(ctx, "lobby")
	req.ErrorIs(err, errors.ErrRoomExists)
	req.NotErrorIs(err, errors.ErrPersistence)

	names, err := gateway.ListRoomNames(ctx)
	req.NoError(err)
	req.Equal([]string{"lobby"}, names)
}

func TestGateway_Save_And_List_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	gateway := newTestGateway(t, nil)

	// Given a clock moving forward one second per call
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	gateway.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls) * time.Second)
	}

	first, err := gateway.SaveMessage(ctx, "lobby", "alice", "hi")
	req.NoError(err)
	second, err := gateway.SaveMessage(ctx, "lobby", "bob", "hello")
	req.NoError(err)
	req.Equal("alice", first.Nickname)
	req.Equal(start.Add(time.Second), first.Timestamp)

	messages, err := gateway.ListMessages(ctx, "lobby")
	req.NoError(err)
	req.Equal(first, messages[0])
	req.Equal(second, messages[1])
}

func TestGateway_Expired_Context_Is_A_Persistence_Failure(t *testing.T) {
	req := require.New(t)
	gateway := newTestGateway(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.SaveMessage(ctx, "lobby", "alice", "hi")
	req.ErrorIs(err, errors.ErrPersistence)

	_, err = gateway.CreateRoom(ctx, "lobby")
	req.ErrorIs(err, errors.ErrPersistence)

	// Then nothing was recorded
	names, err := gateway.ListRoomNames(context.Background())
	req.NoError(err)
	req.Empty(names)
	messages, err := gateway.ListMessages(context.Background(), "lobby")
	req.NoError(err)
	req.Empty(messages)
}
