package repositories

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"
)

// Gateway is the badger-backed contract.PersistenceGateway.
// Every call is bounded by timeout. Failures other than errors.ErrRoomExists
// are reported as errors.ErrPersistence.
type Gateway struct {
	log      *slog.Logger
	rooms    RoomRepository
	messages MessageRepository
	timeout  time.Duration
	now      func() time.Time
}

var _ contract.PersistenceGateway = (*Gateway)(nil)

func NewGateway(log *slog.Logger, rooms RoomRepository, messages MessageRepository, timeout time.Duration) *Gateway {
	return &Gateway{
		log:      log,
		rooms:    rooms,
		messages: messages,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (g *Gateway) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	room := domain.NewRoom(name, g.now())
	if err := g.rooms.StoreRoom(ctx, room); err != nil {
		if stdErrors.Is(err, errors.ErrRoomExists) {
			return domain.Room{}, err
		}
		return domain.Room{}, g.failure("create room", err, "room", name)
	}
	return room, nil
}

func (g *Gateway) ListRoomNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	names, err := g.rooms.GetRoomNames(ctx)
	if err != nil {
		return nil, g.failure("list rooms", err)
	}
	return names, nil
}

func (g *Gateway) ListMessages(ctx context.Context, roomName string) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages, err := g.messages.GetMessages(ctx, roomName)
	if err != nil {
		return nil, g.failure("list messages", err, "room", roomName)
	}
	return messages, nil
}

func (g *Gateway) SaveMessage(ctx context.Context, roomName, nickname, text string) (domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	message := domain.NewMessage(roomName, nickname, text, g.now())
	if err := g.messages.StoreMessage(ctx, message); err != nil {
		return domain.Message{}, g.failure("save message", err, "room", roomName, "nickname", nickname)
	}
	return message, nil
}

func (g *Gateway) failure(operation string, err error, args ...any) error {
	g.log.Error("Persistence failure", append([]any{"operation", operation, "error", err}, args...)...)
	return fmt.Errorf("%w: %s: %v", errors.ErrPersistence, operation, err)
}
