package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
)

type State int

const (
	Connected State = iota
	Identified
	InRoom
	Disconnected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Identified:
		return "identified"
	case InRoom:
		return "in_room"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session drives the protocol of one connection.
// Handle and Close are serialized: Close waits for an in-flight Handle, and
// nothing is handled once the session is closed.
type Session struct {
	mu       sync.Mutex
	service  *ChatService
	conn     contract.Connection
	log      *slog.Logger
	openedAt time.Time
	closed   bool
}

// State is derived from the registry and the directory, never stored.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Disconnected
	}
	if _, ok := s.service.directory.RoomOf(s.conn.ID()); ok {
		return InRoom
	}
	if _, ok := s.service.registry.NicknameOf(s.conn.ID()); ok {
		return Identified
	}
	return Connected
}

// Handle decodes one inbound frame and runs the matching transition.
// Every failure is answered with an envelope, none of them ends the session.
func (s *Session) Handle(ctx context.Context, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	cmd, err := domain.DecodeCommand(frame)
	if err != nil {
		s.log.Debug("Rejected inbound frame", "error", err)
		var invalid *domain.InvalidEnvelopeError
		if stdErrors.As(err, &invalid) {
			s.send(event.Error(fmt.Sprintf("Invalid message: %s.", invalid.Reason)))
			return
		}
		s.send(event.Error("Invalid message format."))
		return
	}

	switch c := cmd.(type) {
	case domain.SetNickname:
		s.setNickname(c)
	case domain.CreateRoom:
		s.createRoom(ctx, c)
	case domain.JoinRoom:
		s.joinRoom(ctx, c)
	case domain.GetRooms:
		s.getRooms(ctx)
	case domain.PostMessage:
		s.postMessage(ctx, c)
	default:
		s.log.Error("Unhandled command", "type", cmd.Type())
		s.send(event.Error("Invalid message format."))
	}
}

// Close releases the nickname and the membership, then tells the room the
// user left. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	nickname, identified := s.service.registry.Release(s.conn.ID())
	roomName, inRoom := s.service.directory.Leave(s.conn.ID())
	if identified && inRoom {
		s.service.broadcaster.ToRoom(roomName, event.SystemMessage(fmt.Sprintf("%s has left the chat.", nickname)))
	}
	s.log.Debug("Connection closed", "nickname", nickname, "room", roomName, "duration", time.Since(s.openedAt))
}

func (s *Session) setNickname(c domain.SetNickname) {
	previous, _ := s.service.registry.NicknameOf(s.conn.ID())
	err := s.service.registry.Claim(s.conn.ID(), c.Nickname)
	switch {
	case stdErrors.Is(err, errors.ErrNicknameTaken):
		s.send(event.Error("Nickname is already taken. Please choose a different one."))
		return
	case err != nil:
		s.log.Error("Failed to claim nickname", "nickname", c.Nickname, "error", err)
		s.send(event.Error("Failed to set nickname."))
		return
	}
	if previous != "" && previous != c.Nickname {
		s.log.Info("Nickname changed", "from", previous, "to", c.Nickname)
	}
	s.send(event.SystemMessage(fmt.Sprintf("You have set your nickname as %s.", c.Nickname)))
}

func (s *Session) createRoom(ctx context.Context, c domain.CreateRoom) {
	nickname, err := s.nickname()
	if err != nil {
		s.refuse(err)
		return
	}

	room, err := s.service.directory.CreateRoom(ctx, c.RoomName)
	switch {
	case stdErrors.Is(err, errors.ErrRoomExists):
		s.send(event.SystemMessage(fmt.Sprintf("Room \"%s\" already exists.", c.RoomName)))
		return
	case stdErrors.Is(err, errors.ErrDirectoryNotReady):
		s.refuse(err)
		return
	case err != nil:
		s.log.Error("Failed to create room", "room", c.RoomName, "error", err)
		s.send(event.Error("Failed to create room."))
		return
	}
	s.log.Info("Room created", "room", room.Name, "nickname", nickname)
	s.send(event.SystemMessage(fmt.Sprintf("New room \"%s\" created.", room.Name)))

	// The creator moves into its new room
	previous, err := s.service.directory.JoinRoom(s.conn, room.Name)
	if err != nil {
		s.log.Error("Failed to join created room", "room", room.Name, "error", err)
	} else {
		s.announceLeave(previous, room.Name, nickname)
	}

	s.service.broadcaster.ToAll(event.SystemMessage(fmt.Sprintf("%s has created the room \"%s\".", nickname, room.Name)))
	s.service.broadcaster.ToAll(event.NewRoomListing(s.service.directory.Rooms()))
}

func (s *Session) joinRoom(ctx context.Context, c domain.JoinRoom) {
	nickname, err := s.nickname()
	if err != nil {
		s.refuse(err)
		return
	}
	if !s.service.directory.Exists(c.RoomName) {
		s.send(event.SystemMessage(fmt.Sprintf("Room \"%s\" does not exist.", c.RoomName)))
		return
	}

	// Membership first: a message saved while the history loads is then
	// delivered live, possibly also present in the history under the same ID.
	previous, err := s.service.directory.JoinRoom(s.conn, c.RoomName)
	switch {
	case stdErrors.Is(err, errors.ErrRoomNotFound):
		s.send(event.SystemMessage(fmt.Sprintf("Room \"%s\" does not exist.", c.RoomName)))
		return
	case err != nil:
		s.log.Warn("Failed to join room", "room", c.RoomName, "error", err)
		s.refuse(err)
		return
	}

	history, err := s.service.gateway.ListMessages(ctx, c.RoomName)
	if err != nil {
		s.log.Error("Failed to load history", "room", c.RoomName, "error", err)
		s.restoreMembership(previous)
		s.send(event.Error("Failed to load room history."))
		return
	}

	s.send(event.SystemMessage(fmt.Sprintf("You have joined room \"%s\".", c.RoomName)))
	s.send(event.NewHistory(history))
	s.announceLeave(previous, c.RoomName, nickname)
	s.service.broadcaster.ToRoom(c.RoomName, event.SystemMessage(fmt.Sprintf("%s has joined the room \"%s\".", nickname, c.RoomName)))
}

// restoreMembership puts the connection back where it was before a failed join.
func (s *Session) restoreMembership(previous string) {
	if previous == "" {
		s.service.directory.Leave(s.conn.ID())
		return
	}
	if _, err := s.service.directory.JoinRoom(s.conn, previous); err != nil {
		s.log.Warn("Failed to restore membership", "room", previous, "error", err)
		s.service.directory.Leave(s.conn.ID())
	}
}

func (s *Session) getRooms(ctx context.Context) {
	names, err := s.service.gateway.ListRoomNames(ctx)
	if err != nil {
		s.log.Error("Failed to list rooms", "error", err)
		s.send(event.Error("Failed to retrieve rooms."))
		return
	}
	s.send(event.NewRoomListing(names))
}

func (s *Session) postMessage(ctx context.Context, c domain.PostMessage) {
	roomName, err := s.room()
	if err != nil {
		s.refuse(err)
		return
	}
	nickname, err := s.nickname()
	if err != nil {
		s.refuse(err)
		return
	}

	text := c.Text
	if s.service.censor != nil {
		censored, words := s.service.censor.Censor(text)
		if len(words) > 0 {
			s.log.Warn("Message censored",
				"room", roomName,
				"nickname", nickname,
				"words", len(words),
				"lang", whatlanggo.Detect(text).Lang.Iso6391())
		}
		text = censored
	}

	message, err := s.service.gateway.SaveMessage(ctx, roomName, nickname, text)
	if err != nil {
		s.log.Error("Failed to save message", "room", roomName, "error", err)
		s.send(event.Error("Failed to save message."))
		return
	}
	s.service.broadcaster.ToRoom(roomName, event.NewChat(message))
}

func (s *Session) nickname() (string, error) {
	nickname, ok := s.service.registry.NicknameOf(s.conn.ID())
	if !ok {
		return "", errors.ErrNicknameRequired
	}
	return nickname, nil
}

func (s *Session) room() (string, error) {
	roomName, ok := s.service.directory.RoomOf(s.conn.ID())
	if !ok {
		return "", errors.ErrNotInRoom
	}
	return roomName, nil
}

// refuse answers a guard failure. The state of the session is left untouched.
func (s *Session) refuse(err error) {
	s.send(guardReply(err))
}

func guardReply(err error) event.Envelope {
	switch {
	case stdErrors.Is(err, errors.ErrNicknameRequired):
		return event.Error("Please set your nickname first.")
	case stdErrors.Is(err, errors.ErrNotInRoom):
		return event.Error("You are not connected to a room.")
	case stdErrors.Is(err, errors.ErrDirectoryNotReady):
		return event.Error("Rooms are not available yet. Please retry.")
	default:
		return event.Error("Request failed.")
	}
}

func (s *Session) announceLeave(previous, current, nickname string) {
	if previous == "" || previous == current {
		return
	}
	s.service.broadcaster.ToRoom(previous, event.SystemMessage(fmt.Sprintf("%s has left the room \"%s\".", nickname, previous)))
}

func (s *Session) send(envelope event.Envelope) {
	if err := s.conn.Send(envelope); err != nil {
		s.log.Debug("Failed to reply", "type", envelope.Kind(), "error", err)
	}
}
