package services

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"log/slog"
	"time"
)

const nicknamePrompt = "Please set your nickname to join the chat."

type IChatService interface {
	Open(conn contract.Connection) *Session
}

// ChatService wires the shared state every Session works against.
type ChatService struct {
	log         *slog.Logger
	registry    contract.IRegistry
	directory   contract.IDirectory
	broadcaster contract.IBroadcaster
	gateway     contract.PersistenceGateway
	censor      contract.Censor
}

var _ IChatService = (*ChatService)(nil)

// NewChatService builds the service. censor may be nil to disable moderation.
func NewChatService(
	log *slog.Logger,
	registry contract.IRegistry,
	directory contract.IDirectory,
	broadcaster contract.IBroadcaster,
	gateway contract.PersistenceGateway,
	censor contract.Censor,
) *ChatService {
	return &ChatService{
		log:         log,
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		gateway:     gateway,
		censor:      censor,
	}
}

// Open registers a freshly accepted connection and prompts it for a nickname.
func (s *ChatService) Open(conn contract.Connection) *Session {
	s.registry.Register(conn)
	session := &Session{
		service:  s,
		conn:     conn,
		log:      s.log.With("connection", conn.ID()),
		openedAt: time.Now().UTC(),
	}
	session.send(event.NicknamePrompt(nicknamePrompt))
	session.log.Debug("Connection opened")
	return session
}
