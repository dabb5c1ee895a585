// Package event holds the outbound envelopes sent to connections.
package event

import (
	"chat-relay/domain"

	"github.com/samber/lo"
)

type Type string

const (
	NicknamePromptType Type = "setNicknamePrompt"
	SystemMessageType  Type = "systemMessage"
	ErrorType          Type = "error"
	RoomListType       Type = "roomList"
	ChatHistoryType    Type = "chatHistory"
	ChatMessageType    Type = "chatMessage"
)

// Envelope is any outbound payload. It is encoded as a JSON object whose
// "type" field equals Kind().
type Envelope interface {
	Kind() Type
}

// Notice carries a single human readable line: prompts, system messages and errors.
type Notice struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type RoomListing struct {
	Type  Type     `json:"type"`
	Rooms []string `json:"rooms"`
}

type History struct {
	Type     Type             `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type Chat struct {
	Type     Type           `json:"type"`
	RoomName string         `json:"roomName"`
	Message  domain.Message `json:"message"`
}

func (n Notice) Kind() Type      { return n.Type }
func (r RoomListing) Kind() Type { return r.Type }
func (h History) Kind() Type     { return h.Type }
func (c Chat) Kind() Type        { return c.Type }

func NicknamePrompt(message string) Notice {
	return Notice{Type: NicknamePromptType, Message: message}
}

func SystemMessage(message string) Notice {
	return Notice{Type: SystemMessageType, Message: message}
}

func Error(message string) Notice {
	return Notice{Type: ErrorType, Message: message}
}

// NewRoomListing never encodes rooms as null.
func NewRoomListing(rooms []string) RoomListing {
	return RoomListing{Type: RoomListType, Rooms: lo.Ternary(rooms == nil, []string{}, rooms)}
}

// NewHistory never encodes messages as null.
func NewHistory(messages []domain.Message) History {
	return History{Type: ChatHistoryType, Messages: lo.Ternary(messages == nil, []domain.Message{}, messages)}
}

func NewChat(message domain.Message) Chat {
	return Chat{Type: ChatMessageType, RoomName: message.RoomName, Message: message}
}
