package domain

import (
	"chat-relay/errors"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CommandType string

const (
	SetNicknameType CommandType = "setNickname"
	CreateRoomType  CommandType = "createRoom"
	JoinRoomType    CommandType = "joinRoom"
	GetRoomsType    CommandType = "getRooms"
	PostMessageType CommandType = "chatMessage"
)

// Command is the closed set of inbound envelopes.
// Only the variants declared in this file implement it.
type Command interface {
	Type() CommandType
	isCommand()
}

type SetNickname struct {
	Nickname string `validate:"required,max=32"`
}

type CreateRoom struct {
	RoomName string `validate:"required,max=64"`
}

type JoinRoom struct {
	RoomName string `validate:"required,max=64"`
}

type GetRooms struct{}

type PostMessage struct {
	Text string `validate:"required,max=2000"`
}

func (SetNickname) Type() CommandType { return SetNicknameType }
func (CreateRoom) Type() CommandType  { return CreateRoomType }
func (JoinRoom) Type() CommandType    { return JoinRoomType }
func (GetRooms) Type() CommandType    { return GetRoomsType }
func (PostMessage) Type() CommandType { return PostMessageType }

func (SetNickname) isCommand() {}
func (CreateRoom) isCommand()  {}
func (JoinRoom) isCommand()    {}
func (GetRooms) isCommand()    {}
func (PostMessage) isCommand() {}

// rawCommand is the wire shape of every inbound envelope.
// "text" is an older alias of "message" still sent by some clients.
type rawCommand struct {
	Type     CommandType `json:"type"`
	Nickname string      `json:"nickname"`
	RoomName string      `json:"roomName"`
	Message  string      `json:"message"`
	Text     string      `json:"text"`
}

// DecodeCommand parses one inbound frame into its Command variant.
// Unparseable frames or unknown types return ErrMalformedEnvelope,
// frames failing field validation return ErrInvalidEnvelope.
func DecodeCommand(data []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}

	var cmd Command
	switch raw.Type {
	case SetNicknameType:
		cmd = SetNickname{Nickname: strings.TrimSpace(raw.Nickname)}
	case CreateRoomType:
		cmd = CreateRoom{RoomName: strings.TrimSpace(raw.RoomName)}
	case JoinRoomType:
		cmd = JoinRoom{RoomName: strings.TrimSpace(raw.RoomName)}
	case GetRoomsType:
		return GetRooms{}, nil
	case PostMessageType:
		text := raw.Message
		if text == "" {
			text = raw.Text
		}
		cmd = PostMessage{Text: text}
	case "":
		return nil, fmt.Errorf("%w: missing type", errors.ErrMalformedEnvelope)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformedEnvelope, raw.Type)
	}

	if err := validate.Struct(cmd); err != nil {
		return nil, &InvalidEnvelopeError{Reason: describe(err)}
	}
	if name, ok := identifierOf(cmd); ok && !isPrintable(name) {
		return nil, &InvalidEnvelopeError{Reason: "names cannot contain control characters"}
	}
	return cmd, nil
}

// InvalidEnvelopeError is a well-formed envelope whose fields are not acceptable.
type InvalidEnvelopeError struct {
	Reason string
}

func (e *InvalidEnvelopeError) Error() string {
	return fmt.Sprintf("%s: %s", errors.ErrInvalidEnvelope, e.Reason)
}

func (e *InvalidEnvelopeError) Unwrap() error {
	return errors.ErrInvalidEnvelope
}

var wireNames = map[string]string{
	"Nickname": "nickname",
	"RoomName": "roomName",
	"Text":     "message",
}

// describe turns the first validation failure into a sentence fit for a client.
func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !stdErrors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err.Error()
	}
	fieldErr := validationErrors[0]
	name := wireNames[fieldErr.Field()]
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

func identifierOf(cmd Command) (string, bool) {
	switch c := cmd.(type) {
	case SetNickname:
		return c.Nickname, true
	case CreateRoom:
		return c.RoomName, true
	case JoinRoom:
		return c.RoomName, true
	default:
		return "", false
	}
}

// isPrintable rejects names that would break a single line of output.
func isPrintable(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return false
		}
	}
	return true
}
