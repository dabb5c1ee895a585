package domain

import (
	"chat-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		expected Command
		err      error
	}{
		{"Set nickname", `{"type":"setNickname","nickname":" alice "}`, SetNickname{Nickname: "alice"}, nil},
		{"Create room", `{"type":"createRoom","roomName":"lobby"}`, CreateRoom{RoomName: "lobby"}, nil},
		{"Join room", `{"type":"joinRoom","roomName":"lobby"}`, JoinRoom{RoomName: "lobby"}, nil},
		{"Get rooms", `{"type":"getRooms"}`, GetRooms{}, nil},
		{"Chat message", `{"type":"chatMessage","message":"  hi  "}`, PostMessage{Text: "  hi  "}, nil},
		{"Chat message legacy text", `{"type":"chatMessage","text":"hi"}`, PostMessage{Text: "hi"}, nil},
		{"Not JSON", `{"type":`, nil, errors.ErrMalformedEnvelope},
		{"Unknown type", `{"type":"shout"}`, nil, errors.ErrMalformedEnvelope},
		{"Missing type", `{}`, nil, errors.ErrMalformedEnvelope},
		{"Missing room", `{"type":"joinRoom"}`, nil, errors.ErrInvalidEnvelope},
		{"Nickname too long", `{"type":"setNickname","nickname":"` + strings.Repeat("a", 33) + `"}`, nil, errors.ErrInvalidEnvelope},
		{"Control character", `{"type":"createRoom","roomName":"lob\nby"}`, nil, errors.ErrInvalidEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			cmd, err := DecodeCommand([]byte(tt.frame))
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				req.Nil(cmd)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, cmd)
		})
	}
}

func TestDecodeCommand_Invalid_Reason(t *testing.T) {
	req := require.New(t)

	_, err := DecodeCommand([]byte(`{"type":"createRoom","roomName":"` + strings.Repeat("r", 65) + `"}`))

	var invalid *InvalidEnvelopeError
	req.ErrorAs(err, &invalid)
	req.Equal("roomName must be at most 64 characters", invalid.Reason)
}

func TestDecodeCommand_Multibyte_Nickname_Length(t *testing.T) {
	req := require.New(t)
	// 32 runes, 64 bytes
	nickname := strings.Repeat("é", 32)

	cmd, err := DecodeCommand([]byte(`{"type":"setNickname","nickname":"` + nickname + `"}`))
	req.NoError(err)
	req.Equal(SetNickname{Nickname: nickname}, cmd)
}
