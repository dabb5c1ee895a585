package repositories

import (
	"chat-relay/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the on-disk records. Never renumber, only append.
const (
	roomFieldName      protowire.Number = 1
	roomFieldCreatedAt protowire.Number = 2

	messageFieldID        protowire.Number = 1
	messageFieldRoom      protowire.Number = 2
	messageFieldNickname  protowire.Number = 3
	messageFieldText      protowire.Number = 4
	messageFieldTimestamp protowire.Number = 5
)

func encodeRoom(room domain.Room) []byte {
	var b []byte
	b = protowire.AppendTag(b, roomFieldName, protowire.BytesType)
	b = protowire.AppendString(b, room.Name)
	b = protowire.AppendTag(b, roomFieldCreatedAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(room.CreatedAt.UnixNano()))
	return b
}

func decodeRoom(b []byte) (domain.Room, error) {
	var room domain.Room
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == roomFieldName && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			room.Name = v
			return n, nil
		case num == roomFieldCreatedAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			room.CreatedAt = time.Unix(0, int64(v)).UTC()
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return room, err
}

func encodeMessage(message domain.Message) []byte {
	var b []byte
	b = protowire.AppendTag(b, messageFieldID, protowire.BytesType)
	b = protowire.AppendString(b, message.ID.String())
	b = protowire.AppendTag(b, messageFieldRoom, protowire.BytesType)
	b = protowire.AppendString(b, message.RoomName)
	b = protowire.AppendTag(b, messageFieldNickname, protowire.BytesType)
	b = protowire.AppendString(b, message.Nickname)
	b = protowire.AppendTag(b, messageFieldText, protowire.BytesType)
	b = protowire.AppendString(b, message.Text)
	b = protowire.AppendTag(b, messageFieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(message.Timestamp.UnixNano()))
	return b
}

func decodeMessage(b []byte) (domain.Message, error) {
	var message domain.Message
	var rawID string
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.BytesType {
			var v string
			var n int
			switch num {
			case messageFieldID:
				rawID, n = protowire.ConsumeString(b)
				return n, nil
			case messageFieldRoom:
				v, n = protowire.ConsumeString(b)
				message.RoomName = v
				return n, nil
			case messageFieldNickname:
				v, n = protowire.ConsumeString(b)
				message.Nickname = v
				return n, nil
			case messageFieldText:
				v, n = protowire.ConsumeString(b)
				message.Text = v
				return n, nil
			}
		}
		if num == messageFieldTimestamp && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			message.Timestamp = time.Unix(0, int64(v)).UTC()
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	parsedID, err := uuid.Parse(rawID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("invalid message id %q: %w", rawID, err)
	}
	message.ID = parsedID
	return message, nil
}

// walkFields iterates over every field of a wire-encoded record.
// consume returns the number of bytes it read from the field value.
func walkFields(b []byte, consume func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := consume(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}
