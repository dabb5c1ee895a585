package repositories

import (
	"chat-relay/domain"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// messagePrefix hex-encodes the room name so that a room called "a" never
// shares a prefix with a room called "a:b".
func messagePrefix(roomName string) string {
	return fmt.Sprintf("msg:%s:", hex.EncodeToString([]byte(roomName)))
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{hex(room)}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the UUID as a tie-breaker when two messages
//     arrive at the same nanosecond.
//
// Nothing is committed once ctx is done.
func (m MessageRepository) StoreMessage(ctx context.Context, message domain.Message) error {
	key := fmt.Sprintf("%s%019d:%s",
		messagePrefix(message.RoomName),
		message.Timestamp.UnixNano(),
		message.ID,
	)
	txn := m.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set([]byte(key), encodeMessage(message)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return txn.Commit()
}

// GetMessages retrieves the history of a room, oldest first.
// The scan walks backwards from the newest key so that, when limitMessages is
// set, only the most recent messages are kept.
func (m MessageRepository) GetMessages(ctx context.Context, roomName string) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix(roomName))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Every timestamp digit sorts below 0xff
		seekKey := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}
