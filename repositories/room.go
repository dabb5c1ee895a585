package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const roomPrefix = "room:"

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

// StoreRoom records a new room under "room:{name}".
// An existing key, or a concurrent writer committing the same key first,
// returns errors.ErrRoomExists. Nothing is committed once ctx is done.
func (r RoomRepository) StoreRoom(ctx context.Context, room domain.Room) error {
	key := []byte(roomPrefix + room.Name)
	txn := r.db.NewTransaction(true)
	defer txn.Discard()

	_, err := txn.Get(key)
	switch {
	case err == nil:
		return errors.ErrRoomExists
	case !stdErrors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	if err = txn.Set(key, encodeRoom(room)); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = txn.Commit(); err != nil {
		if stdErrors.Is(err, badger.ErrConflict) {
			return errors.ErrRoomExists
		}
		return err
	}
	return nil
}

// GetRoomNames lists every room name in lexicographic order.
// Only keys are read, values are never fetched.
func (r RoomRepository) GetRoomNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(roomPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), roomPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GetRooms decodes every stored room record.
func (r RoomRepository) GetRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(roomPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(value []byte) error {
				room, err := decodeRoom(value)
				if err != nil {
					return err
				}
				rooms = append(rooms, room)
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
	return rooms, nil
}
