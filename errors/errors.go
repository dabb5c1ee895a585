package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrNicknameTaken     = fmt.Errorf("nickname already taken")
	ErrNicknameRequired  = fmt.Errorf("nickname must be set first")
	ErrRoomExists        = fmt.Errorf("room already exists")
	ErrRoomNotFound      = fmt.Errorf("room not found")
	ErrNotInRoom         = fmt.Errorf("connection is not in a room")
	ErrDirectoryNotReady = fmt.Errorf("room directory not initialized")

	ErrPersistence       = fmt.Errorf("persistence failure")
	ErrMalformedEnvelope = fmt.Errorf("malformed envelope")
	ErrInvalidEnvelope   = fmt.Errorf("invalid envelope")

	ErrConnectionNotFound = fmt.Errorf("connection not found")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrSendBufferFull     = fmt.Errorf("send buffer full")
)
