package workers

import (
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDirectorySeeder_Retried_Until_Seeded(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockPersistenceGateway(ctrl)
	directory := runtime.NewDirectory(slog.Default(), gateway)

	// Given a store failing twice before answering
	gomock.InOrder(
		gateway.EXPECT().ListRoomNames(gomock.Any()).Return(nil, errors.ErrPersistence),
		gateway.EXPECT().ListRoomNames(gomock.Any()).Return(nil, errors.ErrPersistence),
		gateway.EXPECT().ListRoomNames(gomock.Any()).Return([]string{"lobby"}, nil),
	)

	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		sup.Add(NewDirectorySeeder(slog.Default(), directory)).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Seeder should have succeeded on the third attempt")
	}
	req.True(directory.Ready())
	req.True(directory.Exists("lobby"))
}
