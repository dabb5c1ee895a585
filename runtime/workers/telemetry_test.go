package workers

import (
	"chat-relay/mocks"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type rooms struct{ count, members int }

func (r rooms) RoomCount() int   { return r.count }
func (r rooms) MemberCount() int { return r.members }

func TestTelemetryWorker_Sample(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Count().Return(3)

	worker := NewTelemetryWorker(logs.GetLoggerFromLevel(slog.LevelDebug), registry, rooms{count: 2, members: 1}, time.Minute)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	sample := worker.Sample(p)

	req.Equal(3, sample.Connections)
	req.Equal(2, sample.Rooms)
	req.Equal(1, sample.Members)
	req.NotZero(sample.RSS)
}

func TestTelemetryWorker_Run_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	registry.EXPECT().Count().Return(0).AnyTimes()

	worker := NewTelemetryWorker(slog.Default(), registry, rooms{}, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req.NoError(worker.Run(ctx))
}
