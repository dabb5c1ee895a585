package workers

import (
	"chat-relay/contract"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

type roomCounter interface {
	RoomCount() int
	MemberCount() int
}

// Telemetry is one sample of the relay state.
type Telemetry struct {
	Connections int
	Rooms       int
	Members     int
	RSS         uint64
	CPUPercent  float64
}

// TelemetryWorker logs the relay state and the process footprint every metricInterval.
type TelemetryWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	rooms          roomCounter
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger,
	registry contract.IRegistry,
	rooms roomCounter,
	metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		registry:       registry,
		rooms:          rooms,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t := w.Sample(p)
			w.log.Info("Relay telemetry",
				"connections", t.Connections,
				"rooms", t.Rooms,
				"members", t.Members,
				"rss_bytes", t.RSS,
				"cpu_percent", t.CPUPercent,
			)
		}
	}
}

// Sample reads the counters, and the process stats when p is not nil.
// A failing process probe only leaves the process fields at zero.
func (w *TelemetryWorker) Sample(p *process.Process) Telemetry {
	t := Telemetry{
		Connections: w.registry.Count(),
		Rooms:       w.rooms.RoomCount(),
		Members:     w.rooms.MemberCount(),
	}
	if p == nil {
		return t
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		t.RSS = memInfo.RSS
	} else {
		w.log.Debug("Failed to collect memory stats", "error", err)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		t.CPUPercent = cpu
	} else {
		w.log.Debug("Failed to collect cpu stats", "error", err)
	}
	return t
}
