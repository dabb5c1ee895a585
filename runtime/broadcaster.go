package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"log/slog"
)

// Broadcaster delivers envelopes fire-and-forget over a snapshot of the
// targeted connections. A failing connection is skipped, never retried.
type Broadcaster struct {
	log       *slog.Logger
	registry  contract.IRegistry
	directory contract.IDirectory
}

var _ contract.IBroadcaster = (*Broadcaster)(nil)

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry, directory contract.IDirectory) *Broadcaster {
	return &Broadcaster{log: log, registry: registry, directory: directory}
}

func (b *Broadcaster) ToAll(envelope event.Envelope) int {
	return b.deliver(b.registry.Connections(), envelope)
}

func (b *Broadcaster) ToRoom(roomName string, envelope event.Envelope) int {
	return b.deliver(b.directory.MembersOf(roomName), envelope)
}

func (b *Broadcaster) deliver(targets []contract.Connection, envelope event.Envelope) int {
	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(envelope); err != nil {
			b.log.Debug("Skipping connection", "connection", conn.ID(), "type", envelope.Kind(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
