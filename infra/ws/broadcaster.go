package ws

import (
	"context"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Broadcaster subscribes to snapshot.tick and run.completed and forwards
// each envelope's payload to a Hub, matching the dashboard's two message
// kinds.
type Broadcaster struct {
	hub *Hub
	bus *eventbus.Bus
	log logger.Logger
}

// NewBroadcaster builds a Broadcaster pushing through hub.
func NewBroadcaster(hub *Hub, bus *eventbus.Bus, log logger.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, bus: bus, log: log}
}

// Run subscribes and forwards until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) {
	sub := b.bus.Subscribe(events.SnapshotTick, events.RunCompleted)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			b.handle(env)
		}
	}
}

func (b *Broadcaster) handle(env events.Envelope) {
	switch env.RoutingKey {
	case events.SnapshotTick, events.RunCompleted:
		b.hub.Broadcast(broadcastEnvelope{Type: env.RoutingKey, RunID: env.RunID, Payload: env.Payload})
	}
}

// broadcastEnvelope is the JSON shape delivered to dashboard clients.
type broadcastEnvelope struct {
	Type    string `json:"type"`
	RunID   string `json:"run_id"`
	Payload any    `json:"payload"`
}
