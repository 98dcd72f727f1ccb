package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Publisher is the subset of PahoClient the bridge needs, narrowed so tests
// can substitute a fake broker.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Bridge subscribes to telemetry.received and republishes each record
// verbatim to the robotics-middleware topic space, one message per robot per
// incremented sim-second.
type Bridge struct {
	pub Publisher
	bus *eventbus.Bus
	log logger.Logger
}

// NewBridge builds a Bridge publishing through pub.
func NewBridge(pub Publisher, bus *eventbus.Bus, log logger.Logger) *Bridge {
	return &Bridge{pub: pub, bus: bus, log: log}
}

// Run subscribes to telemetry.received and republishes until ctx is
// canceled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.Subscribe(events.TelemetryReceived)
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

func (b *Bridge) handle(env events.Envelope) {
	p, ok := env.Payload.(events.TelemetryReceivedPayload)
	if !ok {
		b.log.Warnf("mqtt bridge: dropping malformed telemetry.received payload")
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		b.log.Errorf("mqtt bridge: marshal telemetry run_id=%s robot_id=%d err=%v", p.RunID, p.RobotID, err)
		return
	}
	topic := fmt.Sprintf("amr/%s/robot/%d/telemetry", p.RunID, p.RobotID)
	if err := b.pub.Publish(topic, payload); err != nil {
		b.log.Errorf("mqtt bridge: publish failed topic=%s err=%v", topic, err)
	}
}
