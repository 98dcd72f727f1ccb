package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/events"
	infralogger "github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func TestBroadcasterForwardsSnapshotTickToConnectedClients(t *testing.T) {
	hub := NewHub(infralogger.NopLogger{})
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, time.Millisecond)

	bus := eventbus.New()
	b := NewBroadcaster(hub, bus, infralogger.NopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	bus.Publish(events.Envelope{
		RoutingKey: events.SnapshotTick,
		RunID:      "r1",
		Payload:    events.SnapshotTickPayload{RunID: "r1", SimTimeS: 5},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "snapshot.tick")
	require.Contains(t, string(msg), "r1")
}
