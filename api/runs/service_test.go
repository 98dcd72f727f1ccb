package runs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/infra/db"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateRunPublishesRunStartedAndAppliesDefaults(t *testing.T) {
	bus := eventbus.New()
	store := newTestStore(t)
	svc := NewService(bus, store, Defaults{Mode: "baseline", Scale: "demo", Seed: 7})

	sub := bus.Subscribe(events.RunStarted)
	defer sub.Close()

	resp, err := svc.CreateRun(context.Background(), CreateRunRequest{})
	require.NoError(t, err)
	require.Equal(t, "baseline", resp.Mode)
	require.Equal(t, "demo", resp.Scale)
	require.Equal(t, int64(7), resp.Seed)
	require.NotEmpty(t, resp.RunID)

	env := <-sub.C
	require.Equal(t, events.RunStarted, env.RoutingKey)
	payload, ok := env.Payload.(events.RunStartedPayload)
	require.True(t, ok)
	require.Equal(t, resp.RunID, payload.RunID)
}

func TestCreateRunRejectsUnknownMode(t *testing.T) {
	bus := eventbus.New()
	store := newTestStore(t)
	svc := NewService(bus, store, Defaults{Mode: "baseline", Scale: "demo", Seed: 1})

	_, err := svc.CreateRun(context.Background(), CreateRunRequest{Mode: "not-a-mode"})
	require.Error(t, err)
}

func TestCreateRunRejectsUnknownScale(t *testing.T) {
	bus := eventbus.New()
	store := newTestStore(t)
	svc := NewService(bus, store, Defaults{Mode: "baseline", Scale: "demo", Seed: 1})

	_, err := svc.CreateRun(context.Background(), CreateRunRequest{Scale: "huge"})
	require.Error(t, err)
}

func TestGetRunReturnsNilForUnknownID(t *testing.T) {
	bus := eventbus.New()
	store := newTestStore(t)
	svc := NewService(bus, store, Defaults{Mode: "baseline", Scale: "demo", Seed: 1})

	run, err := svc.GetRun(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestCompareRejectsUnknownScale(t *testing.T) {
	bus := eventbus.New()
	store := newTestStore(t)
	svc := NewService(bus, store, Defaults{Mode: "baseline", Scale: "demo", Seed: 1})

	_, err := svc.Compare(context.Background(), 1, "huge")
	require.Error(t, err)
}
