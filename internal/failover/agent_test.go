package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/saga"
	"github.com/nexfreight/broker/internal/store"
)

type stubLedger struct {
	transferErr error
}

func (l *stubLedger) TransferEscrow(ctx context.Context, shipmentID, fromCarrierID, toCarrierID string, amountCents int64) (string, error) {
	if l.transferErr != nil {
		return "", l.transferErr
	}
	return "tx-1", nil
}

func (l *stubLedger) CounterTransfer(ctx context.Context, originalTxID string) (string, error) {
	return "counter-" + originalTxID, nil
}

func (l *stubLedger) Release(ctx context.Context, shipmentID string) (string, error) { return "", nil }
func (l *stubLedger) Refund(ctx context.Context, shipmentID string, amountCents int64) (string, error) {
	return "", nil
}

func setup(t *testing.T, led *stubLedger) (*Agent, *store.Store, *eventbus.Bus) {
	t.Helper()
	st := store.NewMemoryStore()
	bus := eventbus.New()
	coordinator := saga.New(nil, nil)
	agent := New(DefaultConfig(), st, led, coordinator, bus, nil, nil)
	agent.now = func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }
	return agent, st, bus
}

func TestRunOnceFailsOverAtRiskShipmentToCompliantCarrier(t *testing.T) {
	agent, st, bus := setup(t, &stubLedger{})
	ctx := context.Background()

	bad := domain.Carrier{ID: "bad", Enabled: true, OnTimeRatePct: 80}
	good := domain.Carrier{ID: "good", Enabled: true, OnTimeRatePct: 97}
	require.NoError(t, st.Carriers.Save(ctx, bad))
	require.NoError(t, st.Carriers.Save(ctx, good))

	shipment := domain.Shipment{
		ID: "ship-1", CarrierID: "bad", Status: domain.ShipmentInTransit,
		PlannedDeliveryAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.Shipments.Save(ctx, shipment))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-1", Amount: 500, OriginalCarrierID: "bad", CurrentCarrierID: "bad"}))

	succeeded := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("carrier.failover_succeeded", func(ctx context.Context, evt eventbus.Event) { succeeded <- evt })
	defer unsub()

	require.NoError(t, agent.RunOnce(ctx))

	updated, err := st.Shipments.Get(ctx, "ship-1")
	require.NoError(t, err)
	require.Equal(t, "good", updated.CarrierID)
	require.True(t, updated.PlannedDeliveryAt.After(shipment.PlannedDeliveryAt))

	select {
	case evt := <-succeeded:
		payload := evt.Payload.(eventbus.FailoverSucceededEvent)
		require.Equal(t, "ship-1", payload.ShipmentID)
	case <-time.After(time.Second):
		t.Fatal("expected carrier.failover_succeeded")
	}
}

func TestFailoverRejectsAboveAutoLimitWithoutOverride(t *testing.T) {
	agent, st, bus := setup(t, &stubLedger{})
	ctx := context.Background()

	from := domain.Carrier{ID: "bad", Enabled: true}
	to := domain.Carrier{ID: "good", Enabled: true, OnTimeRatePct: 97}
	shipment := domain.Shipment{ID: "ship-2", CarrierID: "bad", PlannedDeliveryAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.Shipments.Save(ctx, shipment))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-2", Amount: 50000}))

	requiresOverride := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("failover.requires_override", func(ctx context.Context, evt eventbus.Event) { requiresOverride <- evt })
	defer unsub()

	err := agent.failover(ctx, shipment, from, to, "")
	require.ErrorIs(t, err, brokererr.ErrAuthorizationDenied)

	select {
	case evt := <-requiresOverride:
		payload := evt.Payload.(map[string]any)
		require.Equal(t, "ship-2", payload["shipment_id"])
	case <-time.After(time.Second):
		t.Fatal("expected failover.requires_override")
	}

	updated, getErr := st.Shipments.Get(ctx, "ship-2")
	require.NoError(t, getErr)
	require.Equal(t, "bad", updated.CarrierID, "denied failover must not reassign the carrier")
}

func TestOverrideBypassesAutoLimitWithToken(t *testing.T) {
	agent, st, _ := setup(t, &stubLedger{})
	ctx := context.Background()

	from := domain.Carrier{ID: "bad", Enabled: true}
	to := domain.Carrier{ID: "good", Enabled: true, OnTimeRatePct: 97}
	require.NoError(t, st.Carriers.Save(ctx, from))
	require.NoError(t, st.Carriers.Save(ctx, to))

	shipment := domain.Shipment{ID: "ship-5", CarrierID: "bad", PlannedDeliveryAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.Shipments.Save(ctx, shipment))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-5", Amount: 50000}))

	require.NoError(t, agent.Override(ctx, "ship-5", "good", "admin-override-token"))

	updated, err := st.Shipments.Get(ctx, "ship-5")
	require.NoError(t, err)
	require.Equal(t, "good", updated.CarrierID)
}

func TestFailoverCompensatesOnLedgerFailure(t *testing.T) {
	agent, st, bus := setup(t, &stubLedger{transferErr: errors.New("ledger unreachable")})
	ctx := context.Background()

	from := domain.Carrier{ID: "bad", Enabled: true}
	to := domain.Carrier{ID: "good", Enabled: true, OnTimeRatePct: 97}
	shipment := domain.Shipment{ID: "ship-3", CarrierID: "bad", PlannedDeliveryAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, st.Shipments.Save(ctx, shipment))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-3", Amount: 100}))

	failed := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("carrier.failover_failed", func(ctx context.Context, evt eventbus.Event) { failed <- evt })
	defer unsub()

	err := agent.failover(ctx, shipment, from, to, "")
	require.Error(t, err)

	updated, getErr := st.Shipments.Get(ctx, "ship-3")
	require.NoError(t, getErr)
	require.Equal(t, "bad", updated.CarrierID, "carrier reassignment should have been compensated")

	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("expected carrier.failover_failed")
	}
}

