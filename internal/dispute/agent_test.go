package dispute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/saga"
	"github.com/nexfreight/broker/internal/store"
)

type stubLedger struct{}

func (stubLedger) TransferEscrow(ctx context.Context, shipmentID, from, to string, amountCents int64) (string, error) {
	return "", nil
}
func (stubLedger) CounterTransfer(ctx context.Context, originalTxID string) (string, error) {
	return "", nil
}
func (stubLedger) Release(ctx context.Context, shipmentID string) (string, error) { return "tx-release", nil }
func (stubLedger) Refund(ctx context.Context, shipmentID string, amountCents int64) (string, error) {
	return "tx-refund", nil
}

type stubEvidence struct {
	evidence Evidence
	vision   float64
}

func (s stubEvidence) Gather(ctx context.Context, shipmentID string) (Evidence, error) {
	return s.evidence, nil
}

func (s stubEvidence) VisionDamageScore(ctx context.Context, shipmentID string) (float64, error) {
	return s.vision, nil
}

func setupAgent(t *testing.T, evidence Evidence, vision float64) (*Agent, *store.Store, *eventbus.Bus) {
	t.Helper()
	st := store.NewMemoryStore()
	bus := eventbus.New()
	coordinator := saga.New(nil, nil)
	agent := New(DefaultConfig(), st, stubEvidence{evidence: evidence, vision: vision}, stubLedger{}, coordinator, bus, nil, nil)
	return agent, st, bus
}

func cleanDeliveryEvidence() Evidence {
	return Evidence{
		DeliveryDocumentJSON: `{"signature":{"match_confidence":1.0}}`,
		TrackingPointsJSON:   `[{"lat":45.0,"lng":9.0,"ts":1000}]`,
		PlannedLat:           45.0,
		PlannedLng:           9.0,
		PlannedTimeUnix:      1000,
		HasPhotos:            true,
	}
}

func TestHandleAutoResolvesCarrierWinsOnHighConfidenceCleanDelivery(t *testing.T) {
	// sig=1.0, delivery=1.0, damage=0.25 => confidence = (0.4 + 0.4 + 0.2*0.75)*100 = 95.
	agent, st, bus := setupAgent(t, cleanDeliveryEvidence(), 0.25)
	ctx := context.Background()

	require.NoError(t, st.Shipments.Save(ctx, domain.Shipment{ID: "ship-1"}))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-1", Amount: 200}))

	resolved := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("dispute.resolved", func(ctx context.Context, evt eventbus.Event) { resolved <- evt })
	defer unsub()

	require.NoError(t, agent.Handle(ctx, "ship-1"))

	res, ok, err := st.Disputes.ResolutionFor(ctx, "ship-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, res.CarrierWins)
	require.Equal(t, 0.0, res.RefundAmount)

	select {
	case <-resolved:
	case <-time.After(time.Second):
		t.Fatal("expected dispute.resolved")
	}
}

func TestHandleEscalatesAboveAutoResolveLimitEvenWithHighConfidence(t *testing.T) {
	agent, st, bus := setupAgent(t, cleanDeliveryEvidence(), 0)
	ctx := context.Background()

	require.NoError(t, st.Shipments.Save(ctx, domain.Shipment{ID: "ship-2"}))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-2", Amount: 50000}))

	escalated := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("dispute.escalated", func(ctx context.Context, evt eventbus.Event) { escalated <- evt })
	defer unsub()

	require.NoError(t, agent.Handle(ctx, "ship-2"))

	_, ok, _ := st.Disputes.ResolutionFor(ctx, "ship-2")
	require.False(t, ok, "amount above the auto-resolve limit must not write a resolution")

	select {
	case <-escalated:
	case <-time.After(time.Second):
		t.Fatal("expected dispute.escalated")
	}
}

func TestHandleNeedsMoreEvidenceOnLowConfidence(t *testing.T) {
	evidence := Evidence{} // no document, no tracking points => all scorers zero
	agent, st, bus := setupAgent(t, evidence, 0)
	ctx := context.Background()

	require.NoError(t, st.Shipments.Save(ctx, domain.Shipment{ID: "ship-3"}))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-3", Amount: 100}))

	needMore := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("dispute.need_more_evidence", func(ctx context.Context, evt eventbus.Event) { needMore <- evt })
	defer unsub()

	require.NoError(t, agent.Handle(ctx, "ship-3"))

	select {
	case <-needMore:
	case <-time.After(time.Second):
		t.Fatal("expected dispute.need_more_evidence")
	}
}

func TestAutoResolveRefundsShipperWhenDamagePresent(t *testing.T) {
	// sig=1.0, delivery=1.0, damage=0.5 => confidence = (0.4 + 0.4 + 0.2*0.5)*100 = 90,
	// still above the auto-resolve threshold, but damage >= 0.3 so the carrier loses.
	evidence := cleanDeliveryEvidence()
	evidence.HasPhotos = true
	agent, st, _ := setupAgent(t, evidence, 0.5)

	ctx := context.Background()
	require.NoError(t, st.Shipments.Save(ctx, domain.Shipment{ID: "ship-4"}))
	require.NoError(t, st.Escrows.Save(ctx, domain.EscrowRecord{ShipmentID: "ship-4", Amount: 300}))

	require.NoError(t, agent.Handle(ctx, "ship-4"))

	res, ok, err := st.Disputes.ResolutionFor(ctx, "ship-4")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, res.CarrierWins)
	require.Equal(t, 300.0, res.RefundAmount)
}

func TestAnalyzeWeightsDamageAsAPenaltyNotABonus(t *testing.T) {
	// sig=0.92, delivery=0.85 (geo exact match, time 70% consistent),
	// damage=0.10 => confidence = (0.4*0.92 + 0.4*0.85 + 0.2*(1-0.10))*100 = 88.8.
	// Heavier visible damage must lower confidence, never raise it.
	evidence := Evidence{
		DeliveryDocumentJSON: `{"signature":{"match_confidence":0.92}}`,
		TrackingPointsJSON:   `[{"lat":45.0,"lng":9.0,"ts":66960}]`,
		PlannedLat:           45.0,
		PlannedLng:           9.0,
		PlannedTimeUnix:      0,
		HasPhotos:            true,
	}

	agent := &Agent{cfg: DefaultConfig()}
	analysis := agent.analyze(evidence, 0.10)

	require.InDelta(t, 88.8, analysis.Confidence, 0.1)

	higherDamage := agent.analyze(evidence, 0.60)
	require.Less(t, higherDamage.Confidence, analysis.Confidence, "more visible damage must reduce confidence")
}

func TestHandleFraudSuspectBlacklistsCarrierAndPublishesReview(t *testing.T) {
	agent, st, bus := setupAgent(t, cleanDeliveryEvidence(), 0)
	ctx := context.Background()

	require.NoError(t, st.Carriers.Save(ctx, domain.Carrier{ID: "carrier-1", Enabled: true}))

	opened := make(chan eventbus.Event, 1)
	unsub := bus.Subscribe("dispute.fraud_review_opened", func(ctx context.Context, evt eventbus.Event) { opened <- evt })
	defer unsub()

	require.NoError(t, agent.HandleFraudSuspect(ctx, eventbus.FraudSuspectEvent{CarrierID: "carrier-1", IncidentsIn24h: 3}))

	carrier, err := st.Carriers.Get(ctx, "carrier-1")
	require.NoError(t, err)
	require.NotNil(t, carrier.BlacklistedUntil)
	require.False(t, carrier.IsAvailable(carrier.BlacklistedUntil.Add(-time.Minute)))

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("expected dispute.fraud_review_opened")
	}
}
