package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/domain"
)

func TestMemoryShipmentsLockForSagaIsExclusive(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Shipments.Save(context.Background(), domain.Shipment{ID: "ship-1"}))

	acquired, err := s.Shipments.LockForSaga(context.Background(), "ship-1", "saga-1")
	require.NoError(t, err)
	require.True(t, acquired)

	acquired2, err := s.Shipments.LockForSaga(context.Background(), "ship-1", "saga-2")
	require.NoError(t, err)
	require.False(t, acquired2, "a second saga must not acquire the lock while the first holds it")

	require.NoError(t, s.Shipments.UnlockSaga(context.Background(), "ship-1", "saga-1"))
	acquired3, err := s.Shipments.LockForSaga(context.Background(), "ship-1", "saga-2")
	require.NoError(t, err)
	require.True(t, acquired3)
}

func TestMemoryShipmentsGetUnknownReturnsNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Shipments.Get(context.Background(), "missing")
	require.ErrorIs(t, err, brokererr.ErrNotFound)
}

func TestMemoryCarriersChangesForFiltersAcrossShipments(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Carriers.AppendChange(context.Background(), domain.CarrierChange{ShipmentID: "a", ToCarrierID: "c1", Success: true}))
	require.NoError(t, s.Carriers.AppendChange(context.Background(), domain.CarrierChange{ShipmentID: "b", ToCarrierID: "c2", Success: true}))

	changes, err := s.Carriers.ChangesFor(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "c1", changes[0].ToCarrierID)
}
