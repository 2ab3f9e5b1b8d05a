package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/domain"
)

// PostgresShipments is the sqlx-backed Shipments repository.
type PostgresShipments struct {
	db *sqlx.DB
}

// NewPostgresShipments wraps an already-open *sqlx.DB.
func NewPostgresShipments(db *sqlx.DB) *PostgresShipments {
	return &PostgresShipments{db: db}
}

type shipmentRow struct {
	ID                string         `db:"id"`
	TrackingCode      string         `db:"tracking_code"`
	CarrierID         string         `db:"carrier_id"`
	Origin            string         `db:"origin"`
	Destination       string         `db:"destination"`
	WeightKg          float64        `db:"weight_kg"`
	DeclaredValue     float64        `db:"declared_value"`
	Status            string         `db:"status"`
	PlannedDeliveryAt sql.NullTime   `db:"planned_delivery_at"`
	ActualDeliveryAt  sql.NullTime   `db:"actual_delivery_at"`
	Cost              float64        `db:"cost"`
	SalePrice         float64        `db:"sale_price"`
	SagaInProgress    sql.NullString `db:"saga_in_progress"`
}

func (r *PostgresShipments) Get(ctx context.Context, id string) (domain.Shipment, error) {
	var row shipmentRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM shipments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shipment{}, brokererr.ErrNotFound
	}
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("store: get shipment %s: %w", id, err)
	}
	return rowToShipment(row), nil
}

func (r *PostgresShipments) Save(ctx context.Context, s domain.Shipment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO shipments (id, tracking_code, carrier_id, origin, destination, weight_kg,
			declared_value, status, planned_delivery_at, actual_delivery_at,
			cost, sale_price)
		VALUES (:id, :tracking_code, :carrier_id, :origin, :destination, :weight_kg,
			:declared_value, :status, :planned_delivery_at, :actual_delivery_at,
			:cost, :sale_price)
		ON CONFLICT (id) DO UPDATE SET
			carrier_id = EXCLUDED.carrier_id,
			status = EXCLUDED.status,
			actual_delivery_at = EXCLUDED.actual_delivery_at`,
		shipmentToRow(s))
	if err != nil {
		return fmt.Errorf("store: save shipment %s: %w", s.ID, err)
	}
	return nil
}

func (r *PostgresShipments) ByCarrierAndStatus(ctx context.Context, carrierID string, statuses []domain.ShipmentStatus) ([]domain.Shipment, error) {
	query, args, err := sqlx.In(`SELECT * FROM shipments WHERE carrier_id = ? AND status IN (?)`, carrierID, statuses)
	if err != nil {
		return nil, fmt.Errorf("store: building query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []shipmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("store: listing shipments for carrier %s: %w", carrierID, err)
	}
	out := make([]domain.Shipment, len(rows))
	for i, row := range rows {
		out[i] = rowToShipment(row)
	}
	return out, nil
}

// LockForSaga sets saga_in_progress := sagaID only if currently NULL,
// preventing two sagas from racing over one shipment.
func (r *PostgresShipments) LockForSaga(ctx context.Context, shipmentID, sagaID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shipments SET saga_in_progress = $1 WHERE id = $2 AND saga_in_progress IS NULL`,
		sagaID, shipmentID)
	if err != nil {
		return false, fmt.Errorf("store: locking shipment %s: %w", shipmentID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresShipments) UnlockSaga(ctx context.Context, shipmentID, sagaID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE shipments SET saga_in_progress = NULL WHERE id = $1 AND saga_in_progress = $2`,
		shipmentID, sagaID)
	if err != nil {
		return fmt.Errorf("store: unlocking shipment %s: %w", shipmentID, err)
	}
	return nil
}

func rowToShipment(row shipmentRow) domain.Shipment {
	s := domain.Shipment{
		ID:            row.ID,
		TrackingCode:  row.TrackingCode,
		CarrierID:     row.CarrierID,
		Origin:        row.Origin,
		Destination:   row.Destination,
		WeightKg:      row.WeightKg,
		DeclaredValue: row.DeclaredValue,
		Status:        domain.ShipmentStatus(row.Status),
		Cost:          row.Cost,
		SalePrice:     row.SalePrice,
		SagaInProgress: row.SagaInProgress.Valid,
	}
	if row.PlannedDeliveryAt.Valid {
		s.PlannedDeliveryAt = row.PlannedDeliveryAt.Time
	}
	if row.ActualDeliveryAt.Valid {
		t := row.ActualDeliveryAt.Time
		s.ActualDeliveryAt = &t
	}
	return s
}

func shipmentToRow(s domain.Shipment) shipmentRow {
	row := shipmentRow{
		ID:                s.ID,
		TrackingCode:      s.TrackingCode,
		CarrierID:         s.CarrierID,
		Origin:            s.Origin,
		Destination:       s.Destination,
		WeightKg:          s.WeightKg,
		DeclaredValue:     s.DeclaredValue,
		Status:            string(s.Status),
		Cost:              s.Cost,
		SalePrice:         s.SalePrice,
		PlannedDeliveryAt: sql.NullTime{Time: s.PlannedDeliveryAt, Valid: !s.PlannedDeliveryAt.IsZero()},
	}
	if s.ActualDeliveryAt != nil {
		row.ActualDeliveryAt = sql.NullTime{Time: *s.ActualDeliveryAt, Valid: true}
	}
	return row
}
