// Package failover implements FailoverAgent "PAOLO" (C9): a periodic loop
// that finds at-risk shipments on underperforming carriers, locates a
// compliant replacement, and executes the failover saga. Grounded on the
// teacher's internal/services/triggers periodic scheduler pattern
// (robfig/cron/v3), generalized from numeric threshold triggers to a
// carrier-health + route-availability predicate.
package failover

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/control"
	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/ledger"
	"github.com/nexfreight/broker/internal/saga"
	"github.com/nexfreight/broker/internal/store"
)

// Config carries the sweep interval and the KPI/replacement/escrow thresholds
// that decide when a carrier is underperforming and which replacement
// qualifies.
type Config struct {
	CheckInterval     time.Duration
	KPIMinPercent     float64
	ReplacementMinPct float64
	AutoLimitAmount   float64
	GracePeriod       time.Duration
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:     5 * time.Minute,
		KPIMinPercent:     90,
		ReplacementMinPct: 95,
		AutoLimitAmount:   10000,
		GracePeriod:       24 * time.Hour,
	}
}

var activeStatuses = []domain.ShipmentStatus{domain.ShipmentConfirmed, domain.ShipmentInTransit}

// Agent is FailoverAgent "PAOLO".
type Agent struct {
	cfg     Config
	store   *store.Store
	ledger  ledger.Client
	saga    *saga.Coordinator
	bus     *eventbus.Bus
	log     logrus.FieldLogger
	cron    *cron.Cron
	now     func() time.Time
	halt    *control.EmergencyStop
}

// New constructs an Agent. Call Start to begin the periodic loop. halt may
// be nil, in which case the agent never refuses a sweep.
func New(cfg Config, st *store.Store, led ledger.Client, coordinator *saga.Coordinator, bus *eventbus.Bus, log logrus.FieldLogger, halt *control.EmergencyStop) *Agent {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Agent{cfg: cfg, store: st, ledger: led, saga: coordinator, bus: bus, log: log, now: time.Now, halt: halt}
}

// Start schedules RunOnce on cfg.CheckInterval via robfig/cron.
func (a *Agent) Start() error {
	a.cron = cron.New()
	spec := fmt.Sprintf("@every %s", a.cfg.CheckInterval)
	_, err := a.cron.AddFunc(spec, func() {
		if err := a.RunOnce(context.Background()); err != nil {
			a.log.WithError(err).Error("failover sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failover: scheduling sweep: %w", err)
	}
	a.cron.Start()
	return nil
}

// Stop halts the periodic loop.
func (a *Agent) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
}

// RunOnce executes one sweep across every enabled carrier. Refuses to run
// while the command center's emergency stop is engaged.
func (a *Agent) RunOnce(ctx context.Context) error {
	if a.halt != nil && a.halt.Halted() {
		return nil
	}
	carriers, err := a.store.Carriers.Enabled(ctx)
	if err != nil {
		return fmt.Errorf("failover: listing enabled carriers: %w", err)
	}

	for _, carrier := range carriers {
		if carrier.OnTimeRatePct >= a.cfg.KPIMinPercent {
			continue
		}
		if err := a.handleUnderperformingCarrier(ctx, carrier, carriers); err != nil {
			a.log.WithError(err).WithField("carrier_id", carrier.ID).Error("failover handling failed")
		}
	}
	return nil
}

func (a *Agent) handleUnderperformingCarrier(ctx context.Context, carrier domain.Carrier, allCarriers []domain.Carrier) error {
	shipments, err := a.store.Shipments.ByCarrierAndStatus(ctx, carrier.ID, activeStatuses)
	if err != nil {
		return err
	}

	for _, shipment := range shipments {
		if !a.isAtRisk(shipment) {
			continue
		}
		replacement, ok := a.findReplacement(allCarriers, carrier.ID, shipment)
		if !ok {
			continue
		}
		if err := a.failover(ctx, shipment, carrier, replacement, ""); err != nil {
			a.log.WithError(err).WithField("shipment_id", shipment.ID).Error("failover execution failed")
		}
	}
	return nil
}

func (a *Agent) isAtRisk(s domain.Shipment) bool {
	if s.PlannedDeliveryAt.IsZero() {
		return false
	}
	return a.now().Before(s.PlannedDeliveryAt)
}

// findReplacement picks the first carrier that is enabled, available within
// 2 hours, meets replacement_min_pct, and covers the shipment's route.
func (a *Agent) findReplacement(carriers []domain.Carrier, excludeID string, shipment domain.Shipment) (domain.Carrier, bool) {
	deadline := a.now().Add(2 * time.Hour)
	for _, c := range carriers {
		if c.ID == excludeID {
			continue
		}
		if !c.IsAvailable(deadline) {
			continue
		}
		if c.OnTimeRatePct < a.cfg.ReplacementMinPct {
			continue
		}
		if !coversRoute(c, shipment) {
			continue
		}
		return c, true
	}
	return domain.Carrier{}, false
}

// coversRoute checks the carrier's declared coverage regions include the
// shipment's destination. Geographic-coverage as a configurable predicate
// is internal/rules' concern (§9 Open Question); this is the built-in
// default when no operator rule is configured.
func coversRoute(c domain.Carrier, s domain.Shipment) bool {
	if len(c.Regions) == 0 {
		return true
	}
	for _, r := range c.Regions {
		if r == s.Destination {
			return true
		}
	}
	return false
}

// Override executes a manual carrier reassignment through the same saga
// RunOnce uses, with an operator-supplied overrideToken that bypasses the
// auto-failover-limit check. This is the reachable entry point for
// command-center change_carrier requests that exceed cfg.AutoLimitAmount.
func (a *Agent) Override(ctx context.Context, shipmentID, toCarrierID, overrideToken string) error {
	shipment, err := a.store.Shipments.Get(ctx, shipmentID)
	if err != nil {
		return err
	}
	from, err := a.store.Carriers.Get(ctx, shipment.CarrierID)
	if err != nil {
		return err
	}
	to, err := a.store.Carriers.Get(ctx, toCarrierID)
	if err != nil {
		return err
	}
	return a.failover(ctx, shipment, from, to, overrideToken)
}

// failover executes the carrier-reassignment saga. overrideToken, when
// non-empty, bypasses the auto-failover-limit check.
func (a *Agent) failover(ctx context.Context, shipment domain.Shipment, from, to domain.Carrier, overrideToken string) error {
	escrow, err := a.store.Escrows.Get(ctx, shipment.ID)
	if err != nil {
		return err
	}
	if escrow.Amount > a.cfg.AutoLimitAmount && overrideToken == "" {
		if a.bus != nil {
			a.bus.Publish(ctx, eventbus.Event{
				Type: "failover.requires_override", Source: "failover_agent",
				Payload: map[string]any{"shipment_id": shipment.ID, "from_carrier_id": from.ID, "to_carrier_id": to.ID, "escrow_amount": escrow.Amount},
			})
		}
		return brokererr.ErrAuthorizationDenied
	}

	acquired, err := a.store.Shipments.LockForSaga(ctx, shipment.ID, sagaIDFor(shipment.ID))
	if err != nil {
		return err
	}
	if !acquired {
		return nil // another saga already owns this shipment
	}
	defer a.store.Shipments.UnlockSaga(ctx, shipment.ID, sagaIDFor(shipment.ID))

	if a.bus != nil {
		a.bus.Publish(ctx, eventbus.Event{Type: "carrier.failover_initiated", Source: "failover_agent", Payload: shipment.ID})
	}

	var txID string
	var compensatingTxID *string

	steps := []saga.Step{
		{
			Name: "reassign_carrier",
			Forward: func(ctx context.Context) error {
				shipment.CarrierID = to.ID
				if err := a.store.Shipments.Save(ctx, shipment); err != nil {
					return err
				}
				return a.store.Carriers.AppendChange(ctx, domain.CarrierChange{
					ID: changeIDFor(shipment.ID, to.ID), ShipmentID: shipment.ID,
					FromCarrierID: from.ID, ToCarrierID: to.ID,
					ReasonCode: "kpi_breach", ExecutedBy: "failover_agent", Success: true,
				})
			},
			Compensate: func(ctx context.Context) error {
				shipment.CarrierID = from.ID
				if err := a.store.Shipments.Save(ctx, shipment); err != nil {
					return err
				}
				return a.store.Carriers.AppendChange(ctx, domain.CarrierChange{
					ID: changeIDFor(shipment.ID, from.ID), ShipmentID: shipment.ID,
					FromCarrierID: to.ID, ToCarrierID: from.ID,
					ReasonCode: "compensation", ExecutedBy: "failover_agent", Success: true,
				})
			},
		},
		{
			Name: "transfer_escrow",
			Forward: func(ctx context.Context) error {
				id, err := a.ledger.TransferEscrow(ctx, shipment.ID, from.ID, to.ID, int64(escrow.Amount*100))
				if err != nil {
					return err
				}
				txID = id
				escrow.CurrentCarrierID = to.ID
				escrow.FailoverCount++
				return a.store.Escrows.Save(ctx, escrow)
			},
			Compensate: func(ctx context.Context) error {
				id, err := a.ledger.CounterTransfer(ctx, txID)
				if err != nil {
					return err
				}
				compensatingTxID = &id
				return nil
			},
		},
		{
			Name: "extend_deadline_and_notify",
			Forward: func(ctx context.Context) error {
				shipment.PlannedDeliveryAt = shipment.PlannedDeliveryAt.Add(a.cfg.GracePeriod)
				return a.store.Shipments.Save(ctx, shipment)
			},
		},
	}

	err = a.saga.Run(ctx, sagaIDFor(shipment.ID), steps)
	if err != nil {
		if a.bus != nil {
			a.bus.Publish(ctx, eventbus.Event{
				Type: "carrier.failover_failed", Source: "failover_agent",
				Payload: map[string]any{"shipment_id": shipment.ID, "compensating_tx_id": compensatingTxID},
			})
		}
		return err
	}

	if a.bus != nil {
		a.bus.Publish(ctx, eventbus.Event{
			Type: "carrier.failover_succeeded", Source: "failover_agent",
			Payload: eventbus.FailoverSucceededEvent{ShipmentID: shipment.ID, FromCarrierID: from.ID, ToCarrierID: to.ID},
		})
	}
	return nil
}

func sagaIDFor(shipmentID string) string { return "failover-" + shipmentID }
func changeIDFor(shipmentID, toCarrierID string) string {
	return "change-" + shipmentID + "-" + toCarrierID
}
