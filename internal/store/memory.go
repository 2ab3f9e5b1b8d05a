package store

import (
	"context"
	"sync"

	"github.com/nexfreight/broker/internal/brokererr"
	"github.com/nexfreight/broker/internal/domain"
)

// NewMemoryStore builds a *Store backed entirely by in-process maps, used by
// unit tests and by cmd/broker in local/dev mode when no DATABASE_URL is
// configured.
func NewMemoryStore() *Store {
	return &Store{
		Shipments:  &memoryShipments{byID: make(map[string]domain.Shipment)},
		Carriers:   &memoryCarriers{byID: make(map[string]domain.Carrier)},
		Escrows:    &memoryEscrows{byShipment: make(map[string]domain.EscrowRecord)},
		Disputes:   &memoryDisputes{byShipment: make(map[string]domain.DisputeResolution)},
		Leads:      &memoryLeads{byID: make(map[string]domain.Lead)},
		Sentiments: &memorySentiments{byLead: make(map[string][]domain.SentimentRecord)},
		Profiles:   &memoryProfiles{byLead: make(map[string]domain.PsychProfile)},
	}
}

type memoryShipments struct {
	mu   sync.Mutex
	byID map[string]domain.Shipment
}

func (m *memoryShipments) Get(ctx context.Context, id string) (domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.Shipment{}, brokererr.ErrNotFound
	}
	return s, nil
}

func (m *memoryShipments) Save(ctx context.Context, s domain.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s
	return nil
}

func (m *memoryShipments) ByCarrierAndStatus(ctx context.Context, carrierID string, statuses []domain.ShipmentStatus) ([]domain.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[domain.ShipmentStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []domain.Shipment
	for _, s := range m.byID {
		if s.CarrierID == carrierID && want[s.Status] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryShipments) LockForSaga(ctx context.Context, shipmentID, sagaID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[shipmentID]
	if !ok {
		return false, brokererr.ErrNotFound
	}
	if s.SagaInProgress {
		return false, nil
	}
	s.SagaInProgress = true
	m.byID[shipmentID] = s
	return true, nil
}

func (m *memoryShipments) UnlockSaga(ctx context.Context, shipmentID, sagaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[shipmentID]
	if !ok {
		return brokererr.ErrNotFound
	}
	s.SagaInProgress = false
	m.byID[shipmentID] = s
	return nil
}

type memoryCarriers struct {
	mu      sync.Mutex
	byID    map[string]domain.Carrier
	changes []domain.CarrierChange
}

func (m *memoryCarriers) Get(ctx context.Context, id string) (domain.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.Carrier{}, brokererr.ErrNotFound
	}
	return c, nil
}

func (m *memoryCarriers) Save(ctx context.Context, c domain.Carrier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	return nil
}

func (m *memoryCarriers) Enabled(ctx context.Context) ([]domain.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Carrier
	for _, c := range m.byID {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryCarriers) AppendChange(ctx context.Context, change domain.CarrierChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	return nil
}

func (m *memoryCarriers) ChangesFor(ctx context.Context, shipmentID string) ([]domain.CarrierChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CarrierChange
	for _, c := range m.changes {
		if c.ShipmentID == shipmentID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memoryEscrows struct {
	mu         sync.Mutex
	byShipment map[string]domain.EscrowRecord
}

func (m *memoryEscrows) Get(ctx context.Context, shipmentID string) (domain.EscrowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byShipment[shipmentID]
	if !ok {
		return domain.EscrowRecord{}, brokererr.ErrNotFound
	}
	return e, nil
}

func (m *memoryEscrows) Save(ctx context.Context, e domain.EscrowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byShipment[e.ShipmentID] = e
	return nil
}

type memoryDisputes struct {
	mu         sync.Mutex
	byShipment map[string]domain.DisputeResolution
}

func (m *memoryDisputes) SaveResolution(ctx context.Context, r domain.DisputeResolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byShipment[r.ShipmentID] = r
	return nil
}

func (m *memoryDisputes) ResolutionFor(ctx context.Context, shipmentID string) (domain.DisputeResolution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byShipment[shipmentID]
	return r, ok, nil
}

type memoryLeads struct {
	mu           sync.Mutex
	byID         map[string]domain.Lead
	interactions map[string][]domain.Interaction
}

func (m *memoryLeads) Get(ctx context.Context, id string) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return domain.Lead{}, brokererr.ErrNotFound
	}
	return l, nil
}

func (m *memoryLeads) Save(ctx context.Context, l domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[l.ID] = l
	return nil
}

func (m *memoryLeads) AppendInteraction(ctx context.Context, i domain.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interactions == nil {
		m.interactions = make(map[string][]domain.Interaction)
	}
	m.interactions[i.LeadID] = append(m.interactions[i.LeadID], i)
	return nil
}

func (m *memoryLeads) InteractionsFor(ctx context.Context, leadID string) ([]domain.Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Interaction(nil), m.interactions[leadID]...), nil
}

type memorySentiments struct {
	mu     sync.Mutex
	byLead map[string][]domain.SentimentRecord
}

func (m *memorySentiments) SaveSentiment(ctx context.Context, rec domain.SentimentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byLead[rec.LeadID] = append(m.byLead[rec.LeadID], rec)
	return nil
}

func (m *memorySentiments) SentimentsFor(ctx context.Context, leadID string) ([]domain.SentimentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SentimentRecord(nil), m.byLead[leadID]...), nil
}

type memoryProfiles struct {
	mu     sync.Mutex
	byLead map[string]domain.PsychProfile
}

func (m *memoryProfiles) SaveProfile(ctx context.Context, profile domain.PsychProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byLead[profile.LeadID] = profile
	return nil
}

// ConvertedProfiles returns every saved profile. The memory store does not
// track lead conversion, so no profile is filtered out.
func (m *memoryProfiles) ConvertedProfiles(ctx context.Context) ([]domain.PsychProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PsychProfile, 0, len(m.byLead))
	for _, p := range m.byLead {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProfiles) CommunicationPrefFor(profileType domain.ProfileType) string {
	switch profileType {
	case domain.ProfileVelocity:
		return "sms"
	case domain.ProfileAnalyst:
		return "email"
	case domain.ProfileSocial:
		return "phone"
	default:
		return "email"
	}
}
