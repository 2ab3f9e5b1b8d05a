package profile

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/nexfreight/broker/internal/domain"
)

// Persistence is the subset of internal/store used by ProfileStore: one
// active profile per lead (overwrite on re-assign), plus lookups needed for
// similarity search among converted leads.
type Persistence interface {
	SaveProfile(ctx context.Context, profile domain.PsychProfile) error
	ConvertedProfiles(ctx context.Context) ([]domain.PsychProfile, error)
	CommunicationPrefFor(profileType domain.ProfileType) string
}

// Store is the ProfileStore (C4).
type Store struct {
	persistence Persistence
	now         func() time.Time
}

// New constructs a Store.
func New(persistence Persistence) *Store {
	return &Store{persistence: persistence, now: time.Now}
}

// Assign clusters signals into one of the four profile types and writes
// exactly one profile per lead.
func (s *Store) Assign(ctx context.Context, leadID string, signals Signals) (domain.PsychProfile, error) {
	counts := score(signals)
	profileType := classify(counts)
	decisionSpeed, riskTolerance, priceSensitivity := dimensionScores(signals, counts)

	profile := domain.PsychProfile{
		LeadID:           leadID,
		ProfileType:      profileType,
		DecisionSpeed:    decisionSpeed,
		RiskTolerance:    riskTolerance,
		PriceSensitivity: priceSensitivity,
		UpdatedAt:        s.now(),
	}
	if s.persistence != nil {
		profile.CommunicationPref = s.persistence.CommunicationPrefFor(profileType)
		if err := s.persistence.SaveProfile(ctx, profile); err != nil {
			return domain.PsychProfile{}, err
		}
	}
	return profile, nil
}

// Similar returns up to k converted leads with cosine-similar vectors to
// target, strictly excluding target's own lead.
func (s *Store) Similar(ctx context.Context, target domain.PsychProfile, k int) ([]domain.PsychProfile, error) {
	if k <= 0 || s.persistence == nil || len(target.Vector) == 0 {
		return nil, nil
	}
	candidates, err := s.persistence.ConvertedProfiles(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		profile    domain.PsychProfile
		similarity float64
	}
	var ranked []scored
	for _, c := range candidates {
		if c.LeadID == target.LeadID || len(c.Vector) != len(target.Vector) {
			continue
		}
		ranked = append(ranked, scored{profile: c, similarity: cosineSimilarity(target.Vector, c.Vector)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].similarity > ranked[j].similarity })

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]domain.PsychProfile, len(ranked))
	for i, r := range ranked {
		out[i] = r.profile
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
