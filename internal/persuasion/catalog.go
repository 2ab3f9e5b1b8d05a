package persuasion

import (
	"github.com/nexfreight/broker/internal/domain"
)

// StaticStore is an in-process Store seeded with one default strategy per
// (profile_type, stage) and the built-in fallback script. Real deployments
// typically tune strategy copy and historical success rates from an
// experimentation platform; no such integration exists in this corpus, so
// a static seed table is the complete baseline implementation (operators
// retune HistoricalSucc and ActivePredicate out-of-band).
type StaticStore struct {
	strategies map[domain.ProfileType]map[string][]Strategy
	defaults   map[string]Script
}

// NewStaticStore builds a StaticStore covering every ProfileType across the
// funnel stages ("awareness", "consideration", "decision").
func NewStaticStore() *StaticStore {
	stages := []string{"awareness", "consideration", "decision"}
	profiles := []domain.ProfileType{domain.ProfileVelocity, domain.ProfileAnalyst, domain.ProfileSocial, domain.ProfileSecurity}

	strategies := make(map[domain.ProfileType]map[string][]Strategy, len(profiles))
	for _, p := range profiles {
		byStage := make(map[string][]Strategy, len(stages))
		for _, stage := range stages {
			byStage[stage] = []Strategy{{
				Script:           defaultScriptFor(p, stage),
				ProfileType:      p,
				Stage:            stage,
				HistoricalSucc:   0.5,
				AlwaysActiveFlag: true,
			}}
		}
		strategies[p] = byStage
	}

	defaults := make(map[string]Script, len(stages))
	for _, stage := range stages {
		defaults[stage] = Script{
			ID:       "default_" + stage,
			Template: "Thanks for your interest — let's find the right fit for your shipment.",
			ObjectionHandlers: map[Objection]string{
				ObjectionPrice: "We can review the cost breakdown together.",
				ObjectionTime:  "Let's confirm the timeline that works for you.",
			},
		}
	}

	return &StaticStore{strategies: strategies, defaults: defaults}
}

func defaultScriptFor(profileType domain.ProfileType, stage string) Script {
	switch profileType {
	case domain.ProfileVelocity:
		return Script{
			ID:          "velocity_" + stage,
			Template:    "We can get this moving today — here's the fastest path.",
			PatternTags: []string{"urgency", "direct"},
			ObjectionHandlers: map[Objection]string{
				ObjectionTime:        "I can lock in a carrier within the hour.",
				ObjectionCompetition: "Here's why we'll beat their timeline.",
			},
		}
	case domain.ProfileAnalyst:
		return Script{
			ID:          "analyst_" + stage,
			Template:    "Here is the full cost and performance breakdown for this lane.",
			PatternTags: []string{"data", "detail"},
			ObjectionHandlers: map[Objection]string{
				ObjectionPrice: "Let's compare cost-per-mile against the last three carriers you used.",
				ObjectionTrust: "Here are our on-time and claims-rate metrics for this lane.",
			},
		}
	case domain.ProfileSocial:
		return Script{
			ID:          "social_" + stage,
			Template:    "Several shippers on this lane have had great results with us recently.",
			PatternTags: []string{"social_proof"},
			ObjectionHandlers: map[Objection]string{
				ObjectionTrust: "Happy to connect you with a reference shipper on this route.",
			},
		}
	default: // domain.ProfileSecurity
		return Script{
			ID:          "security_" + stage,
			Template:    "Every shipment is insured and tracked end-to-end with escrowed payment.",
			PatternTags: []string{"reassurance"},
			ObjectionHandlers: map[Objection]string{
				ObjectionTrust: "Funds stay in escrow until delivery is confirmed.",
				ObjectionNeed:  "We only release payment once the proof-of-delivery is verified.",
			},
		}
	}
}

func (s *StaticStore) StrategiesFor(profileType domain.ProfileType, stage string) []Strategy {
	byStage, ok := s.strategies[profileType]
	if !ok {
		return nil
	}
	return byStage[stage]
}

func (s *StaticStore) DefaultScript(stage string) Script {
	return s.defaults[stage]
}
