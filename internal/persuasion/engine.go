// Package persuasion implements the PersuasionEngine (C5): selects an A/B
// script by profile type and funnel stage, with objection-specific
// remediation templates. Grounded on the teacher's strategy-table lookup
// shape, generalized from a single score to a (profile_type, stage) keyed
// table with a goja-evaluated "active" filter (internal/rules) so operators
// can retire a strategy without a redeploy.
package persuasion

import (
	"context"
	"sort"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/rules"
)

// Objection classes a prospect can raise during a persuasion attempt.
type Objection string

const (
	ObjectionPrice       Objection = "price"
	ObjectionTime        Objection = "time"
	ObjectionTrust       Objection = "trust"
	ObjectionNeed        Objection = "need"
	ObjectionCompetition Objection = "competition"
)

// Script is what Select returns: a template, linguistic pattern tags, and
// the objection handlers, keyed by objection class, available for this
// (profile, stage).
type Script struct {
	ID                string
	Template          string
	PatternTags       []string
	ObjectionHandlers map[Objection]string
}

// Strategy is one candidate script plus its historical track record and an
// optional activation predicate ("facts.success_rate > 0.4").
type Strategy struct {
	Script           Script
	ProfileType      domain.ProfileType
	Stage            string
	HistoricalSucc   float64
	ActivePredicate  *rules.Predicate // nil defers to AlwaysActiveFlag
	AlwaysActiveFlag bool
}

// Store holds strategies and the built-in default fallback per stage.
type Store interface {
	StrategiesFor(profileType domain.ProfileType, stage string) []Strategy
	DefaultScript(stage string) Script
}

// Engine is the PersuasionEngine.
type Engine struct {
	store Store
}

// New constructs an Engine.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Select returns the highest historical success-rate active strategy for
// (profile, stage); if none are active, the built-in default is returned.
// If objection is non-empty, only strategies whose handler
// map covers it are considered, and the handler's template is selectable by
// the caller via the returned Script.ObjectionHandlers[objection].
func (e *Engine) Select(ctx context.Context, stage string, profileType domain.ProfileType, objection Objection) (Script, error) {
	candidates := e.store.StrategiesFor(profileType, stage)

	var active []Strategy
	for _, s := range candidates {
		if objection != "" {
			if _, ok := s.Script.ObjectionHandlers[objection]; !ok {
				continue
			}
		}
		isActive, err := s.isActive()
		if err != nil {
			return Script{}, err
		}
		if isActive {
			active = append(active, s)
		}
	}

	if len(active) == 0 {
		return e.store.DefaultScript(stage), nil
	}

	sort.Slice(active, func(i, j int) bool { return active[i].HistoricalSucc > active[j].HistoricalSucc })
	return active[0].Script, nil
}

func (s Strategy) isActive() (bool, error) {
	if s.ActivePredicate == nil {
		return s.AlwaysActiveFlag, nil
	}
	return s.ActivePredicate.Eval(map[string]any{
		"success_rate": s.HistoricalSucc,
		"profile_type": string(s.ProfileType),
		"stage":        s.Stage,
	})
}
