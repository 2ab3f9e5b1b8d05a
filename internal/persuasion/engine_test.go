package persuasion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/rules"
)

type memStore struct {
	strategies []Strategy
	fallback   Script
}

func (m *memStore) StrategiesFor(profileType domain.ProfileType, stage string) []Strategy {
	var out []Strategy
	for _, s := range m.strategies {
		if s.ProfileType == profileType && s.Stage == stage {
			out = append(out, s)
		}
	}
	return out
}

func (m *memStore) DefaultScript(stage string) Script {
	return m.fallback
}

func TestSelectPicksHighestSuccessRateActiveStrategy(t *testing.T) {
	store := &memStore{
		strategies: []Strategy{
			{Script: Script{ID: "a"}, ProfileType: domain.ProfileAnalyst, Stage: "qualification", HistoricalSucc: 0.3, AlwaysActiveFlag: true},
			{Script: Script{ID: "b"}, ProfileType: domain.ProfileAnalyst, Stage: "qualification", HistoricalSucc: 0.7, AlwaysActiveFlag: true},
		},
	}
	e := New(store)
	script, err := e.Select(context.Background(), "qualification", domain.ProfileAnalyst, "")
	require.NoError(t, err)
	require.Equal(t, "b", script.ID)
}

func TestSelectFallsBackToDefaultWhenNoneActive(t *testing.T) {
	store := &memStore{
		strategies: []Strategy{
			{Script: Script{ID: "a"}, ProfileType: domain.ProfileVelocity, Stage: "closing", HistoricalSucc: 0.9, AlwaysActiveFlag: false},
		},
		fallback: Script{ID: "default"},
	}
	e := New(store)
	script, err := e.Select(context.Background(), "closing", domain.ProfileVelocity, "")
	require.NoError(t, err)
	require.Equal(t, "default", script.ID)
}

func TestSelectFiltersByObjectionCoverage(t *testing.T) {
	store := &memStore{
		strategies: []Strategy{
			{
				Script:           Script{ID: "covers-price", ObjectionHandlers: map[Objection]string{ObjectionPrice: "tpl"}},
				ProfileType:      domain.ProfileSocial,
				Stage:            "objection",
				HistoricalSucc:   0.5,
				AlwaysActiveFlag: true,
			},
			{
				Script:           Script{ID: "no-price"},
				ProfileType:      domain.ProfileSocial,
				Stage:            "objection",
				HistoricalSucc:   0.99,
				AlwaysActiveFlag: true,
			},
		},
		fallback: Script{ID: "default"},
	}
	e := New(store)
	script, err := e.Select(context.Background(), "objection", domain.ProfileSocial, ObjectionPrice)
	require.NoError(t, err)
	require.Equal(t, "covers-price", script.ID)
}

func TestSelectHonorsGojaActivePredicate(t *testing.T) {
	pred, err := rules.Compile("facts.success_rate > 0.6")
	require.NoError(t, err)
	store := &memStore{
		strategies: []Strategy{
			{Script: Script{ID: "low"}, ProfileType: domain.ProfileSecurity, Stage: "closing", HistoricalSucc: 0.4, ActivePredicate: pred},
			{Script: Script{ID: "high"}, ProfileType: domain.ProfileSecurity, Stage: "closing", HistoricalSucc: 0.8, ActivePredicate: pred},
		},
		fallback: Script{ID: "default"},
	}
	e := New(store)
	script, err := e.Select(context.Background(), "closing", domain.ProfileSecurity, "")
	require.NoError(t, err)
	require.Equal(t, "high", script.ID)
}
