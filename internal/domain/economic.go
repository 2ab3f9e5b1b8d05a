package domain

import "time"

// EconomicLevel is immutable configuration loaded at startup.
type EconomicLevel struct {
	LevelID            string
	MRRThreshold       float64
	MaxBurn            float64
	DebounceMonths     int
	ActiveComponents   []string
	DisabledComponents []string
}

// LevelState is the runtime's current position in the level ladder.
type LevelState struct {
	CurrentLevel                     string
	ConsecutiveMonthsOverNextThreshold int
	LastTransitionAt                 time.Time
}

// ComponentLifecycleState is one node's position in the provisioning
// lifecycle.
type ComponentLifecycleState string

const (
	ComponentCold         ComponentLifecycleState = "cold"
	ComponentWarming      ComponentLifecycleState = "warming"
	ComponentWarm         ComponentLifecycleState = "warm"
	ComponentActivating   ComponentLifecycleState = "activating"
	ComponentHot          ComponentLifecycleState = "hot"
	ComponentDeactivating ComponentLifecycleState = "deactivating"
)

// Payment is a completed payment contributing to trailing-30-day MRR.
type Payment struct {
	ID          string
	AmountCents int64
	CompletedAt time.Time
}
