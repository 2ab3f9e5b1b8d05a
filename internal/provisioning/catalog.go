package provisioning

import "github.com/nexfreight/broker/internal/domain"

// StaticCatalog is a fixed, in-process LevelCatalog built from the
// operator-configured level ladder (config.Revenue.DebounceMonths and the
// L0..L4 component assignments). Real deployments may later back this with
// a database table; a config-driven static ladder is the complete
// implementation for now.
type StaticCatalog struct {
	levels []domain.EconomicLevel
	index  map[string]int
}

// NewStaticCatalog builds a catalog from levels, which must be ordered
// ascending by mrr_threshold (L0 first).
func NewStaticCatalog(levels []domain.EconomicLevel) *StaticCatalog {
	index := make(map[string]int, len(levels))
	for i, l := range levels {
		index[l.LevelID] = i
	}
	return &StaticCatalog{levels: levels, index: index}
}

// DefaultLevels returns the spec's documented L0..L4 ladder, using the
// configured per-level debounce months and a conservative max_burn derived
// from each level's mrr_threshold and safetyMax.
func DefaultLevels(debounceMonths map[string]int, safetyMax float64) []domain.EconomicLevel {
	if safetyMax <= 0 {
		safetyMax = 0.90
	}
	raw := []struct {
		id         string
		threshold  float64
		active     []string
		disabled   []string
	}{
		{"L0", 0, []string{"acquisition"}, []string{"sourcing", "closing", "operations", "failover", "dispute-resolution", "retention"}},
		{"L1", 800, []string{"acquisition", "qualification"}, []string{"sourcing", "closing", "operations", "failover", "dispute-resolution", "retention"}},
		{"L2", 3000, []string{"acquisition", "qualification", "sourcing", "closing"}, []string{"operations", "failover", "dispute-resolution", "retention"}},
		{"L3", 10000, []string{"acquisition", "qualification", "sourcing", "closing", "operations", "failover"}, []string{"dispute-resolution", "retention"}},
		{"L4", 30000, []string{"acquisition", "qualification", "sourcing", "closing", "operations", "failover", "dispute-resolution", "retention"}, nil},
	}
	levels := make([]domain.EconomicLevel, 0, len(raw))
	for _, r := range raw {
		levels = append(levels, domain.EconomicLevel{
			LevelID:            r.id,
			MRRThreshold:       r.threshold,
			MaxBurn:            r.threshold * safetyMax,
			DebounceMonths:     debounceMonths[r.id],
			ActiveComponents:   r.active,
			DisabledComponents: r.disabled,
		})
	}
	return levels
}

func (c *StaticCatalog) Level(levelID string) (domain.EconomicLevel, bool) {
	i, ok := c.index[levelID]
	if !ok {
		return domain.EconomicLevel{}, false
	}
	return c.levels[i], true
}

func (c *StaticCatalog) NextLevel(levelID string) (domain.EconomicLevel, bool) {
	i, ok := c.index[levelID]
	if !ok || i+1 >= len(c.levels) {
		return domain.EconomicLevel{}, false
	}
	return c.levels[i+1], true
}

// LevelsAbove implements revenue.LevelLadder, returning every level whose
// threshold exceeds the current one, ascending.
func (c *StaticCatalog) LevelsAbove(currentLevelID string) []domain.EconomicLevel {
	i, ok := c.index[currentLevelID]
	if !ok {
		return nil
	}
	out := make([]domain.EconomicLevel, len(c.levels)-i-1)
	copy(out, c.levels[i+1:])
	return out
}

// ComponentsInDependencyOrder returns level's active components in the
// fixed acquisition -> ... -> retention pipeline order: the agent ordering
// doubles as the activation dependency order, since a later stage depends
// on the stages that feed its inputs.
func (c *StaticCatalog) ComponentsInDependencyOrder(level domain.EconomicLevel) []string {
	order := []string{"acquisition", "qualification", "sourcing", "closing", "operations", "failover", "dispute-resolution", "retention"}
	active := make(map[string]bool, len(level.ActiveComponents))
	for _, name := range level.ActiveComponents {
		active[name] = true
	}
	out := make([]string, 0, len(level.ActiveComponents))
	for _, name := range order {
		if active[name] {
			out = append(out, name)
		}
	}
	return out
}
