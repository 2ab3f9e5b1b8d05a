// Package resourcemonitor samples host resource pressure to feed the
// ProvisioningOrchestrator's pre-warm and safety-mode decisions. Ungrounded
// in the teacher (which runs as a stateless chain-indexing service with no
// capacity-planning concern); adopted from the pack's gopsutil usage since
// no teacher file exercises host sampling and the spec's pre-warm/cost_ratio
// behavior needs one.
package resourcemonitor

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time host resource reading.
type Snapshot struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Sampler reads host resource pressure. Satisfied by Monitor; an interface
// so ProvisioningOrchestrator tests can stub it.
type Sampler interface {
	Sample(ctx context.Context) (Snapshot, error)
}

// Monitor is a thin gopsutil wrapper.
type Monitor struct{}

// New constructs a Monitor.
func New() *Monitor { return &Monitor{} }

// Sample reads instantaneous CPU and memory utilization.
func (m *Monitor) Sample(ctx context.Context) (Snapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	return Snapshot{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}
