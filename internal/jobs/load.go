package jobs

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// LoadSampler reports host CPU and memory utilization percentages.
// Injectable so the dispatcher's load-shedding can be tested.
type LoadSampler interface {
	Sample(ctx context.Context) (cpuPercent, memPercent float64, err error)
}

// HostLoadSampler samples the actual host via gopsutil.
type HostLoadSampler struct{}

// Sample returns CPU utilization since the previous call and current
// memory utilization.
func (HostLoadSampler) Sample(ctx context.Context) (float64, float64, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sample cpu: %w", err)
	}
	var cpuPercent float64
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sample memory: %w", err)
	}
	return cpuPercent, vm.UsedPercent, nil
}
