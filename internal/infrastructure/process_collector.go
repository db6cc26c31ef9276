package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"ransomwatch/config"
	"ransomwatch/internal/domain"
)

// maxProcessAge excludes long-running processes from suspicion:
// ransomware does its damage within minutes of starting.
const maxProcessAge = time.Hour

// SuspiciousProcessCollector enumerates running processes and reports
// only those that exceed the CPU or memory threshold AND fail the
// whitelist/parent/command-line legitimacy verification. The engine
// never re-filters; it only counts what arrives here.
type SuspiciousProcessCollector struct {
	cpuThreshold    float64
	memoryThreshold float64
}

// NewSuspiciousProcessCollector creates a collector with the given
// per-process resource thresholds.
func NewSuspiciousProcessCollector(cpuThreshold, memoryThreshold float64) *SuspiciousProcessCollector {
	return &SuspiciousProcessCollector{
		cpuThreshold:    cpuThreshold,
		memoryThreshold: memoryThreshold,
	}
}

// Collect returns the suspicious process list for this cycle.
// Individual processes that vanish or deny access mid-enumeration are
// skipped; only a failed enumeration itself is a CollectionError.
func (c *SuspiciousProcessCollector) Collect(ctx context.Context) ([]domain.ProcessSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &domain.CollectionError{Collector: "process", Err: err}
	}

	samples := make([]domain.ProcessSample, 0)
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if config.IsSystemProcess(name) {
			continue
		}

		cpuPercent, err := p.CPUPercentWithContext(ctx)
		if err != nil {
			continue
		}
		memPercent, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			continue
		}

		if cpuPercent <= c.cpuThreshold && float64(memPercent) <= c.memoryThreshold {
			continue
		}

		if !c.verifySuspicious(ctx, p) {
			continue
		}

		createdMillis, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			createdMillis = 0
		}

		samples = append(samples, domain.ProcessSample{
			PID:           p.Pid,
			Name:          name,
			CPUPercent:    cpuPercent,
			MemoryPercent: float64(memPercent),
			CreatedTime:   time.UnixMilli(createdMillis),
		})
	}

	return samples, nil
}

// verifySuspicious applies the legitimacy checks that weed out false
// positives before a process is reported.
func (c *SuspiciousProcessCollector) verifySuspicious(ctx context.Context, p *process.Process) bool {
	createdMillis, err := p.CreateTimeWithContext(ctx)
	if err == nil {
		age := time.Since(time.UnixMilli(createdMillis))
		if age > maxProcessAge {
			return false
		}
	}

	if parent, err := p.ParentWithContext(ctx); err == nil && parent != nil {
		if parentName, err := parent.NameWithContext(ctx); err == nil {
			if config.IsSystemProcess(parentName) {
				return false
			}
		}
	}

	if cmdline, err := p.CmdlineWithContext(ctx); err == nil {
		if config.HasLegitimateCommandLine(strings.ToLower(cmdline)) {
			return false
		}
	}

	return true
}
