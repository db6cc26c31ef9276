package infrastructure

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"ransomwatch/internal/domain"
)

const bytesPerMB = 1024 * 1024

// SystemMetricsCollector samples host CPU, memory and disk throughput.
// Disk rates are MB/s derived from the delta of cumulative I/O counters
// over the inter-sample interval; the first sample reports zero rates
// because no interval exists yet.
type SystemMetricsCollector struct {
	lastReadBytes  uint64
	lastWriteBytes uint64
	lastSampleTime time.Time
	primed         bool
}

// NewSystemMetricsCollector creates an unprimed collector
func NewSystemMetricsCollector() *SystemMetricsCollector {
	return &SystemMetricsCollector{}
}

// Collect returns one SystemSample. Counter wrap or device
// disappearance yields zero rates for the affected cycle rather than
// negative ones.
func (c *SystemMetricsCollector) Collect(ctx context.Context) (domain.SystemSample, error) {
	now := time.Now()

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return domain.SystemSample{}, &domain.CollectionError{Collector: "system", Err: err}
	}
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return domain.SystemSample{}, &domain.CollectionError{Collector: "system", Err: err}
	}

	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return domain.SystemSample{}, &domain.CollectionError{Collector: "system", Err: err}
	}

	var readBytes, writeBytes uint64
	for _, stat := range counters {
		readBytes += stat.ReadBytes
		writeBytes += stat.WriteBytes
	}

	var readRate, writeRate float64
	if c.primed {
		elapsed := now.Sub(c.lastSampleTime).Seconds()
		if elapsed > 0 && readBytes >= c.lastReadBytes && writeBytes >= c.lastWriteBytes {
			readRate = float64(readBytes-c.lastReadBytes) / elapsed / bytesPerMB
			writeRate = float64(writeBytes-c.lastWriteBytes) / elapsed / bytesPerMB
		}
	}

	c.lastReadBytes = readBytes
	c.lastWriteBytes = writeBytes
	c.lastSampleTime = now
	c.primed = true

	return domain.SystemSample{
		CPUPercent:    cpuPercent,
		MemoryPercent: vm.UsedPercent,
		DiskReadRate:  readRate,
		DiskWriteRate: writeRate,
		Timestamp:     now,
	}, nil
}
