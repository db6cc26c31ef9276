package domain

// FeatureDimension is the fixed width of every extracted feature vector.
// A backend trained on this dimension must reject vectors of any other.
const FeatureDimension = 6

// FeatureVector is a fixed-length numeric summary of one monitoring cycle:
// [cpu_percent, memory_percent, disk_read_rate, disk_write_rate,
// file_event_count, high_cpu_process_count]. Counts are cast to float64
// to keep the vector homogeneous.
type FeatureVector []float64

// ExtractFeatures builds the feature vector for one bundle. Pure and
// deterministic: identical bundles produce identical vectors.
func ExtractFeatures(bundle *MetricBundle, highCPUThreshold float64) FeatureVector {
	highCPU := 0
	for _, p := range bundle.Processes {
		if p.CPUPercent > highCPUThreshold {
			highCPU++
		}
	}

	return FeatureVector{
		bundle.System.CPUPercent,
		bundle.System.MemoryPercent,
		bundle.System.DiskReadRate,
		bundle.System.DiskWriteRate,
		float64(len(bundle.Files)),
		float64(highCPU),
	}
}
