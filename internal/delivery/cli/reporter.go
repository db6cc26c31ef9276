package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"ransomwatch/internal/domain"
)

// Reporter renders detection results and engine status to the console
type Reporter struct {
	out io.Writer
}

// NewReporter creates a reporter writing to stdout
func NewReporter() *Reporter {
	return &Reporter{out: os.Stdout}
}

// NewReporterTo creates a reporter writing to w
func NewReporterTo(w io.Writer) *Reporter {
	return &Reporter{out: w}
}

// PrintResult displays one detection cycle's outcome
func (r *Reporter) PrintResult(result *domain.DetectionResult) {
	fmt.Fprintf(r.out, "\n[%s] Detection Cycle\n", result.Timestamp.Format("15:04:05"))
	fmt.Fprintln(r.out, "==================================================")

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CPU Usage:\t%.1f%%\n", result.Metrics.CPUPercent)
	fmt.Fprintf(w, "Memory Usage:\t%.1f%%\n", result.Metrics.MemoryPercent)
	fmt.Fprintf(w, "Disk Read Rate:\t%.2f MB/s\n", result.Metrics.DiskReadRate)
	fmt.Fprintf(w, "Disk Write Rate:\t%.2f MB/s\n", result.Metrics.DiskWriteRate)
	fmt.Fprintf(w, "File Events:\t%d\n", len(result.FileActivities))
	fmt.Fprintf(w, "Suspicious Processes:\t%d\n", len(result.SuspiciousProcesses))
	fmt.Fprintf(w, "Anomaly Score:\t%.3f\n", result.Score)
	w.Flush()

	if result.IsAnomaly {
		fmt.Fprintln(r.out, "\n!! WARNING: anomalous activity detected")
		r.printProcessPatterns(result.Details)
	} else if state, ok := result.Details["cycle_state"].(string); ok && state == "suppressed" {
		fmt.Fprintln(r.out, "\nStatus: anomalous but suppressed (cooldown active)")
	} else {
		fmt.Fprintln(r.out, "\nStatus: normal")
	}
}

func (r *Reporter) printProcessPatterns(details map[string]interface{}) {
	patterns, ok := details["process_patterns"].(map[string]interface{})
	if !ok {
		return
	}

	if highCPU, ok := patterns["high_cpu_usage"].([]map[string]interface{}); ok && len(highCPU) > 0 {
		fmt.Fprintln(r.out, "High CPU processes:")
		for _, p := range highCPU {
			fmt.Fprintf(r.out, "  - %v (pid %v): %.1f%%\n", p["name"], p["pid"], p["cpu_percent"])
		}
	}
	if highMem, ok := patterns["high_memory_usage"].([]map[string]interface{}); ok && len(highMem) > 0 {
		fmt.Fprintln(r.out, "High memory processes:")
		for _, p := range highMem {
			fmt.Fprintf(r.out, "  - %v (pid %v): %.1f%%\n", p["name"], p["pid"], p["memory_percent"])
		}
	}
}

// PrintStatus displays the engine status snapshot
func (r *Reporter) PrintStatus(status map[string]interface{}) {
	fmt.Fprintln(r.out, "Detector Status")
	fmt.Fprintln(r.out, "==================================================")

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Trained:\t%v\n", status["is_trained"])
	fmt.Fprintf(w, "Collectors:\t%v\n", status["collector_count"])
	fmt.Fprintf(w, "Backend trained:\t%v\n", status["backend_trained"])
	fmt.Fprintf(w, "Timestamp:\t%v\n", status["timestamp"])
	w.Flush()
}

// PrintTrainingProgress displays a short line once per reporting tick
// during the observation window.
func (r *Reporter) PrintTrainingProgress(elapsed, total time.Duration) {
	fmt.Fprintf(r.out, "Training: %s / %s elapsed\n",
		elapsed.Round(time.Second), total.Round(time.Second))
}
