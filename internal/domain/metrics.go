package domain

import (
	"time"
)

// FileOperationKind classifies a file event
type FileOperationKind string

const (
	FileOpRead  FileOperationKind = "read"
	FileOpWrite FileOperationKind = "write"
)

// SystemSample holds one cycle of host-level resource metrics.
// Disk rates are in MB/s, computed from cumulative I/O counter deltas
// over the inter-sample interval.
type SystemSample struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskReadRate  float64   `json:"disk_read_rate"`
	DiskWriteRate float64   `json:"disk_write_rate"`
	Timestamp     time.Time `json:"timestamp"`
}

// FileEvent represents a single observed file operation
type FileEvent struct {
	Path         string            `json:"path"`
	Operation    FileOperationKind `json:"operation"`
	Timestamp    time.Time         `json:"timestamp"`
	Size         int64             `json:"size"`
	Extension    string            `json:"extension"`
	IsSuspicious bool              `json:"is_suspicious"`
}

// ProcessSample represents one process that survived the collector's
// whitelist/parent/command-line legitimacy checks while exceeding the
// CPU or memory threshold. The engine never re-filters, only counts.
type ProcessSample struct {
	PID           int32     `json:"pid"`
	Name          string    `json:"name"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	CreatedTime   time.Time `json:"created_time"`
}

// MetricBundle is the raw input of one detection cycle. Immutable once
// handed to the engine.
type MetricBundle struct {
	System    SystemSample    `json:"system"`
	Files     []FileEvent     `json:"files"`
	Processes []ProcessSample `json:"processes"`
}

// ContextSignals describe ambient conditions used for score dampening
type ContextSignals struct {
	BrowserActive     bool `json:"browser_activity"`
	MaintenanceActive bool `json:"system_maintenance"`
	HourOfDay         int  `json:"time_of_day"`
}

// AnalysisResult is the scoring backend's verdict for one feature vector
type AnalysisResult struct {
	IsAnomaly bool                   `json:"is_anomaly"`
	RawScore  float64                `json:"anomaly_score"`
	Details   map[string]interface{} `json:"details"`
}

// DetectionResult is the outcome of one detection cycle. Created fresh
// each cycle, never mutated after construction.
type DetectionResult struct {
	ID                  string                 `json:"id"`
	IsAnomaly           bool                   `json:"is_anomaly"`
	Score               float64                `json:"score"`
	Metrics             SystemSample           `json:"metrics"`
	FileActivities      []FileEvent            `json:"file_activities"`
	SuspiciousProcesses []ProcessSample        `json:"suspicious_processes"`
	Timestamp           time.Time              `json:"timestamp"`
	Details             map[string]interface{} `json:"details"`
}
