package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Thresholds gather every detection tunable as independent settings.
// Historical builds hardcoded mutually inconsistent values; these are
// the documented defaults, overridable per field via TOML and env.
type Thresholds struct {
	// Raw anomaly thresholds for disk I/O rates (MB/s)
	DiskWriteRateMBps float64 `toml:"disk_write_rate_mbps"`
	DiskReadRateMBps  float64 `toml:"disk_read_rate_mbps"`

	// Consecutive cycles the write rate must breach its threshold
	// before the sustained-I/O path fires
	SustainedCycles int `toml:"sustained_cycles"`

	// Seconds after an emitted alert during which further alerts for
	// the same condition are suppressed
	CooldownSeconds int `toml:"cooldown_seconds"`

	// Backend score below which a cycle is anomalous regardless of the
	// backend's own binary verdict
	ScoreFloor float64 `toml:"score_floor"`

	// Per-process CPU percentage counted as "high CPU" in the feature
	// vector and process pattern analysis
	HighCPUProcessPercent float64 `toml:"high_cpu_process_percent"`

	// Per-process memory percentage counted as high in pattern analysis
	HighMemoryProcessPercent float64 `toml:"high_memory_process_percent"`

	// Multiplicative dampening factors, each in (0, 1]
	BrowserDampening     float64 `toml:"browser_dampening"`
	MaintenanceDampening float64 `toml:"maintenance_dampening"`
	DaytimeDampening     float64 `toml:"daytime_dampening"`
	WorkdayStartHour     int     `toml:"workday_start_hour"`
	WorkdayEndHour       int     `toml:"workday_end_hour"`

	// Minimum baseline samples a scoring backend accepts
	MinTrainingSamples int `toml:"min_training_samples"`
}

// Config holds application configuration
type Config struct {
	// Monitoring settings
	MonitorInterval         time.Duration `toml:"-"`
	TrainingDuration        time.Duration `toml:"-"`
	MonitorIntervalSeconds  int           `toml:"monitor_interval_seconds"`
	TrainingDurationSeconds int           `toml:"training_duration_seconds"`
	MonitoredPath           string        `toml:"monitored_path"`
	DataDir                 string        `toml:"data_dir"`
	LogDir                  string        `toml:"log_dir"`

	// Detection settings
	Thresholds           Thresholds `toml:"thresholds"`
	Backend              string     `toml:"backend"` // "isolation_forest" or "statistical"
	RansomwareExtensions []string   `toml:"-"`

	// Backend tuning
	ForestEstimators    int     `toml:"forest_estimators"`
	ForestSubsampleSize int     `toml:"forest_subsample_size"`
	ForestContamination float64 `toml:"forest_contamination"`
	ForestSeed          int64   `toml:"forest_seed"`
	StatisticalZLimit   float64 `toml:"statistical_z_limit"`
}

// DefaultThresholds returns the documented default tunables
func DefaultThresholds() Thresholds {
	return Thresholds{
		DiskWriteRateMBps:        100.0,
		DiskReadRateMBps:         200.0,
		SustainedCycles:          5,
		CooldownSeconds:          300,
		ScoreFloor:               -0.6,
		HighCPUProcessPercent:    85.0,
		HighMemoryProcessPercent: 90.0,
		BrowserDampening:         0.7,
		MaintenanceDampening:     0.8,
		DaytimeDampening:         0.9,
		WorkdayStartHour:         8,
		WorkdayEndHour:           18,
		MinTrainingSamples:       30,
	}
}

// RansomwareConfig represents the structure of ransomware_extensions.json
type RansomwareConfig struct {
	RansomwareExtensions []string `json:"ransomware_extensions"`
}

// defaultRansomwareExtensions are used when the JSON file is missing or
// unreadable.
var defaultRansomwareExtensions = []string{
	".encrypted", ".locked", ".enc", ".crypt", ".crypted", ".crypto",
	".locky", ".cerber", ".zepto", ".thor", ".aesir", ".cryptolocker",
	".cryptowall", ".teslacrypt", ".wannacry", ".wcry", ".wncry",
	".lockbit", ".ryuk", ".sodinokibi", ".revil", ".conti",
	".blackmatter", ".alphv", ".hive",
}

// LoadRansomwareExtensions loads the extension list from JSON, falling
// back to the built-in defaults on any failure.
func LoadRansomwareExtensions(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaultRansomwareExtensions
	}

	var rc RansomwareConfig
	if err := json.Unmarshal(data, &rc); err != nil || len(rc.RansomwareExtensions) == 0 {
		return defaultRansomwareExtensions
	}

	return rc.RansomwareExtensions
}

// Load builds configuration from defaults, an optional TOML file
// (RANSOMWATCH_CONFIG or ./config/ransomwatch.toml) and environment
// variable overrides, in that precedence order.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()

	cfg := &Config{
		MonitorIntervalSeconds:  1,
		TrainingDurationSeconds: 3600,
		MonitoredPath:           home,
		DataDir:                 "data",
		LogDir:                  "logs",
		Thresholds:              DefaultThresholds(),
		Backend:                 "isolation_forest",
		ForestEstimators:        200,
		ForestSubsampleSize:     256,
		ForestContamination:     0.01,
		ForestSeed:              42,
		StatisticalZLimit:       2.0,
	}

	tomlPath := getEnv("RANSOMWATCH_CONFIG", filepath.Join("config", "ransomwatch.toml"))
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", tomlPath, err)
		}
	}

	applyEnvOverrides(cfg)

	cfg.MonitorInterval = time.Duration(cfg.MonitorIntervalSeconds) * time.Second
	cfg.TrainingDuration = time.Duration(cfg.TrainingDurationSeconds) * time.Second
	cfg.RansomwareExtensions = LoadRansomwareExtensions(filepath.Join("config", "ransomware_extensions.json"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.MonitorIntervalSeconds = getIntEnv("MONITOR_INTERVAL_SECONDS", cfg.MonitorIntervalSeconds)
	cfg.TrainingDurationSeconds = getIntEnv("TRAINING_DURATION_SECONDS", cfg.TrainingDurationSeconds)
	cfg.MonitoredPath = getEnv("MONITORED_PATH", cfg.MonitoredPath)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.Backend = getEnv("DETECTION_BACKEND", cfg.Backend)

	t := &cfg.Thresholds
	t.DiskWriteRateMBps = getFloatEnv("DISK_WRITE_RATE_MBPS", t.DiskWriteRateMBps)
	t.DiskReadRateMBps = getFloatEnv("DISK_READ_RATE_MBPS", t.DiskReadRateMBps)
	t.SustainedCycles = getIntEnv("SUSTAINED_CYCLES", t.SustainedCycles)
	t.CooldownSeconds = getIntEnv("COOLDOWN_SECONDS", t.CooldownSeconds)
	t.ScoreFloor = getFloatEnv("SCORE_FLOOR", t.ScoreFloor)
	t.HighCPUProcessPercent = getFloatEnv("HIGH_CPU_PROCESS_PERCENT", t.HighCPUProcessPercent)
	t.HighMemoryProcessPercent = getFloatEnv("HIGH_MEMORY_PROCESS_PERCENT", t.HighMemoryProcessPercent)
	t.BrowserDampening = getFloatEnv("BROWSER_DAMPENING", t.BrowserDampening)
	t.MaintenanceDampening = getFloatEnv("MAINTENANCE_DAMPENING", t.MaintenanceDampening)
	t.DaytimeDampening = getFloatEnv("DAYTIME_DAMPENING", t.DaytimeDampening)
	t.WorkdayStartHour = getIntEnv("WORKDAY_START_HOUR", t.WorkdayStartHour)
	t.WorkdayEndHour = getIntEnv("WORKDAY_END_HOUR", t.WorkdayEndHour)
	t.MinTrainingSamples = getIntEnv("MIN_TRAINING_SAMPLES", t.MinTrainingSamples)
}

func (c *Config) validate() error {
	if c.MonitorIntervalSeconds <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %d", c.MonitorIntervalSeconds)
	}
	if c.TrainingDurationSeconds <= 0 {
		return fmt.Errorf("training duration must be positive, got %d", c.TrainingDurationSeconds)
	}
	if c.Thresholds.SustainedCycles < 1 {
		return fmt.Errorf("sustained cycles must be at least 1, got %d", c.Thresholds.SustainedCycles)
	}
	for name, factor := range map[string]float64{
		"browser_dampening":     c.Thresholds.BrowserDampening,
		"maintenance_dampening": c.Thresholds.MaintenanceDampening,
		"daytime_dampening":     c.Thresholds.DaytimeDampening,
	} {
		if factor <= 0 || factor > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, factor)
		}
	}
	if c.Backend != "isolation_forest" && c.Backend != "statistical" {
		return fmt.Errorf("unknown detection backend %q", c.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
