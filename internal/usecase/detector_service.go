package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ransomwatch/config"
	"ransomwatch/internal/analyzer"
	"ransomwatch/internal/domain"
	"ransomwatch/internal/repository"
)

// Collectors bundles the per-source metric collectors consumed by the
// detection engine, one Collect call per cycle each.
type Collectors struct {
	System    repository.SystemCollector
	Files     repository.FileCollector
	Processes repository.ProcessCollector
}

// Count returns how many collectors are wired
func (c Collectors) Count() int {
	n := 0
	if c.System != nil {
		n++
	}
	if c.Files != nil {
		n++
	}
	if c.Processes != nil {
		n++
	}
	return n
}

// DetectorService orchestrates one detection cycle: pull metrics, build
// the feature vector, run the sustained-I/O hysteresis path and the
// scoring backend, OR the verdicts, then apply contextual dampening and
// cooldown suppression.
//
// The service is single-threaded by design: one cycle runs to
// completion before the next begins, and the hysteresis/cooldown state
// is owned exclusively by this instance. The fallible steps (collect,
// extract, analyze) run before any stateful mutation, so a failed cycle
// leaves the trackers exactly as the previous cycle did.
type DetectorService struct {
	collectors Collectors
	backend    analyzer.Analyzer
	storage    repository.Storage
	thresholds config.Thresholds
	interval   time.Duration

	hysteresis *domain.HysteresisTracker
	cooldown   *domain.CooldownGate
	dampener   *domain.ContextualDampener
	baseline   domain.BaselineStatistics

	trained bool
	logger  zerolog.Logger
	now     func() time.Time
}

// NewDetectorService creates an untrained engine. The engine refuses to
// detect until Train completes or a validated snapshot is restored.
func NewDetectorService(
	collectors Collectors,
	backend analyzer.Analyzer,
	storage repository.Storage,
	thresholds config.Thresholds,
	interval time.Duration,
	logger zerolog.Logger,
) *DetectorService {
	return &DetectorService{
		collectors: collectors,
		backend:    backend,
		storage:    storage,
		thresholds: thresholds,
		interval:   interval,
		hysteresis: domain.NewHysteresisTracker(),
		cooldown:   domain.NewCooldownGate(),
		dampener: domain.NewContextualDampener(domain.DampeningFactors{
			Browser:          thresholds.BrowserDampening,
			Maintenance:      thresholds.MaintenanceDampening,
			Daytime:          thresholds.DaytimeDampening,
			WorkdayStartHour: thresholds.WorkdayStartHour,
			WorkdayEndHour:   thresholds.WorkdayEndHour,
		}),
		logger: logger,
		now:    time.Now,
	}
}

// IsTrained reports whether the engine reached the Ready state
func (s *DetectorService) IsTrained() bool {
	return s.trained
}

// Detect runs one detection cycle. Calling before training completes
// fails with domain.ErrNotTrained. A failed cycle propagates its error
// and leaves the hysteresis counter and cooldown timestamp untouched.
func (s *DetectorService) Detect(ctx context.Context) (*domain.DetectionResult, error) {
	if !s.trained {
		return nil, domain.ErrNotTrained
	}

	bundle, err := s.collectBundle(ctx)
	if err != nil {
		return nil, err
	}

	features := domain.ExtractFeatures(bundle, s.thresholds.HighCPUProcessPercent)
	analysis, err := s.backend.Analyze(features)
	if err != nil {
		return nil, err
	}

	// No failure paths beyond this point: tracker mutations are safe now
	sustained := s.hysteresis.Update(
		bundle.System.DiskWriteRate,
		s.thresholds.DiskWriteRateMBps,
		s.thresholds.SustainedCycles,
	)

	signals := s.contextSignals(bundle.Processes)

	// The score floor tolerates backends whose binary verdict is noisy:
	// a sufficiently low raw score is anomalous on its own.
	rawAnomaly := sustained || analysis.IsAnomaly || analysis.RawScore < s.thresholds.ScoreFloor

	now := s.now()
	cooldownWindow := time.Duration(s.thresholds.CooldownSeconds) * time.Second

	score := analysis.RawScore
	isAnomaly := false
	cycleState := "normal"

	if rawAnomaly {
		if s.cooldown.ShouldSuppress(now, cooldownWindow) {
			// Suppressed: verdict withheld, undampened score still
			// reported for observability. The cooldown timer is NOT
			// refreshed here; only emitted alerts refresh it.
			cycleState = "suppressed"
		} else {
			isAnomaly = true
			cycleState = "alerting"
			score = s.dampener.Dampen(score, signals)
			s.cooldown.RecordAlert(now)
		}
	}

	details := make(map[string]interface{}, len(analysis.Details)+6)
	for k, v := range analysis.Details {
		details[k] = v
	}
	details["cycle_state"] = cycleState
	details["hysteresis_breaches"] = s.hysteresis.BreachCount()
	details["sustained_write_breach"] = sustained
	details["context_information"] = signals
	details["write_rate_z_score"] = s.baseline.ZScore(bundle.System.DiskWriteRate)
	details["process_patterns"] = s.analyzeProcessPatterns(bundle.Processes, signals.BrowserActive)

	result := &domain.DetectionResult{
		ID:                  uuid.NewString(),
		IsAnomaly:           isAnomaly,
		Score:               score,
		Metrics:             bundle.System,
		FileActivities:      bundle.Files,
		SuspiciousProcesses: bundle.Processes,
		Timestamp:           now,
		Details:             details,
	}

	if isAnomaly {
		s.logger.Warn().Float64("score", score).
			Float64("write_rate", bundle.System.DiskWriteRate).
			Int("hysteresis_breaches", s.hysteresis.BreachCount()).
			Msg("anomalous activity detected")
	}

	return result, nil
}

// RestoreFromSnapshot moves the engine to Ready using an already
// trained backend (e.g. loaded from storage) and its baseline. The
// backend is probed with a zero vector of its own dimension first; a
// snapshot that cannot score is rejected.
func (s *DetectorService) RestoreFromSnapshot(baseline domain.BaselineStatistics) error {
	if !s.backend.IsTrained() {
		return domain.ErrNotTrained
	}
	probe := make(domain.FeatureVector, s.backend.Dimension())
	if _, err := s.backend.Analyze(probe); err != nil {
		return err
	}

	s.baseline = baseline
	s.trained = true
	s.logger.Info().Int("dimension", s.backend.Dimension()).
		Msg("engine restored from model snapshot")
	return nil
}

// collectBundle gathers all sections for one cycle. A CollectionError
// from an individual collector degrades its section to empty; anything
// else propagates untouched.
func (s *DetectorService) collectBundle(ctx context.Context) (*domain.MetricBundle, error) {
	bundle := &domain.MetricBundle{
		Files:     []domain.FileEvent{},
		Processes: []domain.ProcessSample{},
	}

	system, err := s.collectors.System.Collect(ctx)
	if err != nil {
		if !s.degrade(err, "system") {
			return nil, err
		}
		system = domain.SystemSample{Timestamp: s.now()}
	}
	bundle.System = system

	if s.collectors.Files != nil {
		files, err := s.collectors.Files.Collect(ctx)
		if err != nil {
			if !s.degrade(err, "files") {
				return nil, err
			}
		} else if files != nil {
			bundle.Files = files
		}
	}

	if s.collectors.Processes != nil {
		procs, err := s.collectors.Processes.Collect(ctx)
		if err != nil {
			if !s.degrade(err, "processes") {
				return nil, err
			}
		} else if procs != nil {
			bundle.Processes = procs
		}
	}

	return bundle, nil
}

// degrade reports whether err is a per-collector CollectionError that
// should empty the section instead of failing the cycle.
func (s *DetectorService) degrade(err error, section string) bool {
	var ce *domain.CollectionError
	if errors.As(err, &ce) {
		s.logger.Warn().Err(ce.Err).Str("section", section).
			Msg("collector failed, section degraded to empty")
		return true
	}
	return false
}

// contextSignals derives the ambient conditions used for dampening
func (s *DetectorService) contextSignals(processes []domain.ProcessSample) domain.ContextSignals {
	signals := domain.ContextSignals{HourOfDay: s.now().Hour()}
	for _, p := range processes {
		if config.IsBrowserProcess(p.Name) {
			signals.BrowserActive = true
		}
		if config.IsMaintenanceProcess(p.Name) {
			signals.MaintenanceActive = true
		}
	}
	return signals
}

// analyzeProcessPatterns summarizes high-resource processes with
// browser-aware threshold stretching: active browsers raise the CPU and
// memory bars by 1.2x for everyone and get 1.5x headroom themselves.
func (s *DetectorService) analyzeProcessPatterns(processes []domain.ProcessSample, browserActive bool) map[string]interface{} {
	cpuThreshold := s.thresholds.HighCPUProcessPercent
	memThreshold := s.thresholds.HighMemoryProcessPercent
	if browserActive {
		cpuThreshold *= 1.2
		memThreshold *= 1.2
	}

	highCPU := make([]map[string]interface{}, 0)
	highMemory := make([]map[string]interface{}, 0)

	for _, p := range processes {
		if config.IsSystemProcess(p.Name) {
			continue
		}
		if config.IsBrowserProcess(p.Name) && p.CPUPercent <= cpuThreshold*1.5 {
			continue
		}

		if p.CPUPercent > cpuThreshold {
			highCPU = append(highCPU, map[string]interface{}{
				"name":        p.Name,
				"pid":         p.PID,
				"cpu_percent": p.CPUPercent,
			})
		}
		if p.MemoryPercent > memThreshold {
			highMemory = append(highMemory, map[string]interface{}{
				"name":           p.Name,
				"pid":            p.PID,
				"memory_percent": p.MemoryPercent,
			})
		}
	}

	return map[string]interface{}{
		"high_cpu_usage":    highCPU,
		"high_memory_usage": highMemory,
	}
}
