package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomwatch/config"
	"ransomwatch/internal/domain"
)

// stubSystemCollector returns a fixed sample or error
type stubSystemCollector struct {
	sample domain.SystemSample
	err    error
}

func (s *stubSystemCollector) Collect(ctx context.Context) (domain.SystemSample, error) {
	return s.sample, s.err
}

type stubFileCollector struct {
	events []domain.FileEvent
	err    error
}

func (s *stubFileCollector) Collect(ctx context.Context) ([]domain.FileEvent, error) {
	return s.events, s.err
}

type stubProcessCollector struct {
	processes []domain.ProcessSample
	err       error
}

func (s *stubProcessCollector) Collect(ctx context.Context) ([]domain.ProcessSample, error) {
	return s.processes, s.err
}

// stubBackend is a canned scoring backend
type stubBackend struct {
	result   domain.AnalysisResult
	err      error
	trained  bool
	trainErr error
}

func (b *stubBackend) Train(features []domain.FeatureVector) error {
	if b.trainErr != nil {
		return b.trainErr
	}
	b.trained = true
	return nil
}

func (b *stubBackend) Analyze(vector domain.FeatureVector) (*domain.AnalysisResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := b.result
	if r.Details == nil {
		r.Details = map[string]interface{}{}
	}
	return &r, nil
}

func (b *stubBackend) IsTrained() bool { return b.trained }
func (b *stubBackend) Dimension() int  { return domain.FeatureDimension }

// memoryStorage records persistence calls without touching disk
type memoryStorage struct {
	mu           sync.Mutex
	metricsSaved int
	modelNames   []string
	trainingRuns int
	saveErr      error
}

func (m *memoryStorage) SaveMetrics(bundle *domain.MetricBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.metricsSaved++
	return nil
}

func (m *memoryStorage) SaveModel(model interface{}, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelNames = append(m.modelNames, name)
	return nil
}

func (m *memoryStorage) LoadModel(name string, into interface{}) error {
	return &domain.PersistenceError{Op: "read", Path: name, Err: errors.New("not found")}
}

func (m *memoryStorage) SaveTrainingData(features []domain.FeatureVector, metadata map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingRuns++
	return nil
}

// fakeClock steps forward a fixed amount per call to Now
type fakeClock struct {
	current time.Time
	step    time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

func testThresholds() config.Thresholds {
	t := config.DefaultThresholds()
	t.DiskWriteRateMBps = 20.0
	t.SustainedCycles = 5
	t.CooldownSeconds = 300
	return t
}

// newTestService wires a trained engine with canned inputs. The fake
// clock starts at 22:00 so the daytime dampening factor stays inert
// unless a test opts in.
func newTestService(system *stubSystemCollector, backend *stubBackend, clockStep time.Duration) (*DetectorService, *fakeClock, *memoryStorage) {
	storage := &memoryStorage{}
	collectors := Collectors{
		System:    system,
		Files:     &stubFileCollector{},
		Processes: &stubProcessCollector{},
	}

	svc := NewDetectorService(
		collectors, backend, storage, testThresholds(), time.Second, zerolog.Nop())

	clock := &fakeClock{
		current: time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC),
		step:    clockStep,
	}
	svc.now = clock.Now
	svc.trained = backend.trained

	return svc, clock, storage
}

func TestDetect_RefusesUntrained(t *testing.T) {
	backend := &stubBackend{}
	svc, _, _ := newTestService(&stubSystemCollector{}, backend, 0)
	svc.trained = false

	_, err := svc.Detect(context.Background())
	require.ErrorIs(t, err, domain.ErrNotTrained)
}

// Sustained normal activity: no cycle alerts and the breach counter
// stays at zero.
func TestDetect_NormalActivity(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, _, _ := newTestService(system, backend, time.Second)

	for cycle := 0; cycle < 10; cycle++ {
		result, err := svc.Detect(context.Background())
		require.NoError(t, err)
		assert.False(t, result.IsAnomaly, "cycle %d alerted on normal activity", cycle)
		assert.Equal(t, "normal", result.Details["cycle_state"])
	}
	assert.Equal(t, 0, svc.hysteresis.BreachCount())
}

// Sustained breach with cooldown: the alert fires on the fifth
// consecutive breach, later breaches are suppressed but still report
// their score, and the window expires relative to the emitted alert.
func TestDetect_SustainedBreachAndCooldown(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 50.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, clock, _ := newTestService(system, backend, time.Second)

	for cycle := 1; cycle <= 4; cycle++ {
		result, err := svc.Detect(context.Background())
		require.NoError(t, err)
		assert.False(t, result.IsAnomaly, "cycle %d alerted before the sustained count", cycle)
		assert.Equal(t, cycle, result.Details["hysteresis_breaches"])
	}

	alert, err := svc.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, alert.IsAnomaly, "fifth consecutive breach did not alert")
	assert.Equal(t, "alerting", alert.Details["cycle_state"])
	assert.Equal(t, true, alert.Details["sustained_write_breach"])

	for cycle := 6; cycle <= 10; cycle++ {
		result, err := svc.Detect(context.Background())
		require.NoError(t, err)
		assert.False(t, result.IsAnomaly, "cycle %d not suppressed inside cooldown", cycle)
		assert.Equal(t, "suppressed", result.Details["cycle_state"])
		assert.Equal(t, -0.4, result.Score, "suppressed cycle must report its undampened score")
	}

	// Jump past the cooldown window; the continuing breach alerts again
	clock.current = clock.current.Add(301 * time.Second)
	again, err := svc.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, again.IsAnomaly, "breach after cooldown expiry stayed suppressed")
}

// Dampening: an active browser shrinks an emitted alert's score but
// never flips the verdict.
func TestDetect_BrowserDampening(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{IsAnomaly: true, RawScore: 3.0}}
	svc, _, _ := newTestService(system, backend, time.Second)
	svc.collectors.Processes = &stubProcessCollector{processes: []domain.ProcessSample{
		{PID: 10, Name: "firefox", CPUPercent: 12},
	}}

	result, err := svc.Detect(context.Background())
	require.NoError(t, err)

	assert.True(t, result.IsAnomaly, "dampening flipped the verdict")
	assert.Less(t, result.Score, 3.0, "score was not dampened")
	assert.InDelta(t, 2.1, result.Score, 1e-9)

	signals, ok := result.Details["context_information"].(domain.ContextSignals)
	require.True(t, ok)
	assert.True(t, signals.BrowserActive)
}

// The sustained-breach path is independent of dampening: an active
// browser adjusts the emitted score but cannot delay or cancel the
// fifth-cycle alert.
func TestDetect_SustainedBreachWithBrowserActive(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 50.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, _, _ := newTestService(system, backend, time.Second)
	svc.collectors.Processes = &stubProcessCollector{processes: []domain.ProcessSample{
		{PID: 10, Name: "firefox", CPUPercent: 12},
	}}

	var alert *domain.DetectionResult
	for cycle := 1; cycle <= 5; cycle++ {
		result, err := svc.Detect(context.Background())
		require.NoError(t, err)
		alert = result
		assert.Equal(t, cycle == 5, result.IsAnomaly, "cycle %d verdict wrong", cycle)
	}

	// Browser dampening moved the emitted score toward zero
	assert.InDelta(t, -0.4*0.7, alert.Score, 1e-9)
}

// Score floor: a sufficiently low raw score alerts even when the
// backend's own verdict and the sustained path both stay quiet.
func TestDetect_ScoreFloor(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{IsAnomaly: false, RawScore: -0.9}}
	svc, _, _ := newTestService(system, backend, time.Second)

	result, err := svc.Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, result.IsAnomaly)
}

// A failed cycle must leave the hysteresis counter exactly where the
// previous cycle left it.
func TestDetect_FailedCycleLeavesStateUntouched(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 50.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, _, _ := newTestService(system, backend, time.Second)

	for cycle := 0; cycle < 3; cycle++ {
		_, err := svc.Detect(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 3, svc.hysteresis.BreachCount())

	backend.err = errors.New("backend unavailable")
	_, err := svc.Detect(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, svc.hysteresis.BreachCount(), "failed cycle mutated the breach counter")

	backend.err = nil
	_, err = svc.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, svc.hysteresis.BreachCount())
}

// A CollectionError degrades its section to empty instead of failing
// the cycle; any other collector error propagates.
func TestDetect_CollectionErrorDegrades(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	backend := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, _, _ := newTestService(system, backend, time.Second)
	svc.collectors.Files = &stubFileCollector{
		err: &domain.CollectionError{Collector: "files", Err: errors.New("watcher down")},
	}

	result, err := svc.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.FileActivities)

	svc.collectors.Files = &stubFileCollector{err: errors.New("disk on fire")}
	_, err = svc.Detect(context.Background())
	require.Error(t, err, "non-degradable error must propagate")
}

func TestTrain_HappyPath(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	backend := &stubBackend{}
	storage := &memoryStorage{}

	svc := NewDetectorService(Collectors{
		System:    system,
		Files:     &stubFileCollector{},
		Processes: &stubProcessCollector{},
	}, backend, storage, testThresholds(), time.Millisecond, zerolog.Nop())

	err := svc.Train(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, svc.IsTrained())
	assert.True(t, backend.trained)
	assert.Equal(t, []string{"model_latest.json", "baseline_latest.json"}, storage.modelNames)
	assert.Equal(t, 1, storage.trainingRuns)
	assert.Greater(t, storage.metricsSaved, 0)
	assert.Equal(t, 5.0, svc.baseline.MeanWriteRate)
}

// Zero collected samples fail training and leave the engine untrained
func TestTrain_NoSamples(t *testing.T) {
	system := &stubSystemCollector{err: errors.New("sensors offline")}
	backend := &stubBackend{}
	storage := &memoryStorage{}

	svc := NewDetectorService(Collectors{System: system}, backend, storage,
		testThresholds(), time.Millisecond, zerolog.Nop())

	// A plain error is not degradable, so every cycle is skipped
	err := svc.Train(context.Background(), 20*time.Millisecond)

	var invalidErr *domain.InvalidTrainingDataError
	require.True(t, errors.As(err, &invalidErr))
	assert.False(t, svc.IsTrained())
}

// Outlier filtering: training samples breaching the raw write threshold
// feed the backend but stay out of the baseline statistics.
func TestTrain_OutliersExcludedFromBaseline(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 500.0}}
	backend := &stubBackend{}
	storage := &memoryStorage{}

	svc := NewDetectorService(Collectors{
		System:    system,
		Files:     &stubFileCollector{},
		Processes: &stubProcessCollector{},
	}, backend, storage, testThresholds(), time.Millisecond, zerolog.Nop())

	err := svc.Train(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.baseline.SampleCount, "outlier samples leaked into the baseline")
	assert.True(t, backend.trained, "outlier samples must still train the backend")
}

func TestTrain_Cancellation(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}
	svc := NewDetectorService(Collectors{
		System:    system,
		Files:     &stubFileCollector{},
		Processes: &stubProcessCollector{},
	}, &stubBackend{}, &memoryStorage{}, testThresholds(), 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Train(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, svc.IsTrained())
}

func TestRestoreFromSnapshot(t *testing.T) {
	system := &stubSystemCollector{sample: domain.SystemSample{DiskWriteRate: 5.0}}

	untrained := &stubBackend{}
	svc, _, _ := newTestService(system, untrained, time.Second)
	svc.trained = false
	require.ErrorIs(t, svc.RestoreFromSnapshot(domain.BaselineStatistics{}), domain.ErrNotTrained)
	assert.False(t, svc.IsTrained())

	trained := &stubBackend{trained: true, result: domain.AnalysisResult{RawScore: -0.4}}
	svc, _, _ = newTestService(system, trained, time.Second)
	svc.trained = false

	baseline := domain.BaselineStatistics{MeanWriteRate: 4, StdWriteRate: 1, SampleCount: 60}
	require.NoError(t, svc.RestoreFromSnapshot(baseline))
	assert.True(t, svc.IsTrained())
	assert.Equal(t, baseline, svc.baseline)

	// The restored baseline feeds the per-cycle z-score diagnostics
	result, err := svc.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Details["write_rate_z_score"])
}

func TestGetStatus(t *testing.T) {
	backend := &stubBackend{trained: true}
	svc, _, _ := newTestService(&stubSystemCollector{}, backend, time.Second)

	status := svc.GetStatus()
	assert.Equal(t, true, status["is_trained"])
	assert.Equal(t, 3, status["collector_count"])
	assert.Equal(t, true, status["backend_trained"])
}

func TestAnalyzeProcessPatterns_BrowserHeadroom(t *testing.T) {
	backend := &stubBackend{trained: true}
	svc, _, _ := newTestService(&stubSystemCollector{}, backend, time.Second)

	processes := []domain.ProcessSample{
		{PID: 1, Name: "chrome", CPUPercent: 120, MemoryPercent: 10},  // within 1.5x headroom
		{PID: 2, Name: "cryptor", CPUPercent: 110, MemoryPercent: 10}, // above stretched bar
		{PID: 3, Name: "systemd", CPUPercent: 99, MemoryPercent: 99},  // whitelisted
	}

	patterns := svc.analyzeProcessPatterns(processes, true)
	highCPU := patterns["high_cpu_usage"].([]map[string]interface{})

	require.Len(t, highCPU, 1)
	assert.Equal(t, "cryptor", highCPU[0]["name"])
}
