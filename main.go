package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ransomwatch/config"
	"ransomwatch/internal/analyzer"
	"ransomwatch/internal/delivery/cli"
	"ransomwatch/internal/domain"
	"ransomwatch/internal/infrastructure"
	"ransomwatch/internal/usecase"
)

const version = "1.0.0"

// trainingProgressInterval is how often the training window reports
const trainingProgressInterval = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logFile, err := infrastructure.SetupLogging(cfg.LogDir)
	if err != nil {
		logger = infrastructure.ConsoleLogger()
		logger.Warn().Err(err).Msg("file logging unavailable, console only")
	} else {
		defer logFile.Close()
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "monitor":
		runMonitor(cfg, logger)
	case "train":
		runTrain(cfg, logger)
	case "status":
		runStatus(cfg, logger)
	case "config":
		showConfiguration(cfg)
	case "version":
		showVersion()
	default:
		printUsage()
		os.Exit(1)
	}
}

// engine bundles the wired components of one run
type engine struct {
	detector      *usecase.DetectorService
	backend       analyzer.Analyzer
	storage       *infrastructure.FileStorage
	fileCollector *infrastructure.FileActivityCollector
	canaries      *infrastructure.CanaryDeployer
}

// buildEngine wires storage, collectors and the configured scoring
// backend into an untrained detector.
func buildEngine(cfg *config.Config, logger zerolog.Logger) (*engine, error) {
	storage, err := infrastructure.NewFileStorage(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}

	fileCollector := infrastructure.NewFileActivityCollector(
		cfg.MonitoredPath, cfg.RansomwareExtensions, logger)

	var canaries *infrastructure.CanaryDeployer
	if os.Getenv("DEPLOY_CANARIES") == "true" {
		canaries = infrastructure.NewCanaryDeployer(cfg.MonitoredPath, logger)
		if paths, err := canaries.Deploy(); err != nil {
			logger.Warn().Err(err).Msg("canary deployment skipped")
			canaries = nil
		} else {
			fileCollector.MarkCanaries(paths)
		}
	}

	collectors := usecase.Collectors{
		System: infrastructure.NewSystemMetricsCollector(),
		Files:  fileCollector,
		Processes: infrastructure.NewSuspiciousProcessCollector(
			cfg.Thresholds.HighCPUProcessPercent,
			cfg.Thresholds.HighMemoryProcessPercent,
		),
	}

	backend := buildBackend(cfg)
	detector := usecase.NewDetectorService(
		collectors, backend, storage, cfg.Thresholds, cfg.MonitorInterval, logger)

	return &engine{
		detector:      detector,
		backend:       backend,
		storage:       storage,
		fileCollector: fileCollector,
		canaries:      canaries,
	}, nil
}

func (e *engine) close() {
	e.fileCollector.Stop()
	if e.canaries != nil {
		e.canaries.Remove()
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("shutdown signal received, stopping after current cycle")
		cancel()
	}()

	return ctx, cancel
}

// train runs the baseline window with a periodic progress line
func train(ctx context.Context, e *engine, cfg *config.Config, reporter *cli.Reporter, logger zerolog.Logger) error {
	logger.Info().Dur("duration", cfg.TrainingDuration).Msg("entering training mode")

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go func() {
		start := time.Now()
		ticker := time.NewTicker(trainingProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				reporter.PrintTrainingProgress(time.Since(start), cfg.TrainingDuration)
			}
		}
	}()

	return e.detector.Train(ctx, cfg.TrainingDuration)
}

// runMonitor trains a baseline (or restores a saved model) and then
// runs the detection loop until interrupted. Cancellation is honored
// between cycles so the current cycle's I/O always completes.
func runMonitor(cfg *config.Config, logger zerolog.Logger) {
	logger.Info().Str("version", version).Msg("ransomwatch starting")

	if err := infrastructure.CleanupOldLogs(cfg.LogDir, 7*24*time.Hour); err != nil {
		logger.Warn().Err(err).Msg("log cleanup failed")
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	e, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}
	defer e.close()

	if err := e.fileCollector.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("file activity collection disabled")
	}

	reporter := cli.NewReporter()

	if !tryRestoreModel(e, logger) {
		if err := train(ctx, e, cfg, reporter, logger); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("training interrupted")
				return
			}
			logger.Fatal().Err(err).Msg("baseline training failed")
		}
	}

	logger.Info().Msg("entering detection mode")

	ticker := time.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("ransomwatch stopped")
			return
		case <-ticker.C:
			result, err := e.detector.Detect(ctx)
			if err != nil {
				// A failed cycle is reported but never kills the loop
				logger.Error().Err(err).Msg("detection cycle failed")
				continue
			}
			reporter.PrintResult(result)
		}
	}
}

// runTrain runs the baseline window, saves the model and exits
func runTrain(cfg *config.Config, logger zerolog.Logger) {
	ctx, cancel := signalContext(logger)
	defer cancel()

	e, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}
	defer e.close()

	if err := e.fileCollector.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("file activity collection disabled")
	}

	if err := train(ctx, e, cfg, cli.NewReporter(), logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("training interrupted")
			return
		}
		logger.Fatal().Err(err).Msg("baseline training failed")
	}

	logger.Info().Msg("training complete, model saved; run 'ransomwatch monitor' with LOAD_SAVED_MODEL=true")
}

// runStatus reports the saved model's state without starting monitoring
func runStatus(cfg *config.Config, logger zerolog.Logger) {
	e, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize engine")
	}
	defer e.close()

	if err := e.storage.LoadModel("model_latest.json", e.backend); err != nil {
		logger.Info().Err(err).Msg("no usable model snapshot found")
	} else {
		var baseline domain.BaselineStatistics
		if err := e.storage.LoadModel("baseline_latest.json", &baseline); err != nil {
			logger.Warn().Err(err).Msg("baseline snapshot missing")
		}
		if err := e.detector.RestoreFromSnapshot(baseline); err != nil {
			logger.Warn().Err(err).Msg("saved model failed validation")
		}
	}

	cli.NewReporter().PrintStatus(e.detector.GetStatus())
}

// buildBackend selects the scoring backend from configuration
func buildBackend(cfg *config.Config) analyzer.Analyzer {
	if cfg.Backend == "statistical" {
		return analyzer.NewStatisticalAnalyzer(cfg.StatisticalZLimit, cfg.Thresholds.MinTrainingSamples)
	}
	return analyzer.NewIsolationForest(analyzer.ForestOptions{
		Estimators:    cfg.ForestEstimators,
		SubsampleSize: cfg.ForestSubsampleSize,
		Contamination: cfg.ForestContamination,
		Seed:          cfg.ForestSeed,
		MinSamples:    cfg.Thresholds.MinTrainingSamples,
	})
}

// tryRestoreModel loads a previously saved model snapshot when
// LOAD_SAVED_MODEL=true, skipping the training window on success.
func tryRestoreModel(e *engine, logger zerolog.Logger) bool {
	if os.Getenv("LOAD_SAVED_MODEL") != "true" {
		return false
	}

	if err := e.storage.LoadModel("model_latest.json", e.backend); err != nil {
		logger.Warn().Err(err).Msg("saved model unavailable, training fresh")
		return false
	}
	var baseline domain.BaselineStatistics
	if err := e.storage.LoadModel("baseline_latest.json", &baseline); err != nil {
		logger.Warn().Err(err).Msg("baseline snapshot unavailable, training fresh")
		return false
	}
	if err := e.detector.RestoreFromSnapshot(baseline); err != nil {
		logger.Warn().Err(err).Msg("saved model failed validation, training fresh")
		return false
	}

	logger.Info().Msg("restored trained model from snapshot")
	return true
}

// showConfiguration displays the resolved configuration
func showConfiguration(cfg *config.Config) {
	fmt.Println("Configuration Summary")
	fmt.Println("==================================================")
	fmt.Printf("Monitor interval:        %s\n", cfg.MonitorInterval)
	fmt.Printf("Training duration:       %s\n", cfg.TrainingDuration)
	fmt.Printf("Monitored path:          %s\n", cfg.MonitoredPath)
	fmt.Printf("Data directory:          %s\n", cfg.DataDir)
	fmt.Printf("Scoring backend:         %s\n", cfg.Backend)
	fmt.Println()
	t := cfg.Thresholds
	fmt.Println("Thresholds:")
	fmt.Printf("  Disk write rate:       %.1f MB/s\n", t.DiskWriteRateMBps)
	fmt.Printf("  Disk read rate:        %.1f MB/s\n", t.DiskReadRateMBps)
	fmt.Printf("  Sustained cycles:      %d\n", t.SustainedCycles)
	fmt.Printf("  Cooldown:              %ds\n", t.CooldownSeconds)
	fmt.Printf("  Score floor:           %.2f\n", t.ScoreFloor)
	fmt.Printf("  High CPU process:      %.1f%%\n", t.HighCPUProcessPercent)
	fmt.Printf("  High memory process:   %.1f%%\n", t.HighMemoryProcessPercent)
	fmt.Println()
	fmt.Println("Dampening factors:")
	fmt.Printf("  Browser active:        %.2f\n", t.BrowserDampening)
	fmt.Printf("  OS maintenance:        %.2f\n", t.MaintenanceDampening)
	fmt.Printf("  Working hours (%02d-%02d): %.2f\n", t.WorkdayStartHour, t.WorkdayEndHour, t.DaytimeDampening)
	fmt.Println()
	fmt.Printf("Ransomware extensions monitored: %d\n", len(cfg.RansomwareExtensions))
}

// showVersion displays version information
func showVersion() {
	fmt.Printf("ransomwatch v%s\n", version)
	fmt.Println("Host-Based Ransomware Behavioral Anomaly Detection")
	fmt.Println()
	fmt.Println("Features:")
	fmt.Println("  - Isolation forest anomaly scoring on system/process/file features")
	fmt.Println("  - Sustained disk-write hysteresis detection")
	fmt.Println("  - Context-aware score dampening (browsers, maintenance, time of day)")
	fmt.Println("  - Alert cooldown suppression")
	fmt.Println("  - Canary decoy files and file entropy probing")
	fmt.Println("  - Baseline training with outlier-free statistics")
}

// printUsage displays usage information
func printUsage() {
	fmt.Println("ransomwatch - Host-Based Ransomware Behavioral Anomaly Detection")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ransomwatch monitor      - Train a baseline, then start detection")
	fmt.Println("  ransomwatch train        - Train a baseline, save the model, exit")
	fmt.Println("  ransomwatch status       - Report the saved model's state")
	fmt.Println("  ransomwatch config       - Show resolved configuration")
	fmt.Println("  ransomwatch version      - Show version information")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RANSOMWATCH_CONFIG       - Path to TOML config (default config/ransomwatch.toml)")
	fmt.Println("  TRAINING_DURATION_SECONDS, MONITOR_INTERVAL_SECONDS, MONITORED_PATH, ...")
	fmt.Println("  LOAD_SAVED_MODEL=true    - Reuse data/models/model_latest.json instead of training")
	fmt.Println("  DEPLOY_CANARIES=true     - Plant decoy files in the monitored path")
}
