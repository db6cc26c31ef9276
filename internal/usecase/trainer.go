package usecase

import (
	"context"
	"time"

	"ransomwatch/internal/domain"
)

// Train runs the baseline observation window: one bundle per interval
// for the given duration. Every collected feature vector feeds the
// scoring backend, while only samples whose raw write AND read rates
// sit below the anomaly thresholds contribute to the baseline
// statistics, keeping training-time outliers out of the baseline.
//
// A failed collection cycle is logged and skipped without resetting the
// duration clock; zero collected samples or non-finite statistics fail
// with an InvalidTrainingDataError and leave the engine Untrained.
func (s *DetectorService) Train(ctx context.Context, duration time.Duration) error {
	start := s.now()
	deadline := start.Add(duration)

	s.logger.Info().Dur("duration", duration).Msg("starting baseline training window")

	var features []domain.FeatureVector
	var normalWriteRates []float64
	skipped := 0

	for s.now().Before(deadline) {
		bundle, err := s.collectBundle(ctx)
		if err != nil {
			// No retry: this cycle's sample is simply missing
			skipped++
			s.logger.Warn().Err(err).Msg("training cycle skipped")
		} else {
			features = append(features, domain.ExtractFeatures(bundle, s.thresholds.HighCPUProcessPercent))

			if bundle.System.DiskWriteRate < s.thresholds.DiskWriteRateMBps &&
				bundle.System.DiskReadRate < s.thresholds.DiskReadRateMBps {
				normalWriteRates = append(normalWriteRates, bundle.System.DiskWriteRate)
			}

			if err := s.storage.SaveMetrics(bundle); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}

	if len(features) == 0 {
		return &domain.InvalidTrainingDataError{Reason: "no samples collected in training window"}
	}

	baseline, err := domain.ComputeBaseline(normalWriteRates)
	if err != nil {
		return err
	}

	s.logger.Info().Int("samples", len(features)).Int("skipped", skipped).
		Int("baseline_samples", baseline.SampleCount).Msg("fitting scoring backend")

	if err := s.backend.Train(features); err != nil {
		return err
	}

	metadata := map[string]interface{}{
		"start_time":        start.Format(time.RFC3339),
		"duration_seconds":  int(duration.Seconds()),
		"samples_collected": len(features),
		"samples_skipped":   skipped,
		"feature_dimension": domain.FeatureDimension,
		"baseline":          baseline,
		"timestamp":         s.now().Format(time.RFC3339),
	}
	if err := s.storage.SaveTrainingData(features, metadata); err != nil {
		return err
	}
	if err := s.storage.SaveModel(s.backend, "model_latest.json"); err != nil {
		return err
	}
	// The baseline travels with the model: a restored engine without it
	// would report zero z-scores for the whole run
	if err := s.storage.SaveModel(baseline, "baseline_latest.json"); err != nil {
		return err
	}

	s.baseline = baseline
	s.trained = true

	s.logger.Info().Float64("mean_write_rate", baseline.MeanWriteRate).
		Float64("std_write_rate", baseline.StdWriteRate).
		Msg("baseline training completed")
	return nil
}
