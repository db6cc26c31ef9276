package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ransomwatch/internal/domain"
)

// FileStorage persists metrics, training data and model snapshots as
// JSON under a base directory:
//
//	data/metrics/   one record per detection cycle, append-only
//	data/models/    model snapshots plus model_info.json
//	data/training/  training matrices with metadata
type FileStorage struct {
	basePath     string
	metricsPath  string
	modelsPath   string
	trainingPath string
	logger       zerolog.Logger
}

// NewFileStorage creates the directory layout under basePath
func NewFileStorage(basePath string, logger zerolog.Logger) (*FileStorage, error) {
	fs := &FileStorage{
		basePath:     basePath,
		metricsPath:  filepath.Join(basePath, "metrics"),
		modelsPath:   filepath.Join(basePath, "models"),
		trainingPath: filepath.Join(basePath, "training"),
		logger:       logger,
	}

	for _, dir := range []string{fs.basePath, fs.metricsPath, fs.modelsPath, fs.trainingPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &domain.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	logger.Info().Str("path", fs.basePath).Msg("storage initialized")
	return fs, nil
}

// SaveMetrics appends one cycle's bundle as a new file. The UUID suffix
// keeps records unique even when several cycles share a second.
func (fs *FileStorage) SaveMetrics(bundle *domain.MetricBundle) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("metrics_%s_%s.json", timestamp, uuid.NewString()[:8])
	path := filepath.Join(fs.metricsPath, filename)

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "marshal", Path: path, Err: err}
	}

	// O_EXCL guarantees append-only: an existing record is never overwritten
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &domain.PersistenceError{Op: "create", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return &domain.PersistenceError{Op: "write", Path: path, Err: err}
	}

	return nil
}

// SaveModel writes a JSON snapshot of the trained backend plus a
// model_info.json sidecar describing it.
func (fs *FileStorage) SaveModel(model interface{}, name string) error {
	path := filepath.Join(fs.modelsPath, name)

	data, err := json.Marshal(model)
	if err != nil {
		return &domain.PersistenceError{Op: "marshal", Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &domain.PersistenceError{Op: "write", Path: path, Err: err}
	}

	info := map[string]interface{}{
		"saved_at": time.Now().Format(time.RFC3339),
		"path":     path,
		"type":     fmt.Sprintf("%T", model),
	}
	infoData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "marshal", Path: path, Err: err}
	}
	infoPath := filepath.Join(fs.modelsPath, "model_info.json")
	if err := os.WriteFile(infoPath, infoData, 0o644); err != nil {
		return &domain.PersistenceError{Op: "write", Path: infoPath, Err: err}
	}

	fs.logger.Info().Str("path", path).Msg("model saved")
	return nil
}

// LoadModel restores a model snapshot into the provided backend value
func (fs *FileStorage) LoadModel(name string, into interface{}) error {
	path := filepath.Join(fs.modelsPath, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.PersistenceError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, into); err != nil {
		return &domain.PersistenceError{Op: "unmarshal", Path: path, Err: err}
	}

	fs.logger.Info().Str("path", path).Msg("model loaded")
	return nil
}

// SaveTrainingData writes the collected feature matrix and its metadata
func (fs *FileStorage) SaveTrainingData(features []domain.FeatureVector, metadata map[string]interface{}) error {
	timestamp := time.Now().Format("20060102_150405")

	dataPath := filepath.Join(fs.trainingPath, fmt.Sprintf("training_data_%s.json", timestamp))
	data, err := json.Marshal(features)
	if err != nil {
		return &domain.PersistenceError{Op: "marshal", Path: dataPath, Err: err}
	}
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return &domain.PersistenceError{Op: "write", Path: dataPath, Err: err}
	}

	metaPath := filepath.Join(fs.trainingPath, fmt.Sprintf("metadata_%s.json", timestamp))
	metaData, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return &domain.PersistenceError{Op: "marshal", Path: metaPath, Err: err}
	}
	if err := os.WriteFile(metaPath, metaData, 0o644); err != nil {
		return &domain.PersistenceError{Op: "write", Path: metaPath, Err: err}
	}

	fs.logger.Info().Str("data", dataPath).Str("metadata", metaPath).
		Int("samples", len(features)).Msg("training data saved")
	return nil
}

// CleanupOldMetrics removes metric records older than maxAge
func (fs *FileStorage) CleanupOldMetrics(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(fs.metricsPath)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "readdir", Path: fs.metricsPath, Err: err}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(fs.metricsPath, entry.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		fs.logger.Info().Int("removed", removed).Msg("cleaned up old metric records")
	}
	return removed, nil
}
