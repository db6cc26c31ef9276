package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"ransomwatch/config"
	"ransomwatch/internal/domain"
)

// rapidModifyWindow marks a file suspicious when it is rewritten within
// this interval of a prior observation.
const rapidModifyWindow = time.Second

// FileActivityCollector watches a directory tree for file events and
// hands the engine everything observed since the previous cycle. Events
// arrive asynchronously from the watcher goroutine and are buffered
// until Collect drains them; the engine itself stays single-threaded.
type FileActivityCollector struct {
	monitoredPath string
	extensions    []string
	logger        zerolog.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	pending  []domain.FileEvent
	lastOp   map[string]time.Time
	canaries map[string]bool
	started  bool
}

// NewFileActivityCollector creates a collector for the given path.
// extensions is the known ransomware extension set used for the
// suspicion flag.
func NewFileActivityCollector(monitoredPath string, extensions []string, logger zerolog.Logger) *FileActivityCollector {
	return &FileActivityCollector{
		monitoredPath: monitoredPath,
		extensions:    extensions,
		logger:        logger,
		lastOp:        make(map[string]time.Time),
		canaries:      make(map[string]bool),
	}
}

// MarkCanaries registers decoy file paths. Any observed write to one is
// suspicious by definition. Call before Start.
func (c *FileActivityCollector) MarkCanaries(paths []string) {
	for _, p := range paths {
		c.canaries[p] = true
	}
}

// Start installs recursive watches and begins buffering events until
// ctx is cancelled or Stop is called.
func (c *FileActivityCollector) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	c.watcher = watcher

	watched := 0
	err = filepath.WalkDir(c.monitoredPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != c.monitoredPath {
				return filepath.SkipDir
			}
			if addErr := watcher.Add(path); addErr == nil {
				watched++
			}
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to walk monitored path: %w", err)
	}

	c.started = true
	c.logger.Info().Str("path", c.monitoredPath).Int("directories", watched).
		Msg("file activity watcher started")

	go c.consume(ctx)
	return nil
}

// Stop closes the underlying watcher
func (c *FileActivityCollector) Stop() {
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// Collect drains and returns the events buffered since the last call.
// An unstarted collector fails with a CollectionError so the engine can
// degrade the files section instead of aborting the cycle.
func (c *FileActivityCollector) Collect(ctx context.Context) ([]domain.FileEvent, error) {
	if !c.started {
		return nil, &domain.CollectionError{
			Collector: "files",
			Err:       fmt.Errorf("file watcher not started"),
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.pending
	c.pending = nil
	return events, nil
}

func (c *FileActivityCollector) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handleEvent(event)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (c *FileActivityCollector) handleEvent(event fsnotify.Event) {
	var op domain.FileOperationKind
	switch {
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename):
		op = domain.FileOpWrite
	case event.Op.Has(fsnotify.Chmod):
		op = domain.FileOpRead
	default:
		return
	}

	now := time.Now()
	var size int64
	if info, err := os.Stat(event.Name); err == nil {
		if info.IsDir() {
			// Watch directories as they appear so the whole tree stays covered
			if event.Op.Has(fsnotify.Create) {
				c.watcher.Add(event.Name)
			}
			return
		}
		size = info.Size()
	}

	extension := strings.ToLower(filepath.Ext(event.Name))

	c.mu.Lock()
	defer c.mu.Unlock()

	suspicious := c.isSuspicious(event.Name, extension, now)
	if !suspicious && op == domain.FileOpWrite && size > 0 {
		// Entropy probe last: it is the only check that reads content
		if verdict, err := domain.ProbeFileEntropy(event.Name, extension); err == nil {
			suspicious = verdict.LooksEncrypted
		}
	}
	c.lastOp[event.Name] = now

	c.pending = append(c.pending, domain.FileEvent{
		Path:         event.Name,
		Operation:    op,
		Timestamp:    now,
		Size:         size,
		Extension:    extension,
		IsSuspicious: suspicious,
	})
}

// isSuspicious flags canary touches, ransomware extensions, sub-second
// re-modification and writes under sensitive system directories. Caller
// holds c.mu.
func (c *FileActivityCollector) isSuspicious(path, extension string, now time.Time) bool {
	if c.canaries[path] {
		return true
	}

	for _, ext := range c.extensions {
		if extension == strings.ToLower(ext) {
			return true
		}
	}

	if prev, seen := c.lastOp[path]; seen && now.Sub(prev) < rapidModifyWindow {
		return true
	}

	return config.IsSensitivePath(path)
}
