package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomwatch/internal/domain"
)

func TestFileActivityCollector_UnstartedDegrades(t *testing.T) {
	c := NewFileActivityCollector(t.TempDir(), nil, zerolog.Nop())

	_, err := c.Collect(context.Background())

	var cerr *domain.CollectionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "files", cerr.Collector)
}

func TestFileActivityCollector_ObservesWrites(t *testing.T) {
	dir := t.TempDir()
	c := NewFileActivityCollector(dir, []string{".locked"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.locked"), []byte("x"), 0o644))

	// Give the watcher goroutine time to drain the kernel queue
	time.Sleep(500 * time.Millisecond)

	events, err := c.Collect(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// Creation and write may arrive as separate events; the first one
	// for a fresh benign file must not be suspicious, and anything
	// carrying a ransomware extension always is.
	var firstPlain, anyLocked *domain.FileEvent
	for i := range events {
		e := &events[i]
		switch filepath.Base(e.Path) {
		case "report.txt":
			if firstPlain == nil {
				firstPlain = e
			}
		case "photo.locked":
			anyLocked = e
		}
	}

	require.NotNil(t, firstPlain, "write to report.txt not observed")
	assert.Equal(t, domain.FileOpWrite, firstPlain.Operation)
	assert.False(t, firstPlain.IsSuspicious)

	require.NotNil(t, anyLocked, "write to photo.locked not observed")
	assert.True(t, anyLocked.IsSuspicious, "ransomware extension not flagged")
	assert.Equal(t, ".locked", anyLocked.Extension)

	// Collect drains: a second call starts empty
	events, err = c.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}
