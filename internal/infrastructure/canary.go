package infrastructure

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// canaryNames imitate high-value ransomware targets. The tilde prefix
// sorts them first in directory listings, which mass encryptors walk in
// order.
var canaryNames = []string{
	"~backup_tax_returns.xlsx",
	"~passwords_archive.docx",
	"~family_photos_index.txt",
	"~crypto_wallet_keys.txt",
}

// CanaryDeployer plants low-entropy decoy files inside the monitored
// tree. Nothing legitimate ever writes to them, so any observed write
// is treated as suspicious by the file collector.
type CanaryDeployer struct {
	dir    string
	paths  []string
	logger zerolog.Logger
}

// NewCanaryDeployer creates a deployer targeting dir
func NewCanaryDeployer(dir string, logger zerolog.Logger) *CanaryDeployer {
	return &CanaryDeployer{dir: dir, logger: logger}
}

// Deploy writes the decoy files and returns their paths. Files that
// already exist are left alone and still counted as canaries.
func (c *CanaryDeployer) Deploy() ([]string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create canary directory: %w", err)
	}

	content := canaryContent()
	c.paths = c.paths[:0]
	for _, name := range canaryNames {
		path := filepath.Join(c.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, content, 0o644); err != nil {
				c.logger.Warn().Err(err).Str("path", path).Msg("canary deployment failed")
				continue
			}
		}
		c.paths = append(c.paths, path)
	}

	if len(c.paths) == 0 {
		return nil, fmt.Errorf("no canary files could be deployed in %s", c.dir)
	}

	c.logger.Info().Int("count", len(c.paths)).Str("dir", c.dir).Msg("canary files deployed")
	return c.paths, nil
}

// Paths returns the deployed canary file paths
func (c *CanaryDeployer) Paths() []string {
	return c.paths
}

// Remove deletes the deployed canaries
func (c *CanaryDeployer) Remove() {
	for _, path := range c.paths {
		os.Remove(path)
	}
	c.paths = nil
}

// canaryContent is deliberately repetitive plaintext: low entropy, so
// encryption of a canary also trips the entropy probe.
func canaryContent() []byte {
	line := []byte("This archive index is maintained automatically. Do not edit.\n")
	return bytes.Repeat(line, 64)
}
