package domain

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func generateRandomBytes(n int) []byte {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, n)
	rng.Read(data)
	return data
}

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		minRange float64
		maxRange float64
	}{
		{
			name:     "All zeros - minimum entropy",
			data:     make([]byte, 1000),
			minRange: 0.0,
			maxRange: 0.1,
		},
		{
			name: "Plaintext English - low entropy",
			data: []byte("The quick brown fox jumps over the lazy dog. " +
				"Plaintext sentences like this one land between four and six bits per byte."),
			minRange: 3.5,
			maxRange: 6.0,
		},
		{
			name:     "Random data - high entropy",
			data:     generateRandomBytes(8192),
			minRange: 7.5,
			maxRange: 8.0,
		},
		{
			name:     "Empty input",
			data:     nil,
			minRange: 0.0,
			maxRange: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entropy := ShannonEntropy(tt.data)
			if entropy < tt.minRange || entropy > tt.maxRange {
				t.Errorf("Entropy = %.3f, expected between %.3f and %.3f",
					entropy, tt.minRange, tt.maxRange)
			}
		})
	}
}

func TestProbeFileEntropy(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name              string
		content           []byte
		extension         string
		expectedEncrypted bool
	}{
		{
			name: "Plaintext file",
			content: bytes.Repeat(
				[]byte("Normal notes about the quarterly budget meeting.\n"), 50),
			extension:         ".txt",
			expectedEncrypted: false,
		},
		{
			name:              "Encrypted-looking file",
			content:           generateRandomBytes(8192),
			extension:         ".txt",
			expectedEncrypted: true,
		},
		{
			name:              "Empty file",
			content:           nil,
			extension:         ".txt",
			expectedEncrypted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tempDir, tt.name+tt.extension)
			if err := os.WriteFile(path, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}

			verdict, err := ProbeFileEntropy(path, tt.extension)
			if err != nil {
				t.Fatalf("ProbeFileEntropy failed: %v", err)
			}
			if verdict.LooksEncrypted != tt.expectedEncrypted {
				t.Errorf("LooksEncrypted = %v (entropy %.3f, threshold %.3f), expected %v",
					verdict.LooksEncrypted, verdict.Entropy, verdict.Threshold, tt.expectedEncrypted)
			}
		})
	}
}

// Dense container formats are legitimately high entropy and must never
// be flagged, whatever their content scores.
func TestProbeFileEntropy_DenseFormatExempt(t *testing.T) {
	tempDir := t.TempDir()

	content := append([]byte{0x50, 0x4B, 0x03, 0x04}, generateRandomBytes(4096)...)
	path := filepath.Join(tempDir, "archive.zip")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	verdict, err := ProbeFileEntropy(path, ".zip")
	if err != nil {
		t.Fatalf("ProbeFileEntropy failed: %v", err)
	}
	if !verdict.KnownDenseShape {
		t.Error("zip signature not recognized")
	}
	if verdict.LooksEncrypted {
		t.Error("dense-format file flagged as encrypted")
	}
}

func TestProbeFileEntropy_MissingFile(t *testing.T) {
	_, err := ProbeFileEntropy(filepath.Join(t.TempDir(), "gone.txt"), ".txt")
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}
