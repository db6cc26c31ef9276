package domain

import (
	"bytes"
	"io"
	"math"
	"os"
)

// entropyProbeSize is how much of a file is sampled for the entropy
// check. Encryption raises entropy uniformly, so the head is enough.
const entropyProbeSize = 8192

// entropyThresholds are per-extension cutoffs in bits per byte.
// Plaintext formats sit around 4.5-5.5; encrypted data approaches 8.0.
// Compressed container formats get higher cutoffs since they are
// legitimately dense.
var entropyThresholds = map[string]float64{
	".txt":  7.5,
	".csv":  7.5,
	".log":  7.5,
	".doc":  7.5,
	".xls":  7.5,
	".docx": 7.9,
	".xlsx": 7.9,
	".pdf":  7.9,
	".jpg":  7.95,
	".jpeg": 7.95,
	".png":  7.95,
	"":      7.5,
}

// denseFormatSignatures are magic bytes of formats that are high
// entropy by construction. A file whose head matches one of these is
// never flagged as encrypted, whatever its entropy.
var denseFormatSignatures = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},                         // zip (also docx/xlsx)
	{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, // png
	{0xFF, 0xD8, 0xFF},                               // jpeg
	{0x25, 0x50, 0x44, 0x46},                         // pdf
	{0x1F, 0x8B},                                     // gzip
	{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C},             // 7z
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07},             // rar
	{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},             // xz
}

// ShannonEntropy returns the entropy of data in bits per byte
func ShannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0.0
	}

	var frequencies [256]int
	for _, b := range data {
		frequencies[b]++
	}

	entropy := 0.0
	n := float64(len(data))
	for _, freq := range frequencies {
		if freq > 0 {
			p := float64(freq) / n
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}

// EntropyVerdict is the outcome of probing one file for encryption
type EntropyVerdict struct {
	Entropy         float64
	Threshold       float64
	LooksEncrypted  bool
	KnownDenseShape bool
}

// ProbeFileEntropy samples the head of the file and reports whether its
// entropy exceeds the cutoff for the given extension. Files matching a
// known dense-format signature are exempt.
func ProbeFileEntropy(path, extension string) (EntropyVerdict, error) {
	file, err := os.Open(path)
	if err != nil {
		return EntropyVerdict{}, err
	}
	defer file.Close()

	buffer := make([]byte, entropyProbeSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return EntropyVerdict{}, err
	}
	head := buffer[:n]

	threshold, ok := entropyThresholds[extension]
	if !ok {
		threshold = entropyThresholds[""]
	}

	verdict := EntropyVerdict{
		Entropy:   ShannonEntropy(head),
		Threshold: threshold,
	}

	for _, sig := range denseFormatSignatures {
		if len(head) >= len(sig) && bytes.Equal(head[:len(sig)], sig) {
			verdict.KnownDenseShape = true
			return verdict, nil
		}
	}

	verdict.LooksEncrypted = n > 0 && verdict.Entropy >= threshold
	return verdict, nil
}
