package domain

import (
	"testing"
)

func TestHysteresisTracker_SingleSpikeNeverFires(t *testing.T) {
	tracker := NewHysteresisTracker()

	// Isolated spike followed by normal samples
	if tracker.Update(500.0, 100.0, 5) {
		t.Error("single spike fired the sustained signal")
	}
	if tracker.BreachCount() != 1 {
		t.Errorf("BreachCount = %d, expected 1", tracker.BreachCount())
	}

	if tracker.Update(10.0, 100.0, 5) {
		t.Error("normal sample fired the sustained signal")
	}
	if tracker.BreachCount() != 0 {
		t.Errorf("BreachCount after reset sample = %d, expected 0", tracker.BreachCount())
	}
}

func TestHysteresisTracker_FiresOnConsecutiveBreaches(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		required int
		expected []bool
	}{
		{
			name:     "Fires exactly at required count",
			samples:  []float64{150, 150, 150, 150, 150},
			required: 5,
			expected: []bool{false, false, false, false, true},
		},
		{
			name:     "Stays true while breach continues",
			samples:  []float64{150, 150, 150, 150},
			required: 3,
			expected: []bool{false, false, true, true},
		},
		{
			name:     "Interruption resets the count",
			samples:  []float64{150, 150, 50, 150, 150, 150},
			required: 3,
			expected: []bool{false, false, false, false, false, true},
		},
		{
			name:     "Threshold boundary is exclusive",
			samples:  []float64{100, 100, 100},
			required: 1,
			expected: []bool{false, false, false},
		},
		{
			name:     "Required one fires immediately",
			samples:  []float64{100.001},
			required: 1,
			expected: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewHysteresisTracker()
			for i, sample := range tt.samples {
				got := tracker.Update(sample, 100.0, tt.required)
				if got != tt.expected[i] {
					t.Errorf("sample %d (%.3f): Update = %v, expected %v",
						i, sample, got, tt.expected[i])
				}
			}
		})
	}
}

func TestHysteresisTracker_Reset(t *testing.T) {
	tracker := NewHysteresisTracker()

	tracker.Update(150, 100, 10)
	tracker.Update(150, 100, 10)
	if tracker.BreachCount() != 2 {
		t.Fatalf("BreachCount = %d, expected 2", tracker.BreachCount())
	}

	tracker.Reset()
	if tracker.BreachCount() != 0 {
		t.Errorf("BreachCount after Reset = %d, expected 0", tracker.BreachCount())
	}
}

func TestHysteresisTracker_IndependentInstances(t *testing.T) {
	write := NewHysteresisTracker()
	read := NewHysteresisTracker()

	write.Update(150, 100, 5)
	write.Update(150, 100, 5)

	if read.BreachCount() != 0 {
		t.Errorf("second tracker BreachCount = %d, expected 0", read.BreachCount())
	}
}
