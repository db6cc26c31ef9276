package domain

// HysteresisTracker converts a noisy instantaneous measurement into a
// debounced sustained-condition signal. A single-sample spike (e.g. a
// large file copy) never fires; the tracked value must breach its
// threshold for several consecutive cycles.
//
// The counter is an instance field owned by exactly one tracker, one
// tracker per monitored metric. Not safe for concurrent use; the
// detection loop is single-threaded.
type HysteresisTracker struct {
	consecutiveBreaches int
}

// NewHysteresisTracker creates a tracker with a zeroed breach counter
func NewHysteresisTracker() *HysteresisTracker {
	return &HysteresisTracker{}
}

// Update feeds one sample. The counter increments when currentValue
// exceeds threshold and resets to 0 otherwise. Returns true iff the
// counter reached requiredConsecutiveCycles after this sample.
func (ht *HysteresisTracker) Update(currentValue, threshold float64, requiredConsecutiveCycles int) bool {
	if currentValue > threshold {
		ht.consecutiveBreaches++
	} else {
		ht.consecutiveBreaches = 0
	}

	return ht.consecutiveBreaches >= requiredConsecutiveCycles
}

// BreachCount returns the current consecutive breach count
func (ht *HysteresisTracker) BreachCount() int {
	return ht.consecutiveBreaches
}

// Reset clears the breach counter
func (ht *HysteresisTracker) Reset() {
	ht.consecutiveBreaches = 0
}
