package domain

import (
	"time"
)

// CooldownGate suppresses repeated alerts for a single ongoing incident.
// The first-ever alert is never suppressed, and only alerts that are
// actually emitted refresh the stored timestamp; a suppressed breach
// must not extend its own suppression window.
type CooldownGate struct {
	lastAlertTime time.Time
	hasAlerted    bool
}

// NewCooldownGate creates a gate with no recorded alert
func NewCooldownGate() *CooldownGate {
	return &CooldownGate{}
}

// ShouldSuppress reports whether an alert at now falls inside the
// cooldown window of the previously recorded alert.
func (cg *CooldownGate) ShouldSuppress(now time.Time, cooldown time.Duration) bool {
	if !cg.hasAlerted {
		return false
	}
	return now.Sub(cg.lastAlertTime) < cooldown
}

// RecordAlert stores the timestamp of an emitted alert, overwriting any
// previous one.
func (cg *CooldownGate) RecordAlert(now time.Time) {
	cg.lastAlertTime = now
	cg.hasAlerted = true
}

// LastAlertTime returns the most recent emitted alert time and whether
// one exists.
func (cg *CooldownGate) LastAlertTime() (time.Time, bool) {
	return cg.lastAlertTime, cg.hasAlerted
}
