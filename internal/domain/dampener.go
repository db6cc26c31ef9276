package domain

// DampeningFactors are the multiplicative adjustments applied when
// ambient conditions make a high raw score more likely benign. Each
// factor must lie in (0, 1]. The exact values are tunable configuration,
// not structural requirements.
type DampeningFactors struct {
	Browser          float64
	Maintenance      float64
	Daytime          float64
	WorkdayStartHour int
	WorkdayEndHour   int
}

// DefaultDampeningFactors match the dominant values observed in
// production tuning: browsers 0.7, OS maintenance 0.8, working hours
// (08-18) 0.9.
func DefaultDampeningFactors() DampeningFactors {
	return DampeningFactors{
		Browser:          0.7,
		Maintenance:      0.8,
		Daytime:          0.9,
		WorkdayStartHour: 8,
		WorkdayEndHour:   18,
	}
}

// ContextualDampener reduces score magnitude when context signals are
// active. It never amplifies: with no active signal the input passes
// through unchanged.
type ContextualDampener struct {
	factors DampeningFactors
}

// NewContextualDampener creates a dampener with the given factors
func NewContextualDampener(factors DampeningFactors) *ContextualDampener {
	return &ContextualDampener{factors: factors}
}

// Dampen applies the product of every applicable factor to rawScore.
// Multiplication is commutative, so the chain is order-independent.
func (cd *ContextualDampener) Dampen(rawScore float64, ctx ContextSignals) float64 {
	adjustment := cd.AdjustmentFactor(ctx)
	return rawScore * adjustment
}

// AdjustmentFactor returns the combined multiplicative factor for the
// given context, 1.0 when nothing applies.
func (cd *ContextualDampener) AdjustmentFactor(ctx ContextSignals) float64 {
	adjustment := 1.0

	if ctx.BrowserActive {
		adjustment *= cd.factors.Browser
	}
	if ctx.MaintenanceActive {
		adjustment *= cd.factors.Maintenance
	}
	if ctx.HourOfDay >= cd.factors.WorkdayStartHour && ctx.HourOfDay <= cd.factors.WorkdayEndHour {
		adjustment *= cd.factors.Daytime
	}

	return adjustment
}
