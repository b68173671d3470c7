package simulation

const (
	perturbationFraction = 0.25
	budgetSweepPoints    = 6
	budgetStepDivisor    = 10
)

// SymmetricSizes returns T-ΔT, T and T+ΔT with ΔT a quarter of T, for a quick
// check of how sensitive the current system is to tank size.
func SymmetricSizes(tankM3 float64) []float64 {
	delta := perturbationFraction * tankM3
	return []float64{tankM3 - delta, tankM3, tankM3 + delta}
}

// BudgetSizes returns six strictly descending sizes starting at the largest
// affordable tank and stepping down by a tenth of it each time.
func BudgetSizes(maxTankM3 float64) []float64 {
	step := maxTankM3 / budgetStepDivisor
	sizes := make([]float64, budgetSweepPoints)
	for k := range sizes {
		sizes[k] = maxTankM3 - float64(k)*step
	}
	return sizes
}
