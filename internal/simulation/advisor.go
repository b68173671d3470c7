package simulation

import "github.com/couchcryptid/simtanka-service/internal/domain"

// reliableThreshold is the annual success percentage a tank must exceed
// before it is recommended.
const reliableThreshold = 89

// Advice messages returned by Advise.
const (
	MessageSmallerTanks   = "demand can be met with smaller tanks; explore reducing tank budget"
	MessageBudgetTooLarge = "water budget is too large for any of the swept tank sizes"
	MessageOptimumFound   = "optimum tank size found"
	MessageReduceDemand   = "consider reducing water demand"
	MessageLargerTank     = "improve reliability by considering a larger tank size"
)

// Advise classifies a budget sweep and picks a tank size.
//
// Three checks run in order, each overwriting the advice of the previous one
// when its condition holds: flat (every percentage equal), transient (more
// than one distinct percentage) and increasing (percentages strictly increase
// with tank size). A single result is both flat and increasing, so it ends up
// classified as increasing.
func Advise(results []domain.EstimateResult) (domain.Advice, error) {
	if len(results) == 0 {
		return domain.Advice{}, domain.ErrInsufficientData
	}

	best := bestResult(results)
	reliable := best.AnnualSuccessPercent > reliableThreshold
	var advice domain.Advice

	if allEqual(results) {
		advice = domain.Advice{Region: domain.RegionFlat, Message: MessageBudgetTooLarge}
		if reliable {
			advice.Message = MessageSmallerTanks
		}
	}

	if distinctPercents(results) > 1 {
		advice = domain.Advice{Region: domain.RegionTransient, Message: MessageReduceDemand}
		if reliable {
			advice.Message = MessageOptimumFound
			advice.Recommended = &best
		}
	}

	if strictlyIncreasing(domain.SortedByTankSize(results)) {
		advice = domain.Advice{Region: domain.RegionIncreasing, Message: MessageLargerTank}
		if reliable {
			advice.Message = MessageOptimumFound
			advice.Recommended = &best
		}
	}

	return advice, nil
}

// bestResult returns the highest percentage, ties going to the smallest tank.
func bestResult(results []domain.EstimateResult) domain.EstimateResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.AnnualSuccessPercent > best.AnnualSuccessPercent ||
			(r.AnnualSuccessPercent == best.AnnualSuccessPercent && r.TankSizeM3 < best.TankSizeM3) {
			best = r
		}
	}
	return best
}

func allEqual(results []domain.EstimateResult) bool {
	for _, r := range results[1:] {
		if r.AnnualSuccessPercent != results[0].AnnualSuccessPercent {
			return false
		}
	}
	return true
}

func distinctPercents(results []domain.EstimateResult) int {
	seen := make(map[int]struct{}, len(results))
	for _, r := range results {
		seen[r.AnnualSuccessPercent] = struct{}{}
	}
	return len(seen)
}

func strictlyIncreasing(sorted []domain.EstimateResult) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].AnnualSuccessPercent <= sorted[i-1].AnnualSuccessPercent {
			return false
		}
	}
	return true
}
