package simulation_test

import (
	"testing"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// budgetResults pairs the descending sizes 10, 9, 8, ... with percents.
func budgetResults(percents ...int) []domain.EstimateResult {
	out := make([]domain.EstimateResult, len(percents))
	for i, p := range percents {
		out[i] = domain.EstimateResult{TankSizeM3: float64(10 - i), AnnualSuccessPercent: p}
	}
	return out
}

func TestAdvise_Empty(t *testing.T) {
	_, err := simulation.Advise(nil)
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestAdvise(t *testing.T) {
	tests := []struct {
		name        string
		results     []domain.EstimateResult
		region      domain.Region
		message     string
		recommended *domain.EstimateResult
	}{
		{
			name:    "flat and reliable",
			results: budgetResults(95, 95, 95, 95, 95, 95),
			region:  domain.RegionFlat,
			message: simulation.MessageSmallerTanks,
		},
		{
			name:    "flat and unreliable",
			results: budgetResults(40, 40, 40, 40, 40, 40),
			region:  domain.RegionFlat,
			message: simulation.MessageBudgetTooLarge,
		},
		{
			name:        "transient plateau picks smallest tank at maximum",
			results:     budgetResults(90, 90, 90, 90, 75, 60),
			region:      domain.RegionTransient,
			message:     simulation.MessageOptimumFound,
			recommended: &domain.EstimateResult{TankSizeM3: 7, AnnualSuccessPercent: 90},
		},
		{
			name:    "transient and unreliable",
			results: budgetResults(50, 70, 60, 55, 40, 30),
			region:  domain.RegionTransient,
			message: simulation.MessageReduceDemand,
		},
		{
			name:        "increasing and reliable",
			results:     budgetResults(95, 90, 80, 70, 60, 50),
			region:      domain.RegionIncreasing,
			message:     simulation.MessageOptimumFound,
			recommended: &domain.EstimateResult{TankSizeM3: 10, AnnualSuccessPercent: 95},
		},
		{
			name:    "increasing and unreliable",
			results: budgetResults(85, 80, 70, 60, 50, 40),
			region:  domain.RegionIncreasing,
			message: simulation.MessageLargerTank,
		},
		{
			name:        "exactly 90 is reliable",
			results:     budgetResults(90, 89),
			region:      domain.RegionIncreasing,
			message:     simulation.MessageOptimumFound,
			recommended: &domain.EstimateResult{TankSizeM3: 10, AnnualSuccessPercent: 90},
		},
		{
			name:    "89 is not reliable",
			results: budgetResults(89, 80),
			region:  domain.RegionIncreasing,
			message: simulation.MessageLargerTank,
		},
		{
			name:        "single reliable result is increasing",
			results:     budgetResults(95),
			region:      domain.RegionIncreasing,
			message:     simulation.MessageOptimumFound,
			recommended: &domain.EstimateResult{TankSizeM3: 10, AnnualSuccessPercent: 95},
		},
		{
			name:    "single unreliable result is increasing",
			results: budgetResults(50),
			region:  domain.RegionIncreasing,
			message: simulation.MessageLargerTank,
		},
		{
			name: "tie broken by smallest tank regardless of order",
			results: []domain.EstimateResult{
				{TankSizeM3: 10, AnnualSuccessPercent: 80},
				{TankSizeM3: 6, AnnualSuccessPercent: 95},
				{TankSizeM3: 8, AnnualSuccessPercent: 95},
			},
			region:      domain.RegionTransient,
			message:     simulation.MessageOptimumFound,
			recommended: &domain.EstimateResult{TankSizeM3: 6, AnnualSuccessPercent: 95},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advice, err := simulation.Advise(tt.results)
			require.NoError(t, err)
			assert.Equal(t, tt.region, advice.Region)
			assert.Equal(t, tt.message, advice.Message)
			assert.Equal(t, tt.recommended, advice.Recommended)
		})
	}
}
