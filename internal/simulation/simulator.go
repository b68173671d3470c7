package simulation

import (
	"fmt"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

const mmToM = 0.001

// RainfallSource is the read side of a rainfall series.
type RainfallSource interface {
	DepthMM(day, month, year int) (float64, bool)
	UsableYears() []int
}

// Reliability returns the fraction of demand days on which the tank met that
// day's demand, simulated over every usable year in ascending order.
//
// The tank level carries over from one usable year into the next even when
// incomplete years lie between them. Days in zero-demand months are not
// counted.
func Reliability(input domain.SimulationInput, rain RainfallSource) (float64, error) {
	return simulate(input, rain, nil)
}

// Estimate runs Reliability and converts the ratio into an EstimateResult for
// the input's tank capacity.
func Estimate(input domain.SimulationInput, rain RainfallSource) (domain.EstimateResult, error) {
	r, err := Reliability(input, rain)
	if err != nil {
		return domain.EstimateResult{}, err
	}
	return domain.NewEstimateResult(input.TankCapacityM3, r), nil
}

// simulate is the day loop. observe, when set, sees the end-of-day level.
func simulate(input domain.SimulationInput, rain RainfallSource, observe func(level float64)) (float64, error) {
	if err := input.Validate(); err != nil {
		return 0, err
	}

	years := rain.UsableYears()
	if len(years) == 0 {
		return 0, domain.ErrNoUsableYears
	}

	yieldPerMM := mmToM * input.CatchmentAreaM2 * input.RunoffCoefficient
	carryOver := 0.0
	daysUsed, successDays := 0, 0

	for _, year := range years {
		for month := 1; month <= 12; month++ {
			demand := input.Demand.ValueFor(month - 1)
			for day := 1; day <= domain.DaysInMonth(month, year); day++ {
				depth, _ := rain.DepthMM(day, month, year)
				level := min(carryOver+depth*yieldPerMM, input.TankCapacityM3)

				if demand != 0 {
					daysUsed++
					level -= demand
					if level >= 0 {
						successDays++
					} else {
						level = 0
					}
				}

				if observe != nil {
					observe(level)
				}
				carryOver = level
			}
		}
	}

	if daysUsed == 0 {
		return 0, fmt.Errorf("simulate %d usable years: %w", len(years), domain.ErrNoUsableDemandDays)
	}
	return float64(successDays) / float64(daysUsed), nil
}
