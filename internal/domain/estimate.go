package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// System describes the harvesting installation at a site.
type System struct {
	CatchmentAreaM2   float64 `json:"catchment_area_m2"`
	RunoffCoefficient float64 `json:"runoff_coefficient"`
	TankCapacityM3    float64 `json:"tank_capacity_m3"`
}

// Input combines the system with a demand schedule into a simulation input.
func (s System) Input(demand DemandSchedule) SimulationInput {
	return SimulationInput{
		RunoffCoefficient: s.RunoffCoefficient,
		CatchmentAreaM2:   s.CatchmentAreaM2,
		TankCapacityM3:    s.TankCapacityM3,
		Demand:            demand,
	}
}

// SimulationInput is the value handed to one simulator run. It is always
// passed by value so varying the capacity never touches the caller's copy.
type SimulationInput struct {
	RunoffCoefficient float64        `json:"runoff_coefficient"`
	CatchmentAreaM2   float64        `json:"catchment_area_m2"`
	TankCapacityM3    float64        `json:"tank_capacity_m3"`
	Demand            DemandSchedule `json:"demand"`
}

// WithTankCapacity returns a copy of in with the given capacity.
func (in SimulationInput) WithTankCapacity(m3 float64) SimulationInput {
	in.TankCapacityM3 = m3
	return in
}

// Validate checks the physical quantities are finite and in range.
func (in SimulationInput) Validate() error {
	switch {
	case !finite(in.RunoffCoefficient) || in.RunoffCoefficient < 0 || in.RunoffCoefficient > 1:
		return fmt.Errorf("%w: runoff coefficient %v outside [0, 1]", ErrInvalidInput, in.RunoffCoefficient)
	case !finite(in.CatchmentAreaM2) || in.CatchmentAreaM2 < 0:
		return fmt.Errorf("%w: catchment area %v m²", ErrInvalidInput, in.CatchmentAreaM2)
	case !finite(in.TankCapacityM3) || in.TankCapacityM3 < 0:
		return fmt.Errorf("%w: tank capacity %v m³", ErrInvalidInput, in.TankCapacityM3)
	}
	return in.Demand.Validate()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EstimateResult is the outcome of one simulator run for one tank size.
type EstimateResult struct {
	TankSizeM3           float64 `json:"tank_size_m3"`
	AnnualSuccessPercent int     `json:"annual_success_percent"`
}

// NewEstimateResult converts a reliability ratio into a whole percentage,
// truncating rather than rounding.
func NewEstimateResult(tankSizeM3, reliability float64) EstimateResult {
	return EstimateResult{
		TankSizeM3:           tankSizeM3,
		AnnualSuccessPercent: int(reliability * 100),
	}
}

// SortedByTankSize returns a copy of results ordered by ascending tank size.
// Equal sizes keep their original order.
func SortedByTankSize(results []EstimateResult) []EstimateResult {
	out := make([]EstimateResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TankSizeM3 < out[j].TankSizeM3
	})
	return out
}

// Region classifies how reliability responds to tank size over a sweep.
type Region string

const (
	RegionFlat       Region = "flat"
	RegionTransient  Region = "transient"
	RegionIncreasing Region = "increasing"
)

// Advice is the sizing recommendation derived from a budget sweep.
type Advice struct {
	Message     string          `json:"message"`
	Region      Region          `json:"region"`
	Recommended *EstimateResult `json:"recommended,omitempty"`
}

// SizingReport records one budget sweep and the advice drawn from it.
type SizingReport struct {
	ID          string           `json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	MaxTankM3   float64          `json:"max_tank_m3"`
	Input       SimulationInput  `json:"input"`
	UsableYears []int            `json:"usable_years"`
	Results     []EstimateResult `json:"results"`
	Advice      *Advice          `json:"advice,omitempty"`
	Cancelled   bool             `json:"cancelled"`
}
