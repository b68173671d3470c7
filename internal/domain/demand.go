package domain

import (
	"fmt"
	"math"
)

// daysPerDemandMonth is the month length used when converting daily demand to
// an annual volume.
const daysPerDemandMonth = 30

// DemandSchedule holds the daily water demand in m³/day for each calendar
// month, index 0 = January. Zero marks a month in which the tank is not used.
type DemandSchedule [12]float64

// ValueFor returns the daily demand for monthIndex (0..11), or 0 when the
// index is out of range.
func (d DemandSchedule) ValueFor(monthIndex int) float64 {
	if monthIndex < 0 || monthIndex >= len(d) {
		return 0
	}
	return d[monthIndex]
}

// BudgetIsSet reports whether any month carries demand.
func (d DemandSchedule) BudgetIsSet() bool {
	sum := 0.0
	for _, v := range d {
		sum += v
	}
	return sum > 0
}

// AnnualDemandM3 approximates yearly use, counting every month as 30 days.
func (d DemandSchedule) AnnualDemandM3() float64 {
	sum := 0.0
	for _, v := range d {
		sum += v
	}
	return sum * daysPerDemandMonth
}

// Validate rejects negative or non-finite monthly values.
func (d DemandSchedule) Validate() error {
	for i, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: demand for month %d is %v", ErrInvalidInput, i+1, v)
		}
	}
	return nil
}
