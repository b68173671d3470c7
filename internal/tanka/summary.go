package tanka

import (
	"context"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

const recentYears = 5

// RainfallSummary describes what the stored rainfall can support.
type RainfallSummary struct {
	Records      int                     `json:"records"`
	EarliestYear int                     `json:"earliest_year,omitempty"`
	LatestYear   int                     `json:"latest_year,omitempty"`
	UsableYears  []int                   `json:"usable_years"`
	RecentYears  []int                   `json:"recent_years"`
	Annual       []domain.AnnualRainfall `json:"annual"`
	AverageToday float64                 `json:"average_today_mm"`
	Outlook      []domain.WindowRainfall `json:"thirty_day_outlook"`
}

// RainfallSummary reports usable years, annual totals for the recent years,
// the average rainfall for today's date and the thirty-day outlook.
func (s *Service) RainfallSummary(ctx context.Context) (RainfallSummary, error) {
	rain, err := s.series(ctx)
	if err != nil {
		return RainfallSummary{}, err
	}

	today := s.clock.Now().UTC()
	recent := rain.RecentUsableYears(recentYears)
	sum := RainfallSummary{
		Records:      rain.Len(),
		UsableYears:  rain.UsableYears(),
		RecentYears:  recent,
		Annual:       rain.AnnualRainfall(recent),
		AverageToday: rain.AverageDailyRainfallMM(today.Day(), int(today.Month())),
		Outlook:      rain.ThirtyDayOutlook(today),
	}
	if y, ok := rain.EarliestYear(); ok {
		sum.EarliestYear = y
	}
	if y, ok := rain.LatestYear(); ok {
		sum.LatestYear = y
	}
	return sum, nil
}
