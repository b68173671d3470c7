package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// recentYearsWindow is the number of most recent usable years shown in the
// rainfall summaries.
const recentYearsWindow = 5

// Records are accepted only for years in [MinRecordYear, MaxRecordYear].
const (
	MinRecordYear = 1
	MaxRecordYear = 9999
)

// DailyRainfallRecord is the rainfall depth observed on one calendar day.
type DailyRainfallRecord struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Day     int     `json:"day"`
	DepthMM float64 `json:"depth_mm"`
}

// Validate checks the date is real and the depth is a non-negative number.
func (r DailyRainfallRecord) Validate() error {
	if r.Year < MinRecordYear || r.Year > MaxRecordYear {
		return fmt.Errorf("%w: year %d outside %d..%d", ErrInvalidRecord, r.Year, MinRecordYear, MaxRecordYear)
	}
	if !ValidDate(r.Year, r.Month, r.Day) {
		return fmt.Errorf("%w: no such date %04d-%02d-%02d", ErrInvalidRecord, r.Year, r.Month, r.Day)
	}
	if math.IsNaN(r.DepthMM) || math.IsInf(r.DepthMM, 0) || r.DepthMM < 0 {
		return fmt.Errorf("%w: depth %v mm on %04d-%02d-%02d", ErrInvalidRecord, r.DepthMM, r.Year, r.Month, r.Day)
	}
	return nil
}

// Date returns the record's day as a UTC timestamp.
func (r DailyRainfallRecord) Date() time.Time {
	return dateOf(r.Year, r.Month, r.Day)
}

type dateKey struct {
	year, month, day int
}

// AnnualRainfall is the total rainfall recorded in one year.
type AnnualRainfall struct {
	Year    int     `json:"year"`
	TotalMM float64 `json:"total_mm"`
}

// WindowRainfall is the rainfall that fell during a date window in a past year.
type WindowRainfall struct {
	Year    int     `json:"year"`
	TotalMM float64 `json:"total_mm"`
}

// RainfallSeries is a read-only index of daily rainfall keyed by calendar day.
// It is safe for concurrent reads once constructed.
type RainfallSeries struct {
	depths  map[dateKey]float64
	perYear map[int]int
	minYear int
	maxYear int
}

// NewRainfallSeries indexes records by date. When two records share a date the
// first one wins, matching the store's immutable-once-stored rule.
func NewRainfallSeries(records []DailyRainfallRecord) (*RainfallSeries, error) {
	s := &RainfallSeries{
		depths:  make(map[dateKey]float64, len(records)),
		perYear: make(map[int]int),
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		k := dateKey{r.Year, r.Month, r.Day}
		if _, ok := s.depths[k]; ok {
			continue
		}
		s.depths[k] = r.DepthMM
		s.perYear[r.Year]++
		if len(s.depths) == 1 || r.Year < s.minYear {
			s.minYear = r.Year
		}
		if len(s.depths) == 1 || r.Year > s.maxYear {
			s.maxYear = r.Year
		}
	}
	return s, nil
}

// Len returns the number of distinct days held.
func (s *RainfallSeries) Len() int {
	return len(s.depths)
}

// DepthMM returns the rainfall recorded on a day, and false when there is no record.
func (s *RainfallSeries) DepthMM(day, month, year int) (float64, bool) {
	v, ok := s.depths[dateKey{year, month, day}]
	return v, ok
}

// EarliestYear returns the first year with any record.
func (s *RainfallSeries) EarliestYear() (int, bool) {
	if len(s.depths) == 0 {
		return 0, false
	}
	return s.minYear, true
}

// LatestYear returns the last year with any record.
func (s *RainfallSeries) LatestYear() (int, bool) {
	if len(s.depths) == 0 {
		return 0, false
	}
	return s.maxYear, true
}

// IsYearComplete reports whether every day of year has a record.
func (s *RainfallSeries) IsYearComplete(year int) bool {
	return s.perYear[year] == DaysInYear(year)
}

// UsableYears returns every complete year in ascending order.
func (s *RainfallSeries) UsableYears() []int {
	var years []int
	for y := range s.perYear {
		if s.IsYearComplete(y) {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// RecentUsableYears returns at most n of the latest complete years, ascending.
func (s *RainfallSeries) RecentUsableYears(n int) []int {
	years := s.UsableYears()
	if n >= 0 && len(years) > n {
		return years[len(years)-n:]
	}
	return years
}

// AnnualRainfall sums the recorded depth of each given year.
func (s *RainfallSeries) AnnualRainfall(years []int) []AnnualRainfall {
	out := make([]AnnualRainfall, 0, len(years))
	for _, y := range years {
		total := 0.0
		for m := 1; m <= 12; m++ {
			for d := 1; d <= DaysInMonth(m, y); d++ {
				total += s.depths[dateKey{y, m, d}]
			}
		}
		out = append(out, AnnualRainfall{Year: y, TotalMM: total})
	}
	return out
}

// AverageDailyRainfallMM averages the depth of one calendar day across all
// usable years. Missing days, such as 29 February of a common year, count as 0.
func (s *RainfallSeries) AverageDailyRainfallMM(day, month int) float64 {
	years := s.UsableYears()
	if len(years) == 0 {
		return 0
	}
	total := 0.0
	for _, y := range years {
		total += s.depths[dateKey{y, month, day}]
	}
	return total / float64(len(years))
}

// ThirtyDayOutlook returns, for each of the five most recent usable years, the
// rainfall that fell on the calendar days from today through today+30.
// When the window runs into the next calendar year the most recent usable
// year is dropped, since its following January is not on record.
func (s *RainfallSeries) ThirtyDayOutlook(today time.Time) []WindowRainfall {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 30)

	years := s.RecentUsableYears(recentYearsWindow)
	if end.Year() != start.Year() && len(years) > 0 {
		years = years[:len(years)-1]
	}

	out := make([]WindowRainfall, 0, len(years))
	for _, y := range years {
		total := 0.0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			simYear := y + d.Year() - start.Year()
			total += s.depths[dateKey{simYear, int(d.Month()), d.Day()}]
		}
		out = append(out, WindowRainfall{Year: y, TotalMM: total})
	}
	return out
}

// Records returns a copy of every record in calendar order.
func (s *RainfallSeries) Records() []DailyRainfallRecord {
	out := make([]DailyRainfallRecord, 0, len(s.depths))
	for k, v := range s.depths {
		out = append(out, DailyRainfallRecord{Year: k.year, Month: k.month, Day: k.day, DepthMM: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date().Before(out[j].Date())
	})
	return out
}

// CompleteYear builds one record per day of year using depth(month, day).
// It is a convenience for fixtures and synthetic series.
func CompleteYear(year int, depth func(month, day int) float64) []DailyRainfallRecord {
	out := make([]DailyRainfallRecord, 0, DaysInYear(year))
	for m := 1; m <= 12; m++ {
		for d := 1; d <= DaysInMonth(m, year); d++ {
			out = append(out, DailyRainfallRecord{Year: year, Month: m, Day: d, DepthMM: depth(m, d)})
		}
	}
	return out
}
