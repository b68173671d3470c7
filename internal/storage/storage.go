package storage

import (
	"context"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// Storage abstracts persistence for rainfall records, the site system, the
// demand schedule, the saved optimum tank and sizing reports.
//
// Getters return (nil, nil) when nothing has been stored yet.
type Storage interface {
	// Rainfall records are immutable: SaveRainfall skips dates already stored
	// and reports how many records were new.
	SaveRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error)
	ListRainfall(ctx context.Context) ([]domain.DailyRainfallRecord, error)

	GetSystem(ctx context.Context) (*domain.System, error)
	SaveSystem(ctx context.Context, s domain.System) error

	GetDemand(ctx context.Context) (*domain.DemandSchedule, error)
	SaveDemand(ctx context.Context, d domain.DemandSchedule) error

	GetOptimum(ctx context.Context) (*domain.EstimateResult, error)
	SaveOptimum(ctx context.Context, r domain.EstimateResult) error
	ClearOptimum(ctx context.Context) error

	GetReport(ctx context.Context, id string) (*domain.SizingReport, error)
	SaveReport(ctx context.Context, r domain.SizingReport) error

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}

// dedupe drops records whose date already appeared earlier in the slice.
func dedupe(records []domain.DailyRainfallRecord) []domain.DailyRainfallRecord {
	seen := make(map[[3]int]struct{}, len(records))
	out := make([]domain.DailyRainfallRecord, 0, len(records))
	for _, r := range records {
		k := [3]int{r.Year, r.Month, r.Day}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// validateAll rejects the whole batch if any record is invalid.
func validateAll(records []domain.DailyRainfallRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}
