package domain

import "context"

// RainfallFetcher retrieves the daily rainfall of one calendar month at a site.
// An empty slice with a nil error means the provider had no observations.
type RainfallFetcher interface {
	FetchMonth(ctx context.Context, lat, lon float64, year, month int) ([]DailyRainfallRecord, error)
}
