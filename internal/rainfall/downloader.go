// Package rainfall downloads daily rainfall for the configured site and stores
// it, one calendar month per request.
package rainfall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
)

// Initial window relative to the base year: five complete years ending two
// years back, so a user starting in January still gets a finished year.
const (
	initialFromOffset = 6
	initialToOffset   = 2
)

// Store is the persistence the downloader needs.
type Store interface {
	SaveRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error)
	ListRainfall(ctx context.Context) ([]domain.DailyRainfallRecord, error)
}

// Site is the location rainfall is downloaded for.
type Site struct {
	Latitude  float64
	Longitude float64
}

// Summary reports what one download run did.
type Summary struct {
	Years   []int                   `json:"years"`
	Fetched int                     `json:"fetched"`
	Saved   int                     `json:"saved"`
	Annual  []domain.AnnualRainfall `json:"annual"`
}

// Downloader fills the store from a RainfallFetcher.
type Downloader struct {
	fetcher  domain.RainfallFetcher
	store    Store
	site     Site
	baseYear int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewDownloader creates a Downloader. A zero baseYear means the current year.
func NewDownloader(fetcher domain.RainfallFetcher, store Store, site Site, baseYear int, metrics *observability.Metrics, logger *slog.Logger) *Downloader {
	return &Downloader{
		fetcher:  fetcher,
		store:    store,
		site:     site,
		baseYear: baseYear,
		metrics:  metrics,
		logger:   logger,
	}
}

// BaseYear is the year the site started using the service.
func (d *Downloader) BaseYear() int {
	if d.baseYear > 0 {
		return d.baseYear
	}
	return domain.CurrentYear()
}

// InitialDownload fetches base year - 6 through base year - 2.
func (d *Downloader) InitialDownload(ctx context.Context) (Summary, error) {
	base := d.BaseYear()
	return d.downloadYears(ctx, base-initialFromOffset, base-initialToOffset)
}

// Update fetches the years after the latest stored one up to last year. An
// empty store gets the initial download instead. A latest year that is still
// incomplete is fetched again; its stored days are skipped.
func (d *Downloader) Update(ctx context.Context) (Summary, error) {
	records, err := d.store.ListRainfall(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list stored rainfall: %w", err)
	}
	series, err := domain.NewRainfallSeries(records)
	if err != nil {
		return Summary{}, err
	}

	latest, ok := series.LatestYear()
	if !ok {
		return d.InitialDownload(ctx)
	}

	from := latest + 1
	if !series.IsYearComplete(latest) {
		from = latest
	}
	to := domain.CurrentYear() - 1
	if from > to {
		d.logger.Info("rainfall up to date", "latest_year", latest)
		return Summary{}, nil
	}
	return d.downloadYears(ctx, from, to)
}

func (d *Downloader) downloadYears(ctx context.Context, from, to int) (Summary, error) {
	var sum Summary
	start := time.Now()
	d.logger.Info("rainfall download started", "from_year", from, "to_year", to,
		"latitude", d.site.Latitude, "longitude", d.site.Longitude)

	for year := from; year <= to; year++ {
		annual := domain.AnnualRainfall{Year: year}
		for month := 1; month <= 12; month++ {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			d.logger.Debug("downloading rainfall", "year", year, "month", month)

			records, err := d.fetcher.FetchMonth(ctx, d.site.Latitude, d.site.Longitude, year, month)
			if err != nil {
				return sum, fmt.Errorf("download %04d-%02d: %w", year, month, err)
			}
			saved, err := d.store.SaveRainfall(ctx, records)
			if err != nil {
				return sum, fmt.Errorf("save %04d-%02d: %w", year, month, err)
			}

			sum.Fetched += len(records)
			sum.Saved += saved
			d.metrics.RecordsIngested.Add(float64(saved))
			d.metrics.RecordsSkipped.Add(float64(len(records) - saved))
			for _, r := range records {
				annual.TotalMM += r.DepthMM
			}
		}
		sum.Years = append(sum.Years, year)
		sum.Annual = append(sum.Annual, annual)
		d.logger.Info("rainfall year downloaded", "year", year, "annual_mm", annual.TotalMM)
	}

	d.logger.Info("finished downloading rainfall",
		"years", len(sum.Years), "fetched", sum.Fetched, "saved", sum.Saved,
		"duration", time.Since(start))
	return sum, nil
}
