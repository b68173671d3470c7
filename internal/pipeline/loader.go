package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
)

// RainfallSaver is the storage the loader writes to.
type RainfallSaver interface {
	SaveRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error)
}

// StoreLoader implements BatchLoader by saving records to storage. Days that
// are already stored are skipped and counted.
type StoreLoader struct {
	store   RainfallSaver
	metrics *observability.Metrics
}

// NewStoreLoader creates a StoreLoader.
func NewStoreLoader(store RainfallSaver, metrics *observability.Metrics) *StoreLoader {
	return &StoreLoader{store: store, metrics: metrics}
}

func (l *StoreLoader) LoadBatch(ctx context.Context, batches []domain.RainfallBatch) error {
	var records []domain.DailyRainfallRecord
	for _, b := range batches {
		records = append(records, b.Records...)
	}
	if len(records) == 0 {
		return nil
	}

	saved, err := l.store.SaveRainfall(ctx, records)
	if err != nil {
		return fmt.Errorf("store %d rainfall records: %w", len(records), err)
	}
	l.metrics.RecordsIngested.Add(float64(saved))
	l.metrics.RecordsSkipped.Add(float64(len(records) - saved))
	return nil
}
