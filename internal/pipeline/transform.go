package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// RainfallTransformer implements Transformer for Visual Crossing month payloads.
type RainfallTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a RainfallTransformer.
func NewTransformer(logger *slog.Logger) *RainfallTransformer {
	return &RainfallTransformer{logger: logger}
}

func (t *RainfallTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.RainfallBatch, error) {
	batch, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.RainfallBatch{}, err
	}
	if len(batch.Records) == 0 {
		t.logger.Debug("rainfall message carried no days", "topic", raw.Topic, "offset", raw.Offset)
	}
	return batch, nil
}
