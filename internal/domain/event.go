package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the rainfall topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// TimelineDay is one day of a Visual Crossing timeline response.
type TimelineDay struct {
	Datetime string   `json:"datetime"`
	Precip   *float64 `json:"precip"`
}

// TimelinePayload is the Visual Crossing timeline response for one month, as
// requested with elements=datetime,precip.
type TimelinePayload struct {
	Days []TimelineDay `json:"days"`
}

// RainfallBatch is the parsed form of one rainfall message, ready for storage.
type RainfallBatch struct {
	Source      string                `json:"source"`
	Records     []DailyRainfallRecord `json:"records"`
	ProcessedAt time.Time             `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the report topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
