package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const timelineDateLayout = "2006-01-02"

// ParseMonthPayload decodes a Visual Crossing timeline payload into daily
// records. A null precip is recorded as 0 mm.
func ParseMonthPayload(data []byte) ([]DailyRainfallRecord, error) {
	var payload TimelinePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse timeline payload: %w", err)
	}
	return RecordsFromTimeline(payload)
}

// RecordsFromTimeline converts decoded timeline days into validated records.
func RecordsFromTimeline(payload TimelinePayload) ([]DailyRainfallRecord, error) {
	records := make([]DailyRainfallRecord, 0, len(payload.Days))
	for _, d := range payload.Days {
		t, err := time.Parse(timelineDateLayout, strings.TrimSpace(d.Datetime))
		if err != nil {
			return nil, fmt.Errorf("%w: datetime %q", ErrInvalidRecord, d.Datetime)
		}
		rec := DailyRainfallRecord{
			Year:  t.Year(),
			Month: int(t.Month()),
			Day:   t.Day(),
		}
		if d.Precip != nil {
			rec.DepthMM = *d.Precip
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseRawEvent deserializes a rainfall message into a RainfallBatch. The
// source is taken from the "source" header, falling back to the topic.
func ParseRawEvent(raw RawEvent) (RainfallBatch, error) {
	records, err := ParseMonthPayload(raw.Value)
	if err != nil {
		return RainfallBatch{}, fmt.Errorf("parse raw event: %w", err)
	}

	source := raw.Headers["source"]
	if source == "" {
		source = raw.Topic
	}

	return RainfallBatch{
		Source:      source,
		Records:     records,
		ProcessedAt: clock.Now().UTC(),
	}, nil
}

// SerializeReport encodes a sizing report as an output event keyed by its ID.
func SerializeReport(report SizingReport) (OutputEvent, error) {
	value, err := json.Marshal(report)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize sizing report: %w", err)
	}

	region := ""
	if report.Advice != nil {
		region = string(report.Advice.Region)
	}

	return OutputEvent{
		Key:   []byte(report.ID),
		Value: value,
		Headers: map[string]string{
			"report_id":  report.ID,
			"region":     region,
			"cancelled":  fmt.Sprintf("%t", report.Cancelled),
			"created_at": report.CreatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
