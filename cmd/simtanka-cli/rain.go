package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/simtanka-service/internal/domain"
)

// loadRainfall reads year,month,day,depth_mm rows. A header row is skipped.
func loadRainfall(path string) (*domain.RainfallSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rainfall file: %w", err)
	}
	defer f.Close()

	records, err := parseRainfall(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewRainfallSeries(records)
}

func parseRainfall(r io.Reader) ([]domain.DailyRainfallRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var out []domain.DailyRainfallRecord
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "year") {
			continue
		}

		var ints [3]int
		for i := range ints {
			if ints[i], err = strconv.Atoi(strings.TrimSpace(row[i])); err != nil {
				return nil, fmt.Errorf("line %d: %w: %q", line, domain.ErrInvalidRecord, row[i])
			}
		}
		depth, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %q", line, domain.ErrInvalidRecord, row[3])
		}
		out = append(out, domain.DailyRainfallRecord{Year: ints[0], Month: ints[1], Day: ints[2], DepthMM: depth})
	}
}
