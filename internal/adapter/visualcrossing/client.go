package visualcrossing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
	"github.com/sony/gobreaker"
)

// Client implements domain.RainfallFetcher using the Visual Crossing timeline API.
type Client struct {
	apiKey       string
	httpClient   *http.Client
	baseURL      string
	maxDistanceM int
	circuit      *gobreaker.CircuitBreaker
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a Visual Crossing timeline client.
func NewClient(apiKey, baseURL string, timeout time.Duration, maxDistanceM int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      baseURL,
		maxDistanceM: maxDistanceM,
		circuit:      newCircuit(),
		metrics:      metrics,
		logger:       logger,
	}
}

func newCircuit() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "visualcrossing",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// FetchMonth requests every day of month in year at (lat, lon).
func (c *Client) FetchMonth(ctx context.Context, lat, lon float64, year, month int) ([]domain.DailyRainfallRecord, error) {
	last := domain.DaysInMonth(month, year)
	if last == 0 {
		return nil, fmt.Errorf("%w: month %d", domain.ErrInvalidInput, month)
	}

	u := fmt.Sprintf("%s/%s,%s/%04d-%02d-01/%04d-%02d-%02d",
		c.baseURL,
		strconv.FormatFloat(lat, 'f', 4, 64), strconv.FormatFloat(lon, 'f', 4, 64),
		year, month, year, month, last)
	params := url.Values{
		"unitGroup":   {"metric"},
		"maxDistance": {strconv.Itoa(c.maxDistanceM)},
		"include":     {"remote,obs,days"},
		"elements":    {"datetime,precip"},
		"contentType": {"json"},
		"key":         {c.apiKey},
	}

	start := time.Now()
	out, err := c.circuit.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, u+"?"+params.Encode())
	})
	c.metrics.DownloadAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.DownloadRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch %04d-%02d: %w", year, month, err)
	}

	records := out.([]domain.DailyRainfallRecord)
	if len(records) == 0 {
		c.metrics.DownloadRequests.WithLabelValues("empty").Inc()
		c.logger.Warn("visual crossing returned no days", "year", year, "month", month)
		return nil, nil
	}
	c.metrics.DownloadRequests.WithLabelValues("success").Inc()
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.DailyRainfallRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timeline request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("visual crossing API error: status %d: %s", resp.StatusCode, body)
	}

	var payload domain.TimelinePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return domain.RecordsFromTimeline(payload)
}
