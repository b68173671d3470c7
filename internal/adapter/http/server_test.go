package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/simtanka-service/internal/adapter/http"
	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/observability"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/couchcryptid/simtanka-service/internal/storage"
	"github.com/couchcryptid/simtanka-service/internal/tanka"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, readyErr error) (*httpadapter.Server, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemory()
	svc := tanka.New(store, observability.NewMetricsForTesting(), discardLogger(),
		tanka.WithClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))),
		tanka.WithIDGenerator(func() string { return "rep-1" }),
	)
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, svc, discardLogger()), store
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func rainBody(years ...int) map[string]any {
	var recs []map[string]any
	for _, y := range years {
		for _, r := range domain.CompleteYear(y, func(int, int) float64 { return 10 }) {
			recs = append(recs, map[string]any{"year": r.Year, "month": r.Month, "day": r.Day, "depth_mm": r.DepthMM})
		}
	}
	return map[string]any{"records": recs}
}

var (
	systemBody = map[string]any{"catchment_area_m2": 100, "runoff_coefficient": 0.8, "tank_capacity_m3": 1000}
	demandBody = map[string]any{"demand": []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
)

// configure stores a system, demand and two years of rain through the API.
func configure(t *testing.T, srv http.Handler) {
	t.Helper()
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/system", systemBody).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/demand", demandBody).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/rainfall", rainBody(2021, 2022)).Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, fmt.Errorf("not ready yet"))
	rec := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAllReady(t *testing.T) {
	ctx := context.Background()
	ok := httpadapter.ReadinessFunc(func(context.Context) error { return nil })
	bad := httpadapter.ReadinessFunc(func(context.Context) error { return errors.New("store down") })

	assert.NoError(t, httpadapter.AllReady(ok, ok).CheckReadiness(ctx))
	assert.EqualError(t, httpadapter.AllReady(ok, bad).CheckReadiness(ctx), "store down")
	assert.NoError(t, httpadapter.AllReady().CheckReadiness(ctx))
}

func TestSystemRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/system", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/v1/system", systemBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/v1/system", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.System](t, rec)
	assert.Equal(t, domain.System{CatchmentAreaM2: 100, RunoffCoefficient: 0.8, TankCapacityM3: 1000}, got)
}

func TestSystemValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	cases := map[string]any{
		"runoff above one": map[string]any{"catchment_area_m2": 1, "runoff_coefficient": 1.2, "tank_capacity_m3": 1},
		"missing tank":     map[string]any{"catchment_area_m2": 1, "runoff_coefficient": 0.5},
		"negative area":    map[string]any{"catchment_area_m2": -1, "runoff_coefficient": 0.5, "tank_capacity_m3": 1},
		"unknown field":    map[string]any{"catchment_area_m2": 1, "runoff_coefficient": 0.5, "tank_capacity_m3": 1, "roof": "tin"},
		"malformed":        "{not json",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, "/api/v1/system", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestDemand(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/demand", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["budget_is_set"])

	rec = do(t, srv, http.MethodPut, "/api/v1/demand", demandBody)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, true, body["budget_is_set"])
	assert.InDelta(t, 180.0, body["annual_demand_m3"], 1e-9)

	rec = do(t, srv, http.MethodPut, "/api/v1/demand", map[string]any{"demand": []float64{1, 2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportRainfallRejectsImpossibleDate(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := do(t, srv, http.MethodPost, "/api/v1/rainfall", map[string]any{
		"records": []map[string]any{{"year": 2023, "month": 2, "day": 30, "depth_mm": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/rainfall", map[string]any{"records": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/rainfall", map[string]any{
		"records": []map[string]any{{"year": 10000, "month": 1, "day": 1, "depth_mm": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReliabilityFlow(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/reliability", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "system not configured")

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/system", systemBody).Code)
	rec = do(t, srv, http.MethodPost, "/api/v1/reliability", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no budget set")

	configure(t, srv)

	rec = do(t, srv, http.MethodPost, "/api/v1/reliability", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[domain.EstimateResult](t, rec)
	assert.Equal(t, domain.EstimateResult{TankSizeM3: 1000, AnnualSuccessPercent: 100}, res)

	rec = do(t, srv, http.MethodPost, "/api/v1/reliability", map[string]any{
		"system": map[string]any{"catchment_area_m2": 100, "runoff_coefficient": 0.8, "tank_capacity_m3": 0},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[domain.EstimateResult](t, rec)
	assert.Equal(t, 0, res.AnnualSuccessPercent)

	rec = do(t, srv, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[tanka.Status](t, rec)
	assert.False(t, st.Stale)
}

func TestNoUsableYearsIsConflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/system", systemBody).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/v1/demand", demandBody).Code)

	rec := do(t, srv, http.MethodPost, "/api/v1/performance", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPerformance(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	configure(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/v1/performance", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[simulation.SweepOutcome](t, rec)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 750.0, out.Results[0].TankSizeM3)
	assert.Equal(t, 1250.0, out.Results[2].TankSizeM3)
}

func TestSizingAndOptimum(t *testing.T) {
	srv, store := newTestServer(t, nil)
	configure(t, srv)

	rec := do(t, srv, http.MethodPost, "/api/v1/sizing", map[string]any{"max_tank_m3": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/sizing", map[string]any{"max_tank_m3": 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[domain.SizingReport](t, rec)
	assert.Equal(t, "rep-1", report.ID)
	require.Len(t, report.Results, 6)
	require.NotNil(t, report.Advice)
	assert.Equal(t, simulation.MessageSmallerTanks, report.Advice.Message)

	rec = do(t, srv, http.MethodGet, "/api/v1/sizing/rep-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.Results, decode[domain.SizingReport](t, rec).Results)

	rec = do(t, srv, http.MethodGet, "/api/v1/sizing/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The flat report recommends nothing.
	rec = do(t, srv, http.MethodPost, "/api/v1/sizing/optimum", map[string]any{"report_id": "rep-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	recommended := domain.EstimateResult{TankSizeM3: 8, AnnualSuccessPercent: 92}
	require.NoError(t, store.SaveReport(context.Background(), domain.SizingReport{
		ID:     "rep-2",
		Advice: &domain.Advice{Region: domain.RegionIncreasing, Recommended: &recommended},
	}))
	rec = do(t, srv, http.MethodPost, "/api/v1/sizing/optimum", map[string]any{"report_id": "rep-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, recommended, decode[domain.EstimateResult](t, rec))

	rec = do(t, srv, http.MethodPost, "/api/v1/sizing/optimum", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRainfallSummary(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	configure(t, srv)

	rec := do(t, srv, http.MethodGet, "/api/v1/rainfall/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[tanka.RainfallSummary](t, rec)
	assert.Equal(t, []int{2021, 2022}, sum.UsableYears)
	assert.Len(t, sum.Outlook, 2)
	assert.InDelta(t, 10.0, sum.AverageToday, 1e-9)
}
