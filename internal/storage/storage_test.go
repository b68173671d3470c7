package storage_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]storage.Storage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	mem, err := storage.Open(ctx, storage.Config{}, logger)
	require.NoError(t, err)

	lite, err := storage.Open(ctx, storage.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "simtanka.db"),
	}, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = mem.Close()
		_ = lite.Close()
	})
	return map[string]storage.Storage{"memory": mem, "sqlite": lite}
}

func TestStorage_Rainfall(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			saved, err := st.SaveRainfall(ctx, []domain.DailyRainfallRecord{
				{Year: 2023, Month: 1, Day: 2, DepthMM: 2},
				{Year: 2023, Month: 1, Day: 1, DepthMM: 1},
				{Year: 2023, Month: 1, Day: 1, DepthMM: 7},
			})
			require.NoError(t, err)
			assert.Equal(t, 2, saved)

			// Stored days are immutable.
			saved, err = st.SaveRainfall(ctx, []domain.DailyRainfallRecord{
				{Year: 2023, Month: 1, Day: 1, DepthMM: 99},
				{Year: 2023, Month: 1, Day: 3, DepthMM: 3},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, saved)

			got, err := st.ListRainfall(ctx)
			require.NoError(t, err)
			assert.Equal(t, []domain.DailyRainfallRecord{
				{Year: 2023, Month: 1, Day: 1, DepthMM: 1},
				{Year: 2023, Month: 1, Day: 2, DepthMM: 2},
				{Year: 2023, Month: 1, Day: 3, DepthMM: 3},
			}, got)

			_, err = st.SaveRainfall(ctx, []domain.DailyRainfallRecord{{Year: 2023, Month: 2, Day: 30}})
			require.ErrorIs(t, err, domain.ErrInvalidRecord)

			saved, err = st.SaveRainfall(ctx, nil)
			require.NoError(t, err)
			assert.Zero(t, saved)
		})
	}
}

func TestStorage_SystemAndDemand(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sys, err := st.GetSystem(ctx)
			require.NoError(t, err)
			assert.Nil(t, sys)
			demand, err := st.GetDemand(ctx)
			require.NoError(t, err)
			assert.Nil(t, demand)

			want := domain.System{CatchmentAreaM2: 120, RunoffCoefficient: 0.8, TankCapacityM3: 10}
			require.NoError(t, st.SaveSystem(ctx, want))
			want.TankCapacityM3 = 12
			require.NoError(t, st.SaveSystem(ctx, want))
			sys, err = st.GetSystem(ctx)
			require.NoError(t, err)
			require.NotNil(t, sys)
			assert.Equal(t, want, *sys)

			schedule := domain.DemandSchedule{0.5, 0.5, 0, 0, 0, 0, 0, 0, 0, 0, 0.25, 1}
			require.NoError(t, st.SaveDemand(ctx, schedule))
			schedule[0] = 2
			require.NoError(t, st.SaveDemand(ctx, schedule))
			demand, err = st.GetDemand(ctx)
			require.NoError(t, err)
			require.NotNil(t, demand)
			assert.Equal(t, schedule, *demand)
		})
	}
}

func TestStorage_Optimum(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			opt, err := st.GetOptimum(ctx)
			require.NoError(t, err)
			assert.Nil(t, opt)

			want := domain.EstimateResult{TankSizeM3: 8, AnnualSuccessPercent: 93}
			require.NoError(t, st.SaveOptimum(ctx, want))
			opt, err = st.GetOptimum(ctx)
			require.NoError(t, err)
			require.NotNil(t, opt)
			assert.Equal(t, want, *opt)

			require.NoError(t, st.ClearOptimum(ctx))
			opt, err = st.GetOptimum(ctx)
			require.NoError(t, err)
			assert.Nil(t, opt)
		})
	}
}

func TestStorage_Reports(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			missing, err := st.GetReport(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)

			report := domain.SizingReport{
				ID:          "rep-1",
				CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
				MaxTankM3:   10,
				UsableYears: []int{2020, 2021},
				Results:     []domain.EstimateResult{{TankSizeM3: 10, AnnualSuccessPercent: 91}},
				Advice:      &domain.Advice{Message: "optimum tank size found", Region: domain.RegionIncreasing},
			}
			require.NoError(t, st.SaveReport(ctx, report))

			got, err := st.GetReport(ctx, "rep-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, report.Results, got.Results)
			assert.Equal(t, report.Advice, got.Advice)
			assert.True(t, report.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Config{Driver: "mongo"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestStorage_Ping(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.Ping(context.Background()))
		})
	}
}
